package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
	"github.com/spigell/job-matcher/internal/tracker"
)

// session is what every command starts from: the validated config, a logger and
// the command output.
type session struct {
	ctx    context.Context
	config *Config
	logger *zap.Logger
	out    io.Writer
	index  *skills.Index
	// scores is shared by every scoring pass of the command.
	scores *matching.Cache
}

func newSession(cmd *cobra.Command) (*session, error) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, err
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty), zap.String("command", cmd.Name()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return &session{
		ctx:    ctx,
		config: config,
		logger: l,
		out:    cmd.OutOrStdout(),
		index:  skills.Default(),
		scores: matching.NewCache(),
	}, nil
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// loadProfile reads the profile at path, or the configured one when path is empty.
func (s *session) loadProfile(path string) (*profile.Profile, error) {
	if strings.TrimSpace(path) == "" {
		path = s.config.Profile
	}
	p, err := profile.Load(path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("profile loaded", zap.String(logger.FieldProfileID, p.ID), zap.String("path", path))
	return p, nil
}

func (s *session) openTracker() (*tracker.Tracker, error) {
	tr, err := tracker.Open(s.config.DataDir, tracker.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("open tracker: %w", err)
	}
	return tr, nil
}

func (s *session) catalog() *jobs.Catalog {
	return jobs.NewCatalog(s.config.DataDir)
}

func (s *session) engine() (*matching.Engine, error) {
	e, err := matching.NewEngine(s.config.Scoring.Weights, matching.WithIndex(s.index))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return e, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
