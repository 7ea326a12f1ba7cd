package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/profile"
)

type aiFitFilter struct {
	enabled     bool
	reason      string
	config      *AIFitFilterConfig
	deps        *AIFitFilterDeps
	assessments map[string]*ai.FitAssessment
}

type AIFitFilterDeps struct {
	Logger      *zap.Logger
	Matcher     ai.Matcher
	Profile     *profile.Profile
	ExcludeFile string
}

type AIFitFilterConfig struct {
	Enabled         bool
	Provider        string
	MinimumFitScore float64
}

// NewAIFit creates the AI-based filtering step. Postings the matcher rejects are
// dropped and appended to the exclude file; postings it fails to evaluate are kept.
func NewAIFit(cfg *AIFitFilterConfig, deps *AIFitFilterDeps) Filter {
	if cfg == nil {
		cfg = &AIFitFilterConfig{}
	}
	return &aiFitFilter{
		enabled:     cfg.Enabled,
		deps:        deps,
		config:      cfg,
		assessments: make(map[string]*ai.FitAssessment),
	}
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *aiFitFilter) IsEnabled() bool { return f.enabled }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil {
		return fmt.Errorf("deps are not initialized: filter is not usable")
	}
	if f.deps.Matcher == nil {
		return fmt.Errorf("ai matcher is required when ai filter is enabled")
	}
	if f.deps.Profile == nil {
		return fmt.Errorf("profile is required when ai filter is enabled")
	}
	return nil
}

func (f *aiFitFilter) Apply(ctx context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	l := logger.WithFields(f.deps.Logger)

	var rejected []*jobs.Posting
	p.Keep(func(posting *jobs.Posting) bool {
		if ctx.Err() != nil {
			return true
		}

		key := posting.Key()
		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Profile, posting)
		if err != nil {
			l.Warn("AI evaluation failed", zap.String(logger.FieldJobKey, key), zap.Error(err))
			return true
		}

		f.assessments[key] = assessment

		if !assessment.Fit {
			l.Info("posting rejected by AI provider",
				zap.String(logger.FieldJobKey, key),
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)
			rejected = append(rejected, posting)
			return false
		}

		l.Info("posting approved by AI",
			zap.String(logger.FieldJobKey, key),
			zap.Float64("ai_score", assessment.Score),
		)
		return true
	})

	if err := f.appendToExcludeFile(rejected); err != nil {
		l.Warn("failed to append postings to exclude file", zap.Error(err))
	}

	l.Info("AI filtering completed",
		zap.Int("initial_postings", initial),
		zap.Int("approved_postings", p.Len()),
	)

	return p, newStep(initial, p), ctx.Err()
}

func (f *aiFitFilter) appendToExcludeFile(rejected []*jobs.Posting) error {
	path := strings.TrimSpace(f.deps.ExcludeFile)
	if path == "" || len(rejected) == 0 {
		return nil
	}

	excluded, err := jobs.GetExcludedPostingsFromFile(path)
	if err != nil {
		return fmt.Errorf("load excluded postings: %w", err)
	}

	for _, posting := range rejected {
		reason := ""
		if a := f.assessments[posting.Key()]; a != nil {
			reason = a.Reason
		}
		excluded.Append((&jobs.Postings{Items: []*jobs.Posting{posting}}).ToExcluded(jobs.ExcludeActorAI, reason))
	}

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write excluded postings: %w", err)
	}
	return nil
}

func (f *aiFitFilter) Assessments() map[string]*ai.FitAssessment {
	return f.assessments
}

func (f *aiFitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.enabled,
		Reason:  f.reason,
		Details: map[string]string{
			"provider":          f.config.Provider,
			"minimum_fit_score": strconv.FormatFloat(f.config.MinimumFitScore, 'f', 2, 64),
		},
	}
}
