package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/filtering"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/providers/file"
	"github.com/spigell/job-matcher/internal/providers/greenhouse"
	"github.com/spigell/job-matcher/internal/providers/headhunter"
	"github.com/spigell/job-matcher/internal/providers/indeed"
	"github.com/spigell/job-matcher/internal/providers/lever"
	"github.com/spigell/job-matcher/internal/secrets"
	"github.com/spigell/job-matcher/internal/tracker"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

// unsupportedBoards accept credentials in the config but have no client.
var unsupportedBoards = []string{"linkedin", "glassdoor"}

func knownProvider(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case headhunter.Name, greenhouse.Name, lever.Name, indeed.Name, file.Name:
		return true
	default:
		return slices.Contains(unsupportedBoards, strings.ToLower(strings.TrimSpace(name)))
	}
}

// buildProviders creates the providers named in names, or the enabled ones when
// names is empty.
func buildProviders(config *ProvidersConfig, names []string, l *zap.Logger) ([]providers.Provider, error) {
	if len(names) == 0 {
		names = config.Enabled
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no providers enabled", ErrConfigInvalid)
	}

	var out []providers.Provider
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case headhunter.Name:
			token, err := headhunterToken(config.Headhunter)
			if err != nil {
				return nil, err
			}
			out = append(out, headhunter.New(config.Headhunter, token, l))
		case greenhouse.Name:
			out = append(out, greenhouse.New(config.Greenhouse, l))
		case lever.Name:
			out = append(out, lever.New(config.Lever, l))
		case indeed.Name:
			key, err := indeedPublisher(config.Indeed)
			if err != nil {
				return nil, err
			}
			out = append(out, indeed.New(config.Indeed, key, l))
		case file.Name:
			out = append(out, file.New(config.File))
		default:
			if !slices.Contains(unsupportedBoards, name) {
				return nil, fmt.Errorf("%w: unknown provider %q", ErrConfigInvalid, name)
			}
			out = append(out, providers.NewUnavailable(name, "searching this board needs a partner agreement"))
		}
	}
	return out, nil
}

// headhunterToken resolves the optional hh.ru token. Search works anonymously,
// so the token is only loaded when one is configured.
func headhunterToken(cfg headhunter.Config) (string, error) {
	if strings.TrimSpace(cfg.Token) == "" && strings.TrimSpace(cfg.TokenFile) == "" {
		return "", nil
	}
	return secrets.Load(secrets.Source{
		Name:  "headhunter token",
		Value: cfg.Token,
		File:  cfg.TokenFile,
	})
}

// indeedPublisher resolves the optional publisher key. Without one the client
// reads the public search pages.
func indeedPublisher(cfg indeed.Config) (string, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && strings.TrimSpace(cfg.APIKeyFile) == "" {
		return "", nil
	}
	return secrets.Load(secrets.Source{
		Name:  "indeed publisher key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
}

func newAIGenerator(ctx context.Context, cfg *AIConfig, l *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.ProviderName {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key, ai.gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
	}

	genLogger := l.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))
	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}

func newAIMatcher(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Matcher, error) {
	generator, err := newAIGenerator(ctx, cfg, l)
	if err != nil {
		return nil, err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	matcherLogger := l.With(zap.Float64("minimum_fit_score", minScore))
	matcher := gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength, matcherLogger)
	if cfg.Prompt != nil {
		matcher.SetPromptOverrides(*cfg.Prompt)
	}

	return matcher, nil
}

type filterOptions struct {
	includeTracked bool
	skipAI         bool
	now            func() time.Time
}

// prepareFilters builds the pipeline that runs before scoring: freshness,
// already tracked postings, excluded companies, the exclude file and, when
// enabled, the AI fit check.
func prepareFilters(ctx context.Context, s *session, p *profile.Profile, tr *tracker.Tracker, opts filterOptions) *filtering.Filtering {
	steps := []filtering.Filter{filtering.NewStale(s.config.Search.MaxAge, opts.now)}
	// Without a tracker there is nothing to look tracked postings up in.
	if tr != nil {
		steps = append(steps, filtering.NewTracked(
			&filtering.TrackedConfig{Ignore: opts.includeTracked},
			&filtering.TrackedDeps{Tracker: tr, ProfileID: p.ID, Logger: s.logger},
		))
	}
	steps = append(steps,
		filtering.NewExcludedCompanies(s.config.Apply.excludedCompanies()),
		filtering.NewExcludeFile(s.config.ExcludeFile),
	)

	aiFilter, err := prepareAIFilter(ctx, s, p)
	if err != nil {
		s.logger.Warn("skipping AI filter", zap.Error(err))
	}
	if aiFilter != nil {
		steps = append(steps, aiFilter)
	}

	f := filtering.New(steps, s.logger)
	if opts.skipAI {
		f.DisableByName("ai_fit", "disabled by flag")
	}
	return f
}

func prepareAIFilter(ctx context.Context, s *session, p *profile.Profile) (filtering.Filter, error) {
	config := s.config.AI
	if !config.Enabled {
		return filtering.NewAIFit(&filtering.AIFitFilterConfig{Enabled: false}, nil), nil
	}

	matcher, err := newAIMatcher(ctx, config, s.logger)
	if err != nil {
		return nil, fmt.Errorf("building ai matcher: %w", err)
	}

	return filtering.NewAIFit(&filtering.AIFitFilterConfig{
		Enabled:         true,
		Provider:        config.Provider,
		MinimumFitScore: config.MinimumFitScore,
	}, &filtering.AIFitFilterDeps{
		Logger:      s.logger,
		Matcher:     matcher,
		Profile:     p,
		ExcludeFile: s.config.ExcludeFile,
	}), nil
}
