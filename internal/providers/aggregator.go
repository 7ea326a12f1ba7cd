package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/skills"
)

const defaultParallel = 4

// Aggregator queries providers concurrently and merges their postings.
type Aggregator struct {
	providers []Provider
	parallel  int
	index     *skills.Index
	logger    *zap.Logger
}

type AggregatorOption func(*Aggregator)

func WithParallel(n int) AggregatorOption {
	return func(a *Aggregator) { a.parallel = n }
}

func WithSkillIndex(idx *skills.Index) AggregatorOption {
	return func(a *Aggregator) { a.index = idx }
}

func WithLogger(l *zap.Logger) AggregatorOption {
	return func(a *Aggregator) { a.logger = l }
}

func NewAggregator(providers []Provider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{providers: providers, parallel: defaultParallel}
	for _, opt := range opts {
		opt(a)
	}
	if a.parallel <= 0 {
		a.parallel = defaultParallel
	}
	if a.index == nil {
		a.index = skills.Default()
	}
	a.logger = logger.WithFields(a.logger)
	return a
}

type Result struct {
	Postings *jobs.Postings
	// Warnings holds one entry per failed provider.
	Warnings []*Error
	// Found counts valid postings per provider before deduplication.
	Found map[string]int
}

// Summary renders the provider failures for the user, one line per provider.
func (r *Result) Summary() string {
	if len(r.Warnings) == 0 {
		return ""
	}
	lines := make([]string, 0, len(r.Warnings)+1)
	lines = append(lines, fmt.Sprintf("%d provider(s) failed:", len(r.Warnings)))
	for _, w := range r.Warnings {
		lines = append(lines, "  - "+w.Error())
	}
	return strings.Join(lines, "\n")
}

type providerResult struct {
	postings []*jobs.Posting
	err      error
}

// Search fans the query out to every provider. A failing provider is recorded in
// Result.Warnings and the others still contribute. When ctx is cancelled the
// postings gathered so far are returned together with ctx.Err().
func (a *Aggregator) Search(ctx context.Context, q Query) (*Result, error) {
	results := make([]providerResult, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallel)

	for i, p := range a.providers {
		if gctx.Err() != nil {
			results[i].err = gctx.Err()
			continue
		}
		g.Go(func() error {
			postings, err := p.Search(gctx, q)
			results[i] = providerResult{postings: postings, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Postings: &jobs.Postings{}, Found: make(map[string]int, len(a.providers))}
	for i, p := range a.providers {
		name := p.Name()
		r := results[i]

		if r.err != nil {
			res.Warnings = append(res.Warnings, &Error{Provider: name, Err: r.err})
			a.logger.Warn("provider search failed", zap.String(logger.FieldJobProvider, name), zap.Error(r.err))
		}

		valid := a.normalize(name, r.postings)
		if q.Limit > 0 && len(valid) > q.Limit {
			valid = valid[:q.Limit]
		}
		res.Found[name] = len(valid)
		res.Postings.Merge(valid)
	}

	sort.SliceStable(res.Warnings, func(i, j int) bool { return res.Warnings[i].Provider < res.Warnings[j].Provider })

	a.logger.Info("search finished",
		zap.Int("providers", len(a.providers)),
		zap.Int("postings", res.Postings.Len()),
		zap.Int("failed", len(res.Warnings)),
	)

	return res, ctx.Err()
}

// normalize drops invalid postings, stamps the provider name and derives missing
// requirements from the text.
func (a *Aggregator) normalize(name string, postings []*jobs.Posting) []*jobs.Posting {
	valid := make([]*jobs.Posting, 0, len(postings))
	for _, p := range postings {
		if p == nil {
			continue
		}
		if p.Provider == "" {
			p.Provider = name
		}
		if err := p.Validate(); err != nil {
			a.logger.Debug("dropping invalid posting", zap.String(logger.FieldJobProvider, name), zap.Error(err))
			continue
		}
		p.Enrich(a.index)
		valid = append(valid, p)
	}
	return valid
}
