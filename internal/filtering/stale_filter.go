package filtering

import (
	"context"
	"strconv"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
)

type staleFilter struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewStale creates a filter that removes postings published more than maxAge ago.
// Postings without a publication date are kept. A zero maxAge keeps everything.
func NewStale(maxAge time.Duration, now func() time.Time) Filter {
	if now == nil {
		now = time.Now
	}
	return &staleFilter{maxAge: maxAge, now: now}
}

func (f *staleFilter) Name() string { return "stale" }

func (f *staleFilter) Disable(string) {}

func (f *staleFilter) IsEnabled() bool { return true }

func (f *staleFilter) Validate() error { return nil }

func (f *staleFilter) Apply(_ context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.maxAge <= 0 {
		return p, newStep(initial, p), nil
	}

	cutoff := f.now().Add(-f.maxAge)
	p.Keep(func(posting *jobs.Posting) bool {
		return posting.PostedAt.IsZero() || !posting.PostedAt.Before(cutoff)
	})

	return p, newStep(initial, p), nil
}

func (f *staleFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"max_age_hours": strconv.Itoa(int(f.maxAge.Hours()))},
	}
}
