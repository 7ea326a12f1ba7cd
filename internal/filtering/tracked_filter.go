package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/tracker"
)

const includeTrackedMsg = "include-tracked flag is set"

// Tracked looks up an application by its (job, profile) pair.
type Tracked interface {
	Find(jobID, profileID string) (*tracker.Application, error)
}

type trackedFilter struct {
	deps   *TrackedDeps
	ignore bool
}

type TrackedDeps struct {
	Tracker   Tracked
	ProfileID string
	Logger    *zap.Logger
}

type TrackedConfig struct {
	Ignore bool
}

// NewTracked creates a filter that removes postings already tracked for the profile.
func NewTracked(cfg *TrackedConfig, deps *TrackedDeps) Filter {
	ignore := false
	if cfg != nil {
		ignore = cfg.Ignore
	}

	return &trackedFilter{
		deps:   deps,
		ignore: ignore,
	}
}

func (f *trackedFilter) Name() string { return "tracked" }

func (f *trackedFilter) Disable(string) {}

func (f *trackedFilter) IsEnabled() bool { return true }

func (f *trackedFilter) Validate() error {
	if f.deps == nil || f.deps.Tracker == nil {
		return fmt.Errorf("tracker is required")
	}

	if f.deps.ProfileID == "" {
		return fmt.Errorf("profile id is required")
	}

	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}

	return nil
}

func (f *trackedFilter) Apply(_ context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if f.ignore {
		f.deps.Logger.Info("keeping already tracked postings", zap.String("reason", includeTrackedMsg))
		return p, newStep(initial, p), nil
	}

	var lookupErr error
	excluded := p.Keep(func(posting *jobs.Posting) bool {
		if lookupErr != nil {
			return true
		}
		_, err := f.deps.Tracker.Find(posting.Key(), f.deps.ProfileID)
		switch {
		case err == nil:
			return false
		case tracker.IsNotFound(err):
			return true
		default:
			lookupErr = err
			return true
		}
	})
	if lookupErr != nil {
		return p, Step{}, fmt.Errorf("look up tracked applications: %w", lookupErr)
	}

	if len(excluded) > 0 {
		f.deps.Logger.Info("excluding postings that are already tracked",
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", p.Len()),
		)
	}

	return p, newStep(initial, p), nil
}
