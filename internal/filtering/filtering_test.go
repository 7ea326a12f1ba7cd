package filtering

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/tracker"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testPostings() *jobs.Postings {
	return &jobs.Postings{Items: []*jobs.Posting{
		{Provider: "lever", ID: "1", Title: "Go Developer", Company: "Acme", PostedAt: now.Add(-24 * time.Hour)},
		{Provider: "lever", ID: "2", Title: "SRE", Company: "Globex", PostedAt: now.Add(-90 * 24 * time.Hour)},
		{Provider: "greenhouse", ID: "3", Title: "Platform Engineer", Company: "initech"},
		{Provider: "greenhouse", ID: "4", Title: "Backend Engineer", Company: "Umbrella"},
		{Provider: "file", ID: "5", Title: "Data Engineer", Company: "Hooli"},
	}}
}

func keys(p *jobs.Postings) string {
	out := make([]string, 0, p.Len())
	for _, posting := range p.Items {
		out = append(out, posting.Key())
	}
	return strings.Join(out, ",")
}

type fakeTracked struct {
	tracked map[string]bool
	err     error
}

func (f *fakeTracked) Find(jobID, profileID string) (*tracker.Application, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.tracked[jobID] {
		return &tracker.Application{JobID: jobID, ProfileID: profileID}, nil
	}
	return nil, fmt.Errorf("job %s: %w", jobID, tracker.ErrNotFound)
}

type fakeMatcher struct {
	verdicts map[string]bool
	failing  map[string]bool
}

func (f *fakeMatcher) Evaluate(_ context.Context, _ *profile.Profile, posting *jobs.Posting) (*ai.FitAssessment, error) {
	if f.failing[posting.Key()] {
		return nil, errors.New("model unavailable")
	}
	fit := f.verdicts[posting.Key()]
	score := 0.2
	if fit {
		score = 0.9
	}
	return &ai.FitAssessment{Fit: fit, Score: score, Reason: "verdict for " + posting.Title}, nil
}

func TestRunFilters(t *testing.T) {
	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	seed := (&jobs.Postings{Items: []*jobs.Posting{{Provider: "file", ID: "5"}}}).ToExcluded(jobs.ExcludeActorUser, "not interested")
	if err := seed.ToFile(excludeFile); err != nil {
		t.Fatalf("seed exclude file: %v", err)
	}

	matcher := &fakeMatcher{
		verdicts: map[string]bool{"lever:1": true},
		failing:  map[string]bool{"greenhouse:3": true},
	}

	steps := []Filter{
		NewTracked(nil, &TrackedDeps{
			Tracker:   &fakeTracked{tracked: map[string]bool{"greenhouse:4": true}},
			ProfileID: "p1",
			Logger:    zap.NewNop(),
		}),
		NewExcludedCompanies([]string{" INITECH "}),
		NewExcludeFile(excludeFile),
		NewStale(30*24*time.Hour, func() time.Time { return now }),
		NewAIFit(&AIFitFilterConfig{Enabled: true, Provider: "gemini"}, &AIFitFilterDeps{
			Matcher:     matcher,
			Profile:     &profile.Profile{ID: "p1"},
			ExcludeFile: excludeFile,
		}),
	}

	f := New(steps, zap.NewNop())
	got, err := f.RunFilters(context.Background(), testPostings())
	if err != nil {
		t.Fatalf("run filters: %v", err)
	}

	if keys(got) != "lever:1" {
		t.Fatalf("unexpected postings left: %s", keys(got))
	}

	assessments := f.Assessments()
	if len(assessments) != 1 || !assessments["lever:1"].Fit {
		t.Fatalf("unexpected assessments: %+v", assessments)
	}

	excluded, err := jobs.GetExcludedPostingsFromFile(excludeFile)
	if err != nil {
		t.Fatalf("read exclude file: %v", err)
	}
	if len(excluded.Items) != 1 {
		t.Fatalf("expected nothing appended when every remaining posting fits, got %d items", len(excluded.Items))
	}
}

func TestAIFitRejectsAreExcluded(t *testing.T) {
	t.Parallel()

	excludeFile := filepath.Join(t.TempDir(), "exclude.json")
	step := NewAIFit(&AIFitFilterConfig{Enabled: true}, &AIFitFilterDeps{
		Matcher:     &fakeMatcher{verdicts: map[string]bool{"lever:1": true}, failing: map[string]bool{"file:5": true}},
		Profile:     &profile.Profile{ID: "p1"},
		ExcludeFile: excludeFile,
	})

	got, info, err := step.Apply(context.Background(), testPostings())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if keys(got) != "lever:1,file:5" {
		t.Fatalf("failed evaluations must be kept, got %s", keys(got))
	}
	if info != (Step{Initial: 5, Dropped: 3, Left: 2}) {
		t.Fatalf("unexpected step: %+v", info)
	}

	excluded, err := jobs.GetExcludedPostingsFromFile(excludeFile)
	if err != nil {
		t.Fatalf("read exclude file: %v", err)
	}
	if len(excluded.Items) != 3 {
		t.Fatalf("expected 3 rejected postings, got %d", len(excluded.Items))
	}
	first := excluded.Items[0]
	if first.Key != "lever:2" || first.Actor != jobs.ExcludeActorAI || first.Reason != "verdict for SRE" {
		t.Fatalf("unexpected exclude entry: %+v", first)
	}
}

func TestRunFiltersValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		steps   []Filter
		wantErr string
	}{
		{
			name:    "ai fit without matcher",
			steps:   []Filter{NewAIFit(&AIFitFilterConfig{Enabled: true}, &AIFitFilterDeps{})},
			wantErr: "ai_fit: ai matcher is required",
		},
		{
			name:    "tracked without profile",
			steps:   []Filter{NewTracked(nil, &TrackedDeps{Tracker: &fakeTracked{}, Logger: zap.NewNop()})},
			wantErr: "tracked: profile id is required",
		},
		{
			name:  "disabled ai fit is not validated",
			steps: []Filter{NewAIFit(&AIFitFilterConfig{Enabled: false}, nil)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.steps, nil).RunFilters(context.Background(), testPostings())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTrackedFilter(t *testing.T) {
	t.Parallel()

	deps := &TrackedDeps{
		Tracker:   &fakeTracked{tracked: map[string]bool{"lever:1": true, "file:5": true}},
		ProfileID: "p1",
		Logger:    zap.NewNop(),
	}

	got, info, err := NewTracked(nil, deps).Apply(context.Background(), testPostings())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if info.Dropped != 2 || got.FindByKey("lever:1") != nil {
		t.Fatalf("expected tracked postings to be dropped, got %s", keys(got))
	}

	got, info, err = NewTracked(&TrackedConfig{Ignore: true}, deps).Apply(context.Background(), testPostings())
	if err != nil || info.Dropped != 0 || got.Len() != 5 {
		t.Fatalf("ignore must keep everything, got %d (%v)", got.Len(), err)
	}

	deps.Tracker = &fakeTracked{err: errors.New("store unreadable")}
	if _, _, err := NewTracked(nil, deps).Apply(context.Background(), testPostings()); err == nil {
		t.Fatalf("expected lookup error")
	}
}

func TestDisableByNameAndDescribe(t *testing.T) {
	t.Parallel()

	f := New([]Filter{
		NewExcludedCompanies(nil),
		NewAIFit(&AIFitFilterConfig{Enabled: true, Provider: "gemini", MinimumFitScore: 0.6}, &AIFitFilterDeps{}),
	}, zap.NewNop())

	f.DisableByName("ai_fit", "no api key")

	got, err := f.RunFilters(context.Background(), testPostings())
	if err != nil {
		t.Fatalf("run filters: %v", err)
	}
	if got.Len() != 5 {
		t.Fatalf("expected all postings, got %d", got.Len())
	}

	statuses := f.Describe()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "companies" || !statuses[0].Enabled {
		t.Fatalf("unexpected companies status: %+v", statuses[0])
	}
	aiStatus := statuses[1]
	if aiStatus.Enabled || aiStatus.Reason != "no api key" || aiStatus.Details["minimum_fit_score"] != "0.60" {
		t.Fatalf("unexpected ai status: %+v", aiStatus)
	}
}
