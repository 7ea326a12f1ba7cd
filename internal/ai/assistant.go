// Package ai defines the contracts between job-matcher and AI backends.
package ai

import (
	"context"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

// FitAssessment is an AI opinion on how well a profile fits a posting.
// Score is in [0,1]; Message is a short note to the employer.
type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

type Matcher interface {
	Evaluate(ctx context.Context, p *profile.Profile, posting *jobs.Posting) (*FitAssessment, error)
}

// Generator produces free text from a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}
