// Package tracker owns the application records and their status lifecycle.
package tracker

import (
	"slices"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/matching"
)

type HistoryEntry struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
	Simulated bool      `json:"simulated,omitempty"`
}

// JobSummary is the part of a posting kept with the application for display.
type JobSummary struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location,omitempty"`
	Provider string `json:"provider,omitempty"`
	URL      string `json:"url,omitempty"`
}

type MatchSummary struct {
	Score            float64  `json:"score"`
	HiringLikelihood float64  `json:"hiringLikelihood"`
	Compensation     float64  `json:"compensation"`
	MatchedSkills    []string `json:"matchedSkills,omitempty"`
	MissingSkills    []string `json:"missingSkills,omitempty"`
}

type Documents struct {
	Resume      string `json:"resume,omitempty"`
	CoverLetter string `json:"coverLetter,omitempty"`
}

// Application is the tracked pursuit of one posting by one profile. The pair
// (JobID, ProfileID) is unique within a tracker.
type Application struct {
	ID        string         `json:"id"`
	JobID     string         `json:"jobId"`
	ProfileID string         `json:"profileId"`
	Status    Status         `json:"status"`
	History   []HistoryEntry `json:"history"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	Job       *JobSummary   `json:"job,omitempty"`
	Match     *MatchSummary `json:"match,omitempty"`
	Documents *Documents    `json:"documents,omitempty"`
	AppliedAt *time.Time    `json:"appliedAt,omitempty"`
	Simulated bool          `json:"simulated,omitempty"`
}

func (a *Application) Clone() *Application {
	c := *a
	c.History = slices.Clone(a.History)
	if a.Job != nil {
		job := *a.Job
		c.Job = &job
	}
	if a.Match != nil {
		m := *a.Match
		m.MatchedSkills = slices.Clone(a.Match.MatchedSkills)
		m.MissingSkills = slices.Clone(a.Match.MissingSkills)
		c.Match = &m
	}
	if a.Documents != nil {
		d := *a.Documents
		c.Documents = &d
	}
	if a.AppliedAt != nil {
		t := *a.AppliedAt
		c.AppliedAt = &t
	}
	return &c
}

// Reached reports whether the application has ever been in status s.
func (a *Application) Reached(s Status) bool {
	for _, h := range a.History {
		if h.Status == s {
			return true
		}
	}
	return false
}

var responses = []Status{UnderReview, InterviewScheduled, OfferReceived, Rejected}

// Responded reports whether the employer reacted after the application was sent.
func (a *Application) Responded() bool {
	if !a.Reached(Applied) {
		return false
	}
	for _, s := range responses {
		if a.Reached(s) {
			return true
		}
	}
	return false
}

func (a *Application) Title() string {
	if a.Job == nil {
		return ""
	}
	return a.Job.Title
}

func (a *Application) Company() string {
	if a.Job == nil {
		return ""
	}
	return a.Job.Company
}

func (a *Application) Score() float64 {
	if a.Match == nil {
		return 0
	}
	return a.Match.Score
}

func (a *Application) Likelihood() float64 {
	if a.Match == nil {
		return 0
	}
	return a.Match.HiringLikelihood
}

func SummarizeJob(p *jobs.Posting) *JobSummary {
	if p == nil {
		return nil
	}
	return &JobSummary{
		Title:    p.Title,
		Company:  p.Company,
		Location: p.Location,
		Provider: p.Provider,
		URL:      p.URL,
	}
}

func SummarizeMatch(r *matching.Result) *MatchSummary {
	if r == nil {
		return nil
	}
	return &MatchSummary{
		Score:            r.Overall,
		HiringLikelihood: r.HiringLikelihood,
		Compensation:     r.CompensationScore,
		MatchedSkills:    slices.Clone(r.MatchedSkills),
		MissingSkills:    slices.Clone(r.MissingSkills),
	}
}
