// Package likelihood estimates how likely a candidate is to be hired for a match.
package likelihood

import (
	"math"
	"time"

	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

const (
	weightSkill      = 0.40
	weightExperience = 0.25
	weightDemand     = 0.15
	weightTiming     = 0.10
	weightCulture    = 0.10

	neutral = 0.5
)

// Signals carries optional context. A nil signal counts as neutral.
type Signals struct {
	MarketDemand *float64
	Timing       *float64
	CultureFit   *float64
}

func value(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return neutral
	}
	return clamp(*v)
}

// Estimate combines the skill and experience sub-scores with the context signals.
func Estimate(r *matching.Result, s Signals) float64 {
	if r == nil {
		return 0
	}
	return clamp(weightSkill*r.SkillScore +
		weightExperience*r.ExperienceScore +
		weightDemand*value(s.MarketDemand) +
		weightTiming*value(s.Timing) +
		weightCulture*value(s.CultureFit))
}

// Apply returns a copy of r with HiringLikelihood set. r itself is not changed.
func Apply(r *matching.Result, s Signals) *matching.Result {
	out := r.Clone()
	out.HiringLikelihood = Estimate(r, s)
	return out
}

// inDemand are skill keys that are consistently sought after.
var inDemand = map[string]bool{
	"python": true, "javascript": true, "aws": true, "kubernetes": true, "react": true,
	"machine learning": true, "data science": true, "go": true, "rust": true,
}

// MarketDemand grows by 0.1 for each in-demand skill of the profile, starting at
// 0.3 and capped at 1.
func MarketDemand(p *profile.Profile, idx *skills.Index) float64 {
	if idx == nil {
		idx = skills.Default()
	}
	demand := 0.3
	for _, s := range p.Skills {
		if inDemand[idx.Normalize(s.Name)] {
			demand += 0.1
		}
	}
	return clamp(demand)
}

// Timing favours fresh postings: 1 within three days, falling linearly to 0.1 at
// sixty days. An unknown posting date is neutral.
func Timing(postedAt, now time.Time) float64 {
	if postedAt.IsZero() {
		return neutral
	}
	age := now.Sub(postedAt).Hours() / 24
	switch {
	case age <= 3:
		return 1
	case age >= 60:
		return 0.1
	default:
		return 1 - 0.9*(age-3)/57
	}
}

// Ptr is a helper for building Signals from literals.
func Ptr(v float64) *float64 {
	return &v
}

// Rating labels a likelihood.
func Rating(v float64) string {
	switch {
	case v >= 0.9:
		return "Excellent"
	case v >= 0.75:
		return "High"
	case v >= 0.6:
		return "Good"
	case v >= 0.4:
		return "Moderate"
	default:
		return "Low"
	}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
