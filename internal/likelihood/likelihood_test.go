package likelihood

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

func TestEstimateDefaultsToNeutralSignals(t *testing.T) {
	t.Parallel()

	r := &matching.Result{SkillScore: 1, ExperienceScore: 1}
	assert.InDelta(t, 0.40+0.25+0.5*0.35, Estimate(r, Signals{}), 1e-12)

	full := Signals{MarketDemand: Ptr(1), Timing: Ptr(1), CultureFit: Ptr(1)}
	assert.InDelta(t, 1.0, Estimate(r, full), 1e-12)

	nan := math.NaN()
	assert.InDelta(t, Estimate(r, Signals{}), Estimate(r, Signals{Timing: &nan}), 1e-12)
	assert.Equal(t, 0.0, Estimate(nil, Signals{}))
}

func TestEstimateStaysInUnitInterval(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{-5, 0, 0.3, 1, 7} {
		r := &matching.Result{SkillScore: v, ExperienceScore: v}
		got := Estimate(r, Signals{MarketDemand: Ptr(v), Timing: Ptr(v), CultureFit: Ptr(v)})
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}

func TestApplyReturnsCopy(t *testing.T) {
	t.Parallel()

	r := &matching.Result{JobKey: "x", SkillScore: 0.5, ExperienceScore: 0.5, MatchedSkills: []string{"go"}}
	out := Apply(r, Signals{})

	assert.Equal(t, 0.0, r.HiringLikelihood)
	assert.InDelta(t, 0.5, out.HiringLikelihood, 1e-12)
	assert.NotSame(t, r, out)
	out.MatchedSkills[0] = "changed"
	assert.Equal(t, "go", r.MatchedSkills[0])
}

func TestMarketDemand(t *testing.T) {
	t.Parallel()

	p := &profile.Profile{Skills: []skills.Skill{{Name: "Golang"}, {Name: "k8s"}, {Name: "COBOL"}}}
	assert.InDelta(t, 0.5, MarketDemand(p, nil), 1e-12)

	many := &profile.Profile{}
	for _, n := range []string{"python", "js", "aws", "kubernetes", "react", "ml", "go", "rust"} {
		many.Skills = append(many.Skills, skills.Skill{Name: n})
	}
	assert.Equal(t, 1.0, MarketDemand(many, nil))
}

func TestTiming(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	assert.Equal(t, 0.5, Timing(time.Time{}, now))
	assert.Equal(t, 1.0, Timing(now.Add(-2*day), now))
	assert.InDelta(t, 0.55, Timing(now.Add(-31*day-12*time.Hour), now), 1e-9)
	assert.Equal(t, 0.1, Timing(now.Add(-90*day), now))
}

func TestRating(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0.95: "Excellent",
		0.9:  "Excellent",
		0.8:  "High",
		0.6:  "Good",
		0.45: "Moderate",
		0.1:  "Low",
	}
	for v, expect := range tests {
		assert.Equal(t, expect, Rating(v), v)
	}
}
