// Package matching scores a candidate profile against job postings.
package matching

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

const (
	// defaultTargetYears is used when neither the posting nor its title implies a
	// required amount of experience.
	defaultTargetYears = 5.0

	baselineLocation  = 0.3
	baselineEducation = 0.4
	unknownSalary     = 0.5
)

// Engine computes match results. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	weights Weights
	index   *skills.Index
	now     func() time.Time
}

type Option func(*Engine)

// WithIndex replaces the default skill index.
func WithIndex(idx *skills.Index) Option {
	return func(e *Engine) { e.index = idx }
}

// WithClock sets the clock used to stamp results and measure current roles.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine fails with ErrInvalidWeights unless the weights sum to 1.
func NewEngine(w Weights, opts ...Option) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		weights: w,
		index:   skills.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Weights() Weights {
	return e.weights
}

// Score compares a profile with a posting. Only structurally malformed input fails;
// a profile without skills simply scores 0 on required skills.
func (e *Engine) Score(p *profile.Profile, job *jobs.Posting) (*Result, error) {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: profile id is required", ErrInvalidProfile)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPosting, err)
	}

	now := e.now()
	r := &Result{
		ProfileID:      p.ID,
		ProfileVersion: p.VersionHash(),
		JobKey:         job.Key(),
		ComputedAt:     now.UTC(),
	}

	r.SkillScore = e.skillScore(p, job, r)
	r.ExperienceScore = e.experienceScore(p, job, now)
	r.LocationScore = locationScore(p, job)
	r.SalaryScore = salaryScore(p, job)
	r.EducationScore = educationScore(p, job)
	r.CompensationScore = CompensationScore(p.MinSalary, job.Salary)

	r.Overall = clamp(e.weights.Skill*r.SkillScore +
		e.weights.Experience*r.ExperienceScore +
		e.weights.Location*r.LocationScore +
		e.weights.Salary*r.SalaryScore +
		e.weights.Education*r.EducationScore)

	return r, nil
}

// ScoreAll scores every posting. Postings that fail are skipped and their errors
// joined; a malformed profile fails the whole call.
func (e *Engine) ScoreAll(p *profile.Profile, postings []*jobs.Posting) ([]*Result, error) {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: profile id is required", ErrInvalidProfile)
	}

	results := make([]*Result, 0, len(postings))
	var errs []error
	for _, job := range postings {
		r, err := e.Score(p, job)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}

// skillScore classifies every required skill and fills the skill sets of r.
// With no required skills there is nothing to miss and the score is 1.
func (e *Engine) skillScore(p *profile.Profile, job *jobs.Posting, r *Result) float64 {
	required := e.requirements(job)
	requiredKeys := make(map[string]bool, len(required))

	r.MatchedSkills = []string{}
	r.PartialSkills = []string{}
	r.MissingSkills = []string{}

	var total float64
	for _, need := range required {
		requiredKeys[need.Key] = true

		class := e.index.Compare(e.index.Find(p.Skills, need.Key), need)
		total += class.Weight()

		switch class {
		case skills.Matched:
			r.MatchedSkills = append(r.MatchedSkills, need.Key)
		case skills.Partial:
			r.PartialSkills = append(r.PartialSkills, need.Key)
		default:
			r.MissingSkills = append(r.MissingSkills, need.Key)
		}
	}

	r.BonusSkills = []string{}
	seen := make(map[string]bool)
	for _, s := range p.Skills {
		keys := e.index.Keys(s)
		covers := false
		for _, k := range keys {
			if requiredKeys[k] {
				covers = true
				break
			}
		}
		if covers || seen[keys[0]] {
			continue
		}
		seen[keys[0]] = true
		r.BonusSkills = append(r.BonusSkills, keys[0])
	}

	if len(required) == 0 {
		return 1
	}
	return clamp(total / float64(len(required)))
}

// requirements normalizes the posting's skill keys through the index. Keys that
// collapse into one keep the highest level.
func (e *Engine) requirements(job *jobs.Posting) []skills.Requirement {
	levels := make(map[string]skills.Level, len(job.RequiredSkills))
	for _, need := range job.Requirements() {
		key := e.index.Normalize(need.Key)
		if key == "" {
			continue
		}
		lvl := need.MinLevel
		if !lvl.Valid() {
			lvl = skills.Intermediate
		}
		if prev, ok := levels[key]; !ok || lvl > prev {
			levels[key] = lvl
		}
	}

	keys := make([]string, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	reqs := make([]skills.Requirement, 0, len(keys))
	for _, k := range keys {
		reqs = append(reqs, skills.Requirement{Key: k, MinLevel: levels[k]})
	}
	return reqs
}

// experienceScore compares relevant years with the years the posting implies. When
// nothing implies a target, total years are measured against five.
func (e *Engine) experienceScore(p *profile.Profile, job *jobs.Posting, now time.Time) float64 {
	target, ok := targetYears(job)
	if !ok {
		return clamp(p.TotalYears(now) / defaultTargetYears)
	}
	if target <= 0 {
		return 1
	}
	return clamp(relevantYears(p, job, now) / target)
}

func targetYears(job *jobs.Posting) (float64, bool) {
	if job.MinYears > 0 {
		return job.MinYears, true
	}
	if s, ok := jobs.InferSeniority(job.Title); ok {
		return s.Years, true
	}
	if s, ok := jobs.InferSeniority(job.ExperienceLevel); ok {
		return s.Years, true
	}
	return 0, false
}

// relevantYears counts experience in roles whose titles share a meaningful word with
// the job title. A title with no meaningful words makes all experience relevant.
func relevantYears(p *profile.Profile, job *jobs.Posting, now time.Time) float64 {
	want := titleTokens(job.Title)
	if len(want) == 0 {
		return p.TotalYears(now)
	}

	var relevant []profile.Experience
	for _, exp := range p.Experiences {
		for tok := range titleTokens(exp.Title) {
			if want[tok] {
				relevant = append(relevant, exp)
				break
			}
		}
	}
	return profile.YearsAcross(relevant, now)
}

var titleStopWords = map[string]bool{
	"and": true, "the": true, "of": true, "for": true, "with": true, "in": true,
	"senior": true, "sr": true, "junior": true, "jr": true, "lead": true, "staff": true,
	"principal": true, "mid": true, "entry": true, "head": true, "director": true,
	"i": true, "ii": true, "iii": true, "iv": true,
}

func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#')
	}) {
		if len(w) < 2 || titleStopWords[w] {
			continue
		}
		tokens[w] = true
	}
	return tokens
}

func locationScore(p *profile.Profile, job *jobs.Posting) float64 {
	if p.RemotePreference == profile.RemoteOnly && !job.Remote {
		return 0
	}
	if job.Remote && p.RemotePreference.AllowsRemote() {
		return 1
	}

	loc := strings.ToLower(strings.TrimSpace(job.Location))
	if loc != "" {
		for _, desired := range p.DesiredLocations {
			d := strings.ToLower(strings.TrimSpace(desired))
			if d != "" && strings.Contains(loc, d) {
				return 1
			}
		}
	}
	return baselineLocation
}

// salaryScore ramps linearly up to the candidate's minimum. A missing range is neutral.
func salaryScore(p *profile.Profile, job *jobs.Posting) float64 {
	if !job.Salary.Known() {
		return unknownSalary
	}
	if p.MinSalary <= 0 {
		return 1
	}
	return clamp(float64(job.Salary.Top()) / float64(p.MinSalary))
}

func educationScore(p *profile.Profile, job *jobs.Posting) float64 {
	if job.MinDegree == profile.DegreeNone {
		return 1
	}
	if p.HighestDegree() >= job.MinDegree {
		return 1
	}
	return baselineEducation
}

// CompensationScore rates how competitive a salary range is against the candidate's
// minimum, or against typical market bands when the candidate states none.
func CompensationScore(minSalary int, salary *jobs.SalaryRange) float64 {
	if !salary.Known() {
		return 0.5
	}
	top := float64(salary.Top())

	if minSalary > 0 {
		ratio := top / float64(minSalary)
		switch {
		case ratio >= 1.3:
			return 1
		case ratio >= 1.1:
			return 0.9
		case ratio >= 1.0:
			return 0.8
		case ratio >= 0.9:
			return 0.7
		default:
			return math.Max(0.2, ratio*0.6)
		}
	}

	switch {
	case top >= 200000:
		return 0.95
	case top >= 150000:
		return 0.85
	case top >= 120000:
		return 0.75
	case top >= 90000:
		return 0.65
	case top >= 60000:
		return 0.5
	default:
		return 0.4
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
