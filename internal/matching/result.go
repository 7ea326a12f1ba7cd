package matching

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// Result is the scored comparison of one profile against one posting. It references
// both by identity and is never changed after it is computed; derived values are set
// on copies.
type Result struct {
	ProfileID      string `json:"profile_id"`
	ProfileVersion string `json:"profile_version"`
	JobKey         string `json:"job_key"`

	SkillScore      float64 `json:"skill_score"`
	ExperienceScore float64 `json:"experience_score"`
	LocationScore   float64 `json:"location_score"`
	SalaryScore     float64 `json:"salary_score"`
	EducationScore  float64 `json:"education_score"`
	Overall         float64 `json:"overall_score"`

	// CompensationScore rates pay competitiveness. It is informational and not part of Overall.
	CompensationScore float64 `json:"compensation_score"`
	HiringLikelihood  float64 `json:"hiring_likelihood"`

	MatchedSkills []string `json:"matched_skills"`
	PartialSkills []string `json:"partial_skills"`
	MissingSkills []string `json:"missing_skills"`
	BonusSkills   []string `json:"bonus_skills"`

	ComputedAt time.Time `json:"computed_at"`
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	c := *r
	c.MatchedSkills = slices.Clone(r.MatchedSkills)
	c.PartialSkills = slices.Clone(r.PartialSkills)
	c.MissingSkills = slices.Clone(r.MissingSkills)
	c.BonusSkills = slices.Clone(r.BonusSkills)
	return &c
}

// SortKey selects the field Rank orders by.
type SortKey string

const (
	SortOverall      SortKey = "overall"
	SortLikelihood   SortKey = "likelihood"
	SortCompensation SortKey = "compensation"
	SortSkill        SortKey = "skill"
)

func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortOverall, SortLikelihood, SortCompensation, SortSkill:
		return key, nil
	case "":
		return SortOverall, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

func (k SortKey) value(r *Result) float64 {
	switch k {
	case SortLikelihood:
		return r.HiringLikelihood
	case SortCompensation:
		return r.CompensationScore
	case SortSkill:
		return r.SkillScore
	default:
		return r.Overall
	}
}

// Rank returns the results ordered best first by key. Ties fall back to the overall
// score and then to the job key so the order is stable across runs.
func Rank(results []*Result, key SortKey) []*Result {
	ranked := slices.Clone(results)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if va, vb := key.value(a), key.value(b); va != vb {
			return va > vb
		}
		if a.Overall != b.Overall {
			return a.Overall > b.Overall
		}
		return a.JobKey < b.JobKey
	})
	return ranked
}
