// Package jobs holds normalized job postings as returned by providers.
package jobs

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

const (
	KeyField     = "Key"
	CompanyField = "Company"
	IDField      = "ID"
)

// SalaryRange is a yearly salary range. Zero means the bound is unknown.
type SalaryRange struct {
	Min      int    `json:"min,omitempty" validate:"gte=0"`
	Max      int    `json:"max,omitempty" validate:"gte=0"`
	Currency string `json:"currency,omitempty"`
}

// Known reports whether at least one bound is present.
func (s *SalaryRange) Known() bool {
	return s != nil && (s.Min > 0 || s.Max > 0)
}

// Top returns the upper bound, falling back to the lower one.
func (s *SalaryRange) Top() int {
	if s == nil {
		return 0
	}
	if s.Max > 0 {
		return s.Max
	}
	return s.Min
}

func (s *SalaryRange) String() string {
	if !s.Known() {
		return "n/a"
	}
	return fmt.Sprintf("%d-%d %s", s.Min, s.Max, s.Currency)
}

// Posting is immutable after ingestion. RequiredSkills maps normalized skill keys
// to the minimum level the job asks for.
type Posting struct {
	Provider        string                  `json:"provider" validate:"required"`
	ID              string                  `json:"id" validate:"required"`
	Title           string                  `json:"title"`
	Company         string                  `json:"company"`
	Location        string                  `json:"location,omitempty"`
	Salary          *SalaryRange            `json:"salary,omitempty"`
	RequiredSkills  map[string]skills.Level `json:"required_skills,omitempty"`
	PreferredSkills []string                `json:"preferred_skills,omitempty"`
	MinDegree       profile.DegreeLevel     `json:"min_degree,omitempty"`
	MinYears        float64                 `json:"min_years,omitempty" validate:"gte=0"`
	ExperienceLevel string                  `json:"experience_level,omitempty"`
	Description     string                  `json:"description,omitempty"`
	Remote          bool                    `json:"remote"`
	URL             string                  `json:"url,omitempty"`
	PostedAt        time.Time               `json:"posted_at,omitzero"`
}

var validate = validator.New()

// Key is the global dedup key combining provider and provider-native id.
func (p *Posting) Key() string {
	return p.Provider + ":" + p.ID
}

func (p *Posting) Validate() error {
	if p == nil {
		return fmt.Errorf("posting is nil")
	}
	return validate.Struct(p)
}

// Requirements returns the required skills sorted by key.
func (p *Posting) Requirements() []skills.Requirement {
	keys := sortedKeys(p.RequiredSkills)
	reqs := make([]skills.Requirement, 0, len(keys))
	for _, k := range keys {
		reqs = append(reqs, skills.Requirement{Key: k, MinLevel: p.RequiredSkills[k]})
	}
	return reqs
}

// GetStringField returns the value of a named string field for exclusion lookups.
func (p *Posting) GetStringField(name string) string {
	switch name {
	case KeyField:
		return p.Key()
	case IDField:
		return p.ID
	case CompanyField:
		return p.Company
	default:
		return ""
	}
}

// Enrich fills derived fields from the description when the provider left them empty:
// required skills, minimum degree, minimum years and seniority.
func (p *Posting) Enrich(idx *skills.Index) {
	if idx == nil {
		idx = skills.Default()
	}
	if len(p.RequiredSkills) == 0 {
		found := idx.Extract(p.Title + " " + p.Description)
		if len(found) > 0 {
			p.RequiredSkills = make(map[string]skills.Level, len(found))
			for _, k := range found {
				p.RequiredSkills[k] = skills.Intermediate
			}
		}
	} else {
		normalized := make(map[string]skills.Level, len(p.RequiredSkills))
		for k, lvl := range p.RequiredSkills {
			if !lvl.Valid() {
				lvl = skills.Intermediate
			}
			key := idx.Normalize(k)
			if prev, ok := normalized[key]; !ok || lvl > prev {
				normalized[key] = lvl
			}
		}
		p.RequiredSkills = normalized
	}
	if p.MinDegree == profile.DegreeNone {
		p.MinDegree = InferMinDegree(p.Description)
	}
	if p.MinYears == 0 {
		p.MinYears = InferRequiredYears(p.Description)
	}
	if p.ExperienceLevel == "" {
		if s, ok := InferSeniority(p.Title); ok {
			p.ExperienceLevel = s.Name
		}
	}
}
