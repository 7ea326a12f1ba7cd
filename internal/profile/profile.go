// Package profile holds the candidate profile model and its loading and validation.
package profile

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/job-matcher/internal/skills"
)

// RemotePreference says whether a candidate accepts remote or onsite work.
type RemotePreference string

const (
	RemoteOnly RemotePreference = "REMOTE_ONLY"
	Flexible   RemotePreference = "FLEXIBLE"
	OnsiteOnly RemotePreference = "ONSITE_ONLY"
)

// AllowsRemote reports whether remote jobs are acceptable.
func (p RemotePreference) AllowsRemote() bool {
	return p == RemoteOnly || p == Flexible
}

// ParseRemotePreference accepts the canonical names and the short forms used by
// older profile files (remote, flexible, hybrid, on_site).
func ParseRemotePreference(s string) (RemotePreference, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "REMOTE_ONLY", "REMOTE":
		return RemoteOnly, nil
	case "FLEXIBLE", "HYBRID", "":
		return Flexible, nil
	case "ONSITE_ONLY", "ONSITE", "ON_SITE":
		return OnsiteOnly, nil
	default:
		return "", fmt.Errorf("unknown remote preference %q", s)
	}
}

func (p *RemotePreference) UnmarshalText(text []byte) error {
	parsed, err := ParseRemotePreference(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Experience is a single work history entry. A nil End means the role is current.
type Experience struct {
	Title        string     `json:"title" yaml:"title"`
	Company      string     `json:"company" yaml:"company"`
	Start        time.Time  `json:"start" yaml:"start"`
	End          *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	Current      bool       `json:"current,omitempty" yaml:"current,omitempty"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Achievements []string   `json:"achievements,omitempty" yaml:"achievements,omitempty"`
	SkillsUsed   []string   `json:"skills_used,omitempty" yaml:"skills_used,omitempty"`
}

// Until returns the end of the role, using now for current roles.
func (e Experience) Until(now time.Time) time.Time {
	if e.End == nil || e.Current {
		return now
	}
	return *e.End
}

type Education struct {
	Institution string     `json:"institution" yaml:"institution"`
	Degree      string     `json:"degree" yaml:"degree"`
	Field       string     `json:"field_of_study,omitempty" yaml:"field_of_study,omitempty"`
	Graduated   *time.Time `json:"graduation_date,omitempty" yaml:"graduation_date,omitempty"`
}

// Profile is an immutable snapshot of a candidate. Changing anything requires a new
// snapshot, which gets a new VersionHash.
type Profile struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	FullName     string `json:"full_name" yaml:"full_name"`
	Email        string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	Phone        string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Location     string `json:"location,omitempty" yaml:"location,omitempty"`
	LinkedInURL  string `json:"linkedin_url,omitempty" yaml:"linkedin_url,omitempty"`
	GitHubURL    string `json:"github_url,omitempty" yaml:"github_url,omitempty"`
	PortfolioURL string `json:"portfolio_url,omitempty" yaml:"portfolio_url,omitempty"`
	Summary      string `json:"summary,omitempty" yaml:"summary,omitempty"`

	Skills         []skills.Skill `json:"skills" yaml:"skills" validate:"dive"`
	Experiences    []Experience   `json:"experiences" yaml:"experiences"`
	Education      []Education    `json:"education" yaml:"education"`
	Certifications []string       `json:"certifications,omitempty" yaml:"certifications,omitempty"`
	Languages      []string       `json:"languages,omitempty" yaml:"languages,omitempty"`

	DesiredRoles     []string         `json:"desired_roles,omitempty" yaml:"desired_roles,omitempty"`
	DesiredLocations []string         `json:"desired_locations,omitempty" yaml:"desired_locations,omitempty"`
	MinSalary        int              `json:"min_salary" yaml:"min_salary" validate:"gte=0"`
	RemotePreference RemotePreference `json:"remote_preference" yaml:"remote_preference"`
}

var validate = validator.New()

// Validate checks the structural invariants of a profile: identity present,
// min salary non-negative, skill names present and unique after normalization.
func (p *Profile) Validate() error {
	if p == nil {
		return fmt.Errorf("profile is nil")
	}
	if err := validate.Struct(p); err != nil {
		return err
	}

	seen := make(map[string]string, len(p.Skills))
	idx := skills.Default()
	for _, s := range p.Skills {
		key := idx.Normalize(s.Name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("duplicate skill %q and %q normalize to %q", prev, s.Name, key)
		}
		seen[key] = s.Name
	}

	return nil
}

// VersionHash identifies this snapshot. Two profiles with the same content share it.
func (p *Profile) VersionHash() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Level.MarshalText fails only for unset levels, which Normalize removes.
		data = []byte(fmt.Sprintf("%+v", *p))
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

// TotalYears returns experience years with overlapping periods counted once.
func (p *Profile) TotalYears(now time.Time) float64 {
	return YearsAcross(p.Experiences, now)
}

// SkillKeys returns the normalized keys of the profile skills in profile order.
func (p *Profile) SkillKeys() []string {
	idx := skills.Default()
	keys := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		keys = append(keys, idx.Normalize(s.Name))
	}
	return keys
}

// Normalize fills defaults that loaders leave empty.
func (p *Profile) Normalize() {
	if p.RemotePreference == "" {
		p.RemotePreference = Flexible
	}
	for i := range p.Skills {
		if !p.Skills[i].Level.Valid() {
			p.Skills[i].Level = skills.Intermediate
		}
	}
}
