package headhunter

import (
	"strings"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/skills"
)

// hh.ru publishes timestamps without a colon in the zone offset.
const timeLayout = "2006-01-02T15:04:05-0700"

type Vacancies struct {
	Items []*Vacancy
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type Salary struct {
	From     int    `json:"from,omitempty"`
	To       int    `json:"to,omitempty"`
	Currency string `json:"currency,omitempty"`
	Gross    bool   `json:"gross,omitempty"`
}

type Employer struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	Trusted      bool   `json:"trusted,omitempty"`
}

type Snippet struct {
	Requirement    string `json:"requirement,omitempty"`
	Responsibility string `json:"responsibility,omitempty"`
}

type Vacancy struct {
	ID           string   `json:"id,omitempty"`
	Name         string   `json:"name,omitempty"`
	Area         Named    `json:"area,omitempty"`
	HasTest      bool     `json:"has_test,omitempty"`
	Salary       *Salary  `json:"salary,omitempty"`
	Experience   Named    `json:"experience,omitempty"`
	Schedule     Named    `json:"schedule,omitempty"`
	Employer     Employer `json:"employer,omitempty"`
	AlternateURL string   `json:"alternate_url,omitempty"`
	Description  string   `json:"description,omitempty"`
	KeySkills    []Named  `json:"key_skills,omitempty"`
	Archived     bool     `json:"archived,omitempty"`
	Snippet      Snippet  `json:"snippet,omitempty"`
	PublishedAt  string   `json:"published_at,omitempty"`
}

// minYears maps the hh.ru experience dictionary to a minimum number of years.
var minYears = map[string]float64{
	"noExperience": 0,
	"between1And3": 1,
	"between3And6": 3,
	"moreThan6":    6,
}

var experienceLevel = map[string]string{
	"noExperience": "entry",
	"between1And3": "junior",
	"between3And6": "mid",
	"moreThan6":    "senior",
}

func (v *Vacancy) Remote() bool {
	return v.Schedule.ID == scheduleRemote
}

func (v *Vacancy) ToPosting() *jobs.Posting {
	p := &jobs.Posting{
		Provider:        Name,
		ID:              v.ID,
		Title:           v.Name,
		Company:         v.Employer.Name,
		Location:        v.Area.Name,
		Description:     v.text(),
		Remote:          v.Remote(),
		URL:             v.AlternateURL,
		MinYears:        minYears[v.Experience.ID],
		ExperienceLevel: experienceLevel[v.Experience.ID],
	}

	// Salaries on hh.ru are monthly.
	if v.Salary != nil && (v.Salary.From > 0 || v.Salary.To > 0) {
		p.Salary = &jobs.SalaryRange{Min: v.Salary.From * 12, Max: v.Salary.To * 12, Currency: v.Salary.Currency}
	}

	if len(v.KeySkills) > 0 {
		p.RequiredSkills = make(map[string]skills.Level, len(v.KeySkills))
		for _, s := range v.KeySkills {
			if name := strings.TrimSpace(s.Name); name != "" {
				p.RequiredSkills[name] = skills.Intermediate
			}
		}
	}

	if t, err := time.Parse(timeLayout, v.PublishedAt); err == nil {
		p.PostedAt = t.UTC()
	}

	return p
}

// text returns the description, falling back to the search snippet, without markup.
func (v *Vacancy) text() string {
	raw := v.Description
	if raw == "" {
		raw = strings.TrimSpace(v.Snippet.Requirement + " " + v.Snippet.Responsibility)
	}
	return providers.PlainText(raw)
}
