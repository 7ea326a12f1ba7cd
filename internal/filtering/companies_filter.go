package filtering

import (
	"context"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

type companiesFilter struct {
	companies map[string]bool
}

// NewExcludedCompanies creates a filter that removes postings by companies configured
// under apply.exclude.companies. Names are compared case-insensitively.
func NewExcludedCompanies(companies []string) Filter {
	set := make(map[string]bool, len(companies))
	for _, c := range companies {
		if c = normalizeCompany(c); c != "" {
			set[c] = true
		}
	}
	return &companiesFilter{companies: set}
}

func normalizeCompany(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate() error { return nil }

func (f *companiesFilter) Apply(_ context.Context, p *jobs.Postings) (*jobs.Postings, Step, error) {
	initial := p.Len()
	if len(f.companies) == 0 {
		return p, newStep(initial, p), nil
	}

	p.Keep(func(posting *jobs.Posting) bool {
		return !f.companies[normalizeCompany(posting.GetStringField(jobs.CompanyField))]
	})

	return p, newStep(initial, p), nil
}
