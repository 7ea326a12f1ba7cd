package tracker

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	Statuses   []Status
	Company    string
	Title      string
	ProfileID  string
	MinScore   float64
	ActiveOnly bool
}

func (f Filter) match(app *Application) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if app.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ActiveOnly && !app.Status.Active() {
		return false
	}
	if f.ProfileID != "" && app.ProfileID != f.ProfileID {
		return false
	}
	if f.Company != "" && !containsFold(app.Company(), f.Company) {
		return false
	}
	if f.Title != "" && !containsFold(app.Title(), f.Title) {
		return false
	}
	return app.Score() >= f.MinScore
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// SortKey orders List results.
type SortKey string

const (
	SortUpdated    SortKey = "updated"
	SortCreated    SortKey = "created"
	SortScore      SortKey = "score"
	SortLikelihood SortKey = "likelihood"
	SortCompany    SortKey = "company"
	SortStatus     SortKey = "status"
)

func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case SortUpdated, SortCreated, SortScore, SortLikelihood, SortCompany, SortStatus:
		return key, nil
	case "":
		return SortUpdated, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// less reports whether a sorts before b. Timestamps and scores sort descending.
func (k SortKey) less(a, b *Application) bool {
	switch k {
	case SortCreated:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortScore:
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
	case SortLikelihood:
		if a.Likelihood() != b.Likelihood() {
			return a.Likelihood() > b.Likelihood()
		}
	case SortCompany:
		if ca, cb := strings.ToLower(a.Company()), strings.ToLower(b.Company()); ca != cb {
			return ca < cb
		}
	case SortStatus:
		if a.Status != b.Status {
			return a.Status.Order() < b.Status.Order()
		}
	default:
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
	}
	return a.ID < b.ID
}

// List returns copies of the applications matching f, ordered by key.
func (t *Tracker) List(f Filter, key SortKey) []*Application {
	all := t.snapshot()

	out := all[:0]
	for _, app := range all {
		if f.match(app) {
			out = append(out, app)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return key.less(out[i], out[j]) })
	return out
}

// Top returns up to n active applications ordered by key.
func (t *Tracker) Top(n int, key SortKey) []*Application {
	apps := t.List(Filter{ActiveOnly: true}, key)
	if n >= 0 && len(apps) > n {
		apps = apps[:n]
	}
	return apps
}

type Stats struct {
	Total             int            `json:"total"`
	Active            int            `json:"active"`
	ByStatus          map[Status]int `json:"by_status"`
	Applied           int            `json:"applied"`
	Responded         int            `json:"responded"`
	ResponseRate      float64        `json:"response_rate"`
	AverageScore      float64        `json:"average_score"`
	AverageLikelihood float64        `json:"average_likelihood"`
}

// Stats summarizes the collection. Response rate is the share of applications that
// heard back among those that were applied.
func (t *Tracker) Stats() Stats {
	apps := t.snapshot()

	st := Stats{Total: len(apps), ByStatus: make(map[Status]int)}
	var scoreSum, likelihoodSum float64
	scored := 0

	for _, app := range apps {
		st.ByStatus[app.Status]++
		if app.Status.Active() {
			st.Active++
		}
		if app.Match != nil {
			scored++
			scoreSum += app.Match.Score
			likelihoodSum += app.Match.HiringLikelihood
		}
		if app.Reached(Applied) {
			st.Applied++
		}
		if app.Responded() {
			st.Responded++
		}
	}

	if scored > 0 {
		st.AverageScore = scoreSum / float64(scored)
		st.AverageLikelihood = likelihoodSum / float64(scored)
	}
	if st.Applied > 0 {
		st.ResponseRate = float64(st.Responded) / float64(st.Applied)
	}
	return st
}

var csvHeader = []string{
	"id", "job_id", "profile_id", "title", "company", "status", "score",
	"hiring_likelihood", "created_at", "updated_at", "applied_at", "simulated", "url",
}

// ExportCSV writes the applications as CSV with a header row.
func ExportCSV(w io.Writer, apps []*Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, app := range apps {
		appliedAt := ""
		if app.AppliedAt != nil {
			appliedAt = app.AppliedAt.Format(time.RFC3339)
		}
		url := ""
		if app.Job != nil {
			url = app.Job.URL
		}
		row := []string{
			app.ID,
			app.JobID,
			app.ProfileID,
			app.Title(),
			app.Company(),
			string(app.Status),
			strconv.FormatFloat(app.Score(), 'f', 3, 64),
			strconv.FormatFloat(app.Likelihood(), 'f', 3, 64),
			app.CreatedAt.Format(time.RFC3339),
			app.UpdatedAt.Format(time.RFC3339),
			appliedAt,
			strconv.FormatBool(app.Simulated),
			url,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
