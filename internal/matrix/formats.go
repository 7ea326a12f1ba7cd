package matrix

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/job-matcher/internal/tracker"
)

// ratings lists the likelihood labels from best to worst.
var ratings = []struct {
	Label string
	Range string
	Color string
}{
	{"Excellent", "90%+", "#4caf50"},
	{"High", "75-89%", "#8bc34a"},
	{"Good", "60-74%", "#ffeb3b"},
	{"Moderate", "40-59%", "#ff9800"},
	{"Low", "<40%", "#f44336"},
}

var statusColors = map[tracker.Status]string{
	tracker.Identified:           "#e3f2fd",
	tracker.ResumeGenerated:      "#e8f5e9",
	tracker.CoverLetterGenerated: "#e8f5e9",
	tracker.ReadyToApply:         "#fff3e0",
	tracker.Applied:              "#fff9c4",
	tracker.UnderReview:          "#f3e5f5",
	tracker.InterviewScheduled:   "#e1f5fe",
	tracker.Rejected:             "#ffebee",
	tracker.OfferReceived:        "#c8e6c9",
	tracker.Withdrawn:            "#eceff1",
}

func ratingColor(label string) string {
	for _, r := range ratings {
		if r.Label == label {
			return r.Color
		}
	}
	return "#f44336"
}

// cell keeps a value from breaking the markdown table.
func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

func writeMarkdown(w io.Writer, rows []Row, generated time.Time) error {
	s := summarize(rows)

	var b strings.Builder
	b.WriteString("# Job Application Tracking Matrix\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.Format(time.DateTime))
	fmt.Fprintf(&b, "**Total Applications:** %d\n\n", s.Total)
	b.WriteString("## Applications\n\n")
	b.WriteString("| Company | Title | Location | Status | Match | Likelihood | Applied |\n")
	b.WriteString("|---------|-------|----------|--------|-------|------------|---------|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s (%s) | %s |\n",
			cell(r.Company), cell(r.Title), cell(r.Location), StatusLabel(r.Status),
			percent(r.Score), percent(r.Likelihood), r.Rating, cell(appliedDate(r.AppliedAt)))
	}

	b.WriteString("\n## Summary\n\n### By Status\n\n")
	for _, status := range tracker.AllStatuses() {
		if n := s.ByStatus[status]; n > 0 {
			fmt.Fprintf(&b, "- **%s:** %d\n", StatusLabel(status), n)
		}
	}

	b.WriteString("\n### Likelihood Distribution\n\n")
	for _, r := range ratings {
		fmt.Fprintf(&b, "- **%s (%s):** %d\n", r.Label, r.Range, s.ByRating[r.Label])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonApplication struct {
	ID                     string         `json:"id"`
	Company                string         `json:"company"`
	Title                  string         `json:"title"`
	Location               string         `json:"location"`
	Status                 tracker.Status `json:"status"`
	MatchScore             float64        `json:"match_score"`
	HiringLikelihood       float64        `json:"hiring_likelihood"`
	HiringLikelihoodRating string         `json:"hiring_likelihood_rating"`
	CompensationScore      float64        `json:"compensation_score"`
	AppliedDate            *time.Time     `json:"applied_date"`
	ResponseReceived       bool           `json:"response_received"`
	Source                 string         `json:"source"`
	SourceURL              string         `json:"source_url"`
	MatchedSkills          []string       `json:"matched_skills"`
	MissingSkills          []string       `json:"missing_skills"`
}

type jsonSummary struct {
	AverageMatchScore       float64                `json:"average_match_score"`
	AverageHiringLikelihood float64                `json:"average_hiring_likelihood"`
	ByStatus                map[tracker.Status]int `json:"by_status"`
}

type jsonMatrix struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	TotalApplications int               `json:"total_applications"`
	Summary           jsonSummary       `json:"summary"`
	Applications      []jsonApplication `json:"applications"`
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func writeJSON(w io.Writer, rows []Row, generated time.Time) error {
	s := summarize(rows)
	out := jsonMatrix{
		GeneratedAt:       generated,
		TotalApplications: s.Total,
		Summary: jsonSummary{
			AverageMatchScore:       round3(s.AverageScore),
			AverageHiringLikelihood: round3(s.AverageLikelihood),
			ByStatus:                s.ByStatus,
		},
		Applications: make([]jsonApplication, 0, len(rows)),
	}
	for _, r := range rows {
		out.Applications = append(out.Applications, jsonApplication{
			ID:                     r.ID,
			Company:                r.Company,
			Title:                  r.Title,
			Location:               r.Location,
			Status:                 r.Status,
			MatchScore:             round3(r.Score),
			HiringLikelihood:       round3(r.Likelihood),
			HiringLikelihoodRating: r.Rating,
			CompensationScore:      round3(r.Compensation),
			AppliedDate:            r.AppliedAt,
			ResponseReceived:       r.Responded,
			Source:                 r.Provider,
			SourceURL:              r.URL,
			MatchedSkills:          nonNil(r.MatchedSkills),
			MissingSkills:          nonNil(r.MissingSkills),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var csvHeader = []string{
	"ID", "Company", "Title", "Location", "Status",
	"Match Score (%)", "Hiring Likelihood (%)", "Likelihood Rating",
	"Compensation Score", "Applied Date", "Response Received",
	"Source", "URL", "Matched Skills", "Missing Skills",
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows {
		responded := "No"
		if r.Responded {
			responded = "Yes"
		}
		record := []string{
			r.ID,
			r.Company,
			r.Title,
			r.Location,
			string(r.Status),
			strconv.FormatFloat(r.Score*100, 'f', 1, 64),
			strconv.FormatFloat(r.Likelihood*100, 'f', 1, 64),
			r.Rating,
			strconv.FormatFloat(r.Compensation, 'f', 2, 64),
			appliedDate(r.AppliedAt),
			responded,
			r.Provider,
			r.URL,
			strings.Join(r.MatchedSkills, "; "),
			strings.Join(r.MissingSkills, "; "),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var htmlPage = template.Must(template.New("matrix").Funcs(template.FuncMap{
	"percent":     percent,
	"statusLabel": StatusLabel,
	"statusColor": func(s tracker.Status) template.CSS { return template.CSS(statusColors[s]) },
	"ratingColor": func(label string) template.CSS { return template.CSS(ratingColor(label)) },
	"applied": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return appliedDate(t)
	},
	"comp": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Job Application Matrix</title>
<style>
body { font-family: sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
.container { max-width: 1400px; margin: 0 auto; }
.summary { display: flex; gap: 20px; margin-bottom: 20px; flex-wrap: wrap; }
.stat-card { background: white; padding: 15px 25px; border-radius: 8px; }
.stat-card .value { font-size: 2em; font-weight: bold; }
table { width: 100%; border-collapse: collapse; background: white; }
th { background: #2196f3; color: white; padding: 12px 15px; text-align: left; }
td { padding: 12px 15px; border-bottom: 1px solid #eee; }
.legend { display: flex; gap: 15px; margin-top: 20px; flex-wrap: wrap; }
.legend-color { display: inline-block; width: 14px; height: 14px; border-radius: 3px; }
</style>
</head>
<body>
<div class="container">
<h1>Job Application Tracking Matrix</h1>
<p>Generated: {{ .Generated }}</p>
<div class="summary">
<div class="stat-card"><h3>Total Applications</h3><div class="value">{{ .Summary.Total }}</div></div>
<div class="stat-card"><h3>Applied</h3><div class="value">{{ .Summary.Applied }}</div></div>
<div class="stat-card"><h3>Responses</h3><div class="value">{{ .Summary.Responses }}</div></div>
<div class="stat-card"><h3>Avg. Likelihood</h3><div class="value">{{ percent .Summary.AverageLikelihood }}</div></div>
</div>
<table id="matrix">
<thead>
<tr><th>Company</th><th>Title</th><th>Location</th><th>Status</th><th>Match</th><th>Hiring Likelihood</th><th>Comp. Score</th><th>Applied</th><th>Response</th><th>Link</th></tr>
</thead>
<tbody>
{{ range .Rows }}<tr>
<td>{{ .Company }}</td>
<td>{{ .Title }}</td>
<td>{{ .Location }}</td>
<td style="background-color: {{ statusColor .Status }}">{{ statusLabel .Status }}</td>
<td>{{ percent .Score }}</td>
<td style="border-left: 4px solid {{ ratingColor .Rating }}">{{ percent .Likelihood }} ({{ .Rating }})</td>
<td>{{ comp .Compensation }}</td>
<td>{{ applied .AppliedAt }}</td>
<td>{{ if .Responded }}yes{{ else }}-{{ end }}</td>
<td>{{ if .URL }}<a href="{{ .URL }}" target="_blank">View</a>{{ else }}-{{ end }}</td>
</tr>
{{ end }}</tbody>
</table>
<div class="legend">
<strong>Likelihood Ratings:</strong>
{{ range .Ratings }}<span><span class="legend-color" style="background: {{ .Color }}"></span> {{ .Label }} ({{ .Range }})</span>
{{ end }}</div>
</div>
</body>
</html>
`))

func writeHTML(w io.Writer, rows []Row, generated time.Time) error {
	return htmlPage.Execute(w, struct {
		Generated string
		Summary   Summary
		Rows      []Row
		Ratings   any
	}{
		Generated: generated.Format(time.DateTime),
		Summary:   summarize(rows),
		Rows:      rows,
		Ratings:   ratings,
	})
}
