// Package matrix renders the tracked applications as a comparison table.
package matrix

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/likelihood"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/tracker"
	"github.com/spigell/job-matcher/internal/utils"
)

var ErrUnsupportedFormat = errors.New("unsupported matrix format")

type Format string

const (
	Markdown Format = "markdown"
	JSON     Format = "json"
	CSV      Format = "csv"
	HTML     Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Markdown, "md":
		return Markdown, nil
	case JSON, CSV, HTML:
		return f, nil
	case "":
		return HTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) Ext() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// Row is one application as the matrix shows it. Scores are in [0,1].
type Row struct {
	ID            string
	Company       string
	Title         string
	Location      string
	Status        tracker.Status
	Score         float64
	Likelihood    float64
	Rating        string
	Compensation  float64
	AppliedAt     *time.Time
	Responded     bool
	Provider      string
	URL           string
	MatchedSkills []string
	MissingSkills []string
}

func rowOf(app *tracker.Application) Row {
	r := Row{
		ID:         app.ID,
		Company:    app.Company(),
		Title:      app.Title(),
		Status:     app.Status,
		Score:      app.Score(),
		Likelihood: app.Likelihood(),
		Rating:     likelihood.Rating(app.Likelihood()),
		AppliedAt:  app.AppliedAt,
		Responded:  app.Responded(),
	}
	if app.Job != nil {
		r.Location = app.Job.Location
		r.Provider = app.Job.Provider
		r.URL = app.Job.URL
	}
	if app.Match != nil {
		r.Compensation = app.Match.Compensation
		r.MatchedSkills = app.Match.MatchedSkills
		r.MissingSkills = app.Match.MissingSkills
	}
	return r
}

// Summary aggregates the rows of a matrix.
type Summary struct {
	Total             int
	Applied           int
	Responses         int
	AverageScore      float64
	AverageLikelihood float64
	ByStatus          map[tracker.Status]int
	ByRating          map[string]int
}

func summarize(rows []Row) Summary {
	s := Summary{
		Total:    len(rows),
		ByStatus: make(map[tracker.Status]int),
		ByRating: make(map[string]int),
	}
	for _, r := range rows {
		s.ByStatus[r.Status]++
		s.ByRating[r.Rating]++
		s.AverageScore += r.Score
		s.AverageLikelihood += r.Likelihood
		if r.Status != tracker.Identified {
			s.Applied++
		}
		if r.Responded {
			s.Responses++
		}
	}
	if s.Total > 0 {
		s.AverageScore /= float64(s.Total)
		s.AverageLikelihood /= float64(s.Total)
	}
	return s
}

// Generator writes matrices. Applications are rendered in the order given.
type Generator struct {
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logger.WithFields(g.logger)
	return g
}

func (g *Generator) Render(w io.Writer, apps []*tracker.Application, format Format) error {
	rows := make([]Row, 0, len(apps))
	for _, app := range apps {
		rows = append(rows, rowOf(app))
	}
	generated := g.now()

	switch format {
	case Markdown:
		return writeMarkdown(w, rows, generated)
	case JSON:
		return writeJSON(w, rows, generated)
	case CSV:
		return writeCSV(w, rows)
	case HTML:
		return writeHTML(w, rows, generated)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteFile renders the matrix into dir/application_matrix_<timestamp>.<ext> and
// returns the path.
func (g *Generator) WriteFile(dir string, apps []*tracker.Application, format Format) (string, error) {
	var buf strings.Builder
	if err := g.Render(&buf, apps, format); err != nil {
		return "", err
	}

	name := fmt.Sprintf("application_matrix_%s.%s", g.now().Format("20060102_150405"), format.Ext())
	path := filepath.Join(dir, name)
	if err := utils.WriteFileAtomic(path, []byte(buf.String()), 0o644); err != nil {
		return "", fmt.Errorf("write matrix: %w", err)
	}

	g.logger.Info("matrix generated",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("applications", len(apps)),
	)
	return path, nil
}

// StatusLabel turns READY_TO_APPLY into "Ready To Apply".
func StatusLabel(s tracker.Status) string {
	words := strings.Split(strings.ToLower(string(s)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func appliedDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
