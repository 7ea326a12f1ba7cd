package documents

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/spigell/job-matcher/internal/skills"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("documents").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/*.tmpl"))

var templateNames = map[Kind]string{
	Resume:      "resume.md.tmpl",
	CoverLetter: "cover_letter.md.tmpl",
}

// TemplateGenerator fills built-in markdown templates. It needs no network access
// and is deterministic for a fixed clock.
type TemplateGenerator struct {
	idx *skills.Index
	now func() time.Time
}

type TemplateOption func(*TemplateGenerator)

func WithIndex(idx *skills.Index) TemplateOption {
	return func(g *TemplateGenerator) { g.idx = idx }
}

func WithClock(now func() time.Time) TemplateOption {
	return func(g *TemplateGenerator) { g.now = now }
}

func NewTemplateGenerator(opts ...TemplateOption) *TemplateGenerator {
	g := &TemplateGenerator{idx: skills.Default(), now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *TemplateGenerator) Generate(ctx context.Context, kind Kind, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		return "", err
	}

	name, ok := templateNames[kind]
	if !ok {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, tailor(req, g.idx, g.now())); err != nil {
		return "", fmt.Errorf("render %s: %w", kind, err)
	}
	return tidy(buf.String()), nil
}

var blankLines = regexp.MustCompile(`\n{3,}`)

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")) + "\n"
}
