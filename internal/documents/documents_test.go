package documents

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

var now = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

func date(year int, month time.Month) *time.Time {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func testRequest() Request {
	p := &profile.Profile{
		ID:        "p1",
		FullName:  "Jane Doe",
		Email:     "jane@example.com",
		Location:  "Berlin",
		GitHubURL: "https://github.com/jane",
		Summary:   "Builds reliable platforms.",
		Skills: []skills.Skill{
			{Name: "Excel", Level: skills.Advanced, Years: 10},
			{Name: "Golang", Level: skills.Expert, Years: 6},
			{Name: "Kubernetes", Level: skills.Advanced, Years: 4},
			{Name: "PostgreSQL", Level: skills.Intermediate, Years: 3},
		},
		Experiences: []profile.Experience{
			{
				Title:        "Accountant",
				Company:      "Ledger Ltd",
				Start:        time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC),
				End:          date(2016, time.December),
				Achievements: []string{"Closed books monthly"},
			},
			{
				Title:        "Platform Engineer",
				Company:      "Initech",
				Start:        time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
				Current:      true,
				Achievements: []string{"Migrated 40 services to Kubernetes", "Cut deploy time in half"},
				SkillsUsed:   []string{"Go"},
			},
		},
		Education: []profile.Education{{Institution: "TU Berlin", Degree: "Master", Field: "Computer Science", Graduated: date(2011, time.July)}},
	}

	posting := &jobs.Posting{
		Provider:       "lever",
		ID:             "42",
		Title:          "Senior Go Engineer",
		Company:        "Acme",
		Location:       "Remote",
		Description:    "Fintech platform running Golang services on Kubernetes.",
		RequiredSkills: map[string]skills.Level{"go": skills.Advanced, "kubernetes": skills.Intermediate},
	}

	return Request{
		Profile: p,
		Posting: posting,
		Match:   &matching.Result{Overall: 0.82, HiringLikelihood: 0.7, MatchedSkills: []string{"go", "kubernetes"}},
	}
}

func TestTemplateResume(t *testing.T) {
	t.Parallel()

	gen := NewTemplateGenerator(WithClock(clock))
	got, err := gen.Generate(context.Background(), Resume, testRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "# Jane Doe\n"))
	assert.Contains(t, got, "jane@example.com | Berlin")
	assert.Contains(t, got, "[GitHub](https://github.com/jane)")
	assert.Contains(t, got, "Excited to bring these skills to Acme.")
	assert.Contains(t, got, "**Programming Languages:** Golang")
	assert.Contains(t, got, "**Cloud & DevOps:** Kubernetes")
	assert.Contains(t, got, "**Databases:** PostgreSQL")
	assert.Contains(t, got, "**Tools & Technologies:** Excel")
	assert.Contains(t, got, "- Migrated 40 services to **Kubernetes**")
	assert.Contains(t, got, "**Initech** | January 2017 - Present")
	assert.Contains(t, got, "### Master in Computer Science")
	assert.Contains(t, got, "Graduated: July 2011")
	assert.NotContains(t, got, "\n\n\n")

	assert.Less(t, strings.Index(got, "### Platform Engineer"), strings.Index(got, "### Accountant"),
		"relevant experience comes first")

	again, err := gen.Generate(context.Background(), Resume, testRequest())
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestTemplateCoverLetter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tone   Tone
		opener string
	}{
		{tone: "", opener: "I am excited to apply for the Senior Go Engineer position at Acme."},
		{tone: Enthusiastic, opener: "When I discovered the Senior Go Engineer opening at Acme"},
		{tone: Conversational, opener: "I have been following Acme's work for some time"},
	}

	for _, tt := range tests {
		req := testRequest()
		req.Tone = tt.tone

		got, err := NewTemplateGenerator(WithClock(clock)).Generate(context.Background(), CoverLetter, req)
		require.NoError(t, err)

		assert.Contains(t, got, tt.opener)
		assert.Contains(t, got, "March 1, 2025")
		assert.Contains(t, got, "**Re: Senior Go Engineer Position**")
		assert.Contains(t, got, "My expertise spans Golang, Kubernetes")
		assert.Contains(t, got, "In my current role as Accountant at Ledger Ltd, I have closed books monthly.")
		assert.Contains(t, got, "work at the intersection of finance and technology")
		assert.Contains(t, got, "Before that, I gained valuable experience at Initech where I built strong foundations in Go.")
	}
}

func TestGenerateRequiresInputs(t *testing.T) {
	t.Parallel()

	_, err := NewTemplateGenerator().Generate(context.Background(), Resume, Request{Posting: &jobs.Posting{}})
	assert.Error(t, err)

	_, err = NewTemplateGenerator().Generate(context.Background(), Kind("memo"), testRequest())
	assert.Error(t, err)
}

func TestParseFormatAndTone(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("MD")
	require.NoError(t, err)
	assert.Equal(t, Markdown, f)
	assert.Equal(t, "md", f.Ext())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	tone, err := ParseTone("")
	require.NoError(t, err)
	assert.Equal(t, Professional, tone)

	_, err = ParseTone("sarcastic")
	assert.ErrorIs(t, err, ErrUnknownTone)
}

func TestRender(t *testing.T) {
	t.Parallel()

	source := "# Jane <Doe>\n\n## Skills\n\n**Go:** fast\nsecond line\n\n- one [site](https://x.io)\n- two\n"

	html, err := Render(source, HTML, "Resume")
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Resume</title>")
	assert.Contains(t, html, "<h1>Jane &lt;Doe&gt;</h1>")
	assert.Contains(t, html, "<h2>Skills</h2>")
	assert.Contains(t, html, "<p><strong>Go:</strong> fast<br>\nsecond line</p>")
	assert.Contains(t, html, `<li>one <a href="https://x.io">site</a></li>`)

	text, err := Render(source, Text, "")
	require.NoError(t, err)
	assert.Contains(t, text, "JANE <DOE>\n")
	assert.Contains(t, text, "Go: fast")
	assert.Contains(t, text, "- one site (https://x.io)")
	assert.NotContains(t, text, "**")

	md, err := Render(source, Markdown, "")
	require.NoError(t, err)
	assert.Equal(t, source, md)

	_, err = Render(source, Format("pdf"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type fakeModel struct {
	response string
	err      error
	message  string
}

func (f *fakeModel) GenerateContent(_ context.Context, _, message string) (string, error) {
	f.message = message
	return f.response, f.err
}

func (f *fakeModel) Model() string { return "fake" }

func TestAIEnhancer(t *testing.T) {
	t.Parallel()

	base := NewTemplateGenerator(WithClock(clock))
	model := &fakeModel{response: "```markdown\n# Jane Doe\n\nBetter resume\n```"}

	got, err := NewAIEnhancer(base, model, nil).Generate(context.Background(), Resume, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe\n\nBetter resume\n", got)
	assert.Contains(t, model.message, "Senior Go Engineer position at Acme")
	assert.Contains(t, model.message, "Fintech platform")
	assert.Contains(t, model.message, "## Professional Summary")
}

func TestAIEnhancerFallsBackToTemplate(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	base := NewTemplateGenerator(WithClock(clock))
	want, err := base.Generate(context.Background(), CoverLetter, testRequest())
	require.NoError(t, err)

	for _, model := range []*fakeModel{{err: errors.New("quota")}, {response: "  "}} {
		got, err := NewAIEnhancer(base, model, zap.New(core)).Generate(context.Background(), CoverLetter, testRequest())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 2, logs.Len())
}

func TestManagerWritesDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := NewTemplateGenerator(WithClock(clock))
	enhancer := NewAIEnhancer(base, &fakeModel{response: "# Jane Doe\n\nPolished"}, nil)
	m := NewManager(dir, enhancer, WithManagerClock(clock))

	set, err := m.Generate(context.Background(), testRequest(), []Format{Markdown, HTML})
	require.NoError(t, err)

	assert.Equal(t, "lever:42", set.JobKey)
	assert.Equal(t, 0.82, set.MatchScore)
	assert.Equal(t, filepath.Join(dir, ResumesDir, "resume_Acme_Senior_Go_Engineer_20250301_093000.md"), set.Resume.Path)
	assert.Equal(t, filepath.Join(dir, CoverLettersDir, "cover_letter_Acme_Senior_Go_Engineer_20250301_093000.md"), set.CoverLetter.Path)
	require.Len(t, set.Extra, 2)
	assert.Equal(t, HTML, set.Extra[0].Format)
	assert.True(t, strings.HasSuffix(set.Extra[0].Path, ".html"))

	written, err := os.ReadFile(set.Resume.Path)
	require.NoError(t, err)
	assert.Equal(t, "# Jane Doe\n\nPolished\n", string(written))

	require.NotEmpty(t, set.Resume.Base)
	diff := Diff(set.Resume.Base, set.Resume.Content)
	assert.True(t, diff.Changed())
	assert.Contains(t, diff.Lines, "+ Polished")

	path, err := m.WriteIndex([]*Set{set})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var idx struct {
		TotalApplications int `json:"total_applications"`
		Applications      []struct {
			JobKey     string `json:"job_key"`
			ResumePath string `json:"resume_path"`
		} `json:"applications"`
	}
	require.NoError(t, json.Unmarshal(raw, &idx))
	assert.Equal(t, 1, idx.TotalApplications)
	assert.Equal(t, set.Resume.Path, idx.Applications[0].ResumePath)
}

func TestManagerWithoutEnhancerHasNoBase(t *testing.T) {
	t.Parallel()

	m := NewManager(t.TempDir(), NewTemplateGenerator(WithClock(clock)), WithManagerClock(clock))
	set, err := m.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)
	assert.Empty(t, set.Resume.Base)
	assert.Equal(t, Markdown, set.Resume.Format)
	assert.Empty(t, set.Extra)
}

func TestDiff(t *testing.T) {
	t.Parallel()

	d := Diff("a\nb\nc\n", "a\nB\nc\nd\n")
	assert.Equal(t, 2, d.Insertions)
	assert.Equal(t, 1, d.Deletions)
	assert.Equal(t, "- b\n+ B\n+ d", d.String())

	assert.False(t, Diff("same\n", "same\n").Changed())
}
