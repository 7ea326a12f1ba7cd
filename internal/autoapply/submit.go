package autoapply

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/spigell/job-matcher/internal/tracker"
	"github.com/spigell/job-matcher/internal/utils"
)

const InstructionsFile = "APPLICATION_INSTRUCTIONS.md"

// Submission describes what a Submitter did with an application.
type Submission struct {
	Reference string
	Note      string
}

// Submitter hands an approved application to a job board.
type Submitter interface {
	Submit(ctx context.Context, app *tracker.Application) (*Submission, error)
}

// ManualSubmitter writes step-by-step instructions for boards that offer no
// apply API. The user finishes the submission by hand.
type ManualSubmitter struct {
	Dir string
	now func() time.Time
}

func NewManualSubmitter(dir string) *ManualSubmitter {
	return &ManualSubmitter{Dir: dir, now: time.Now}
}

var instructionsTmpl = template.Must(template.New("instructions").Parse(`# Application: {{ .Title }}{{ with .Company }} at {{ . }}{{ end }}

Prepared: {{ .Prepared }}
Application id: {{ .ID }}
Job: {{ .JobID }}
{{- with .URL }}
Posting: {{ . }}
{{- end }}

## Steps

1. Open the posting{{ with .URL }} at {{ . }}{{ end }} and find the apply form.
{{- if .Resume }}
2. Attach the resume from {{ .Resume }}.
{{- else }}
2. Attach your current resume.
{{- end }}
{{- if .CoverLetter }}
3. Paste or attach the cover letter from {{ .CoverLetter }}.
{{- else }}
3. Add a short cover note if the form asks for one.
{{- end }}
4. Submit the form and keep the confirmation email.
5. Move the application forward with ` + "`job-matcher track --update {{ .ID }} --new-status UNDER_REVIEW`" + ` once you hear back.
`))

type instructions struct {
	ID, JobID, Title, Company, URL string
	Resume, CoverLetter            string
	Prepared                       string
}

func (m *ManualSubmitter) Submit(ctx context.Context, app *tracker.Application) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Dir == "" {
		return nil, fmt.Errorf("instructions directory is not configured")
	}

	data := instructions{
		ID:       app.ID,
		JobID:    app.JobID,
		Title:    app.Title(),
		Company:  app.Company(),
		Prepared: m.now().UTC().Format(time.RFC3339),
	}
	if data.Title == "" {
		data.Title = app.JobID
	}
	if app.Job != nil {
		data.URL = app.Job.URL
	}
	if app.Documents != nil {
		data.Resume = app.Documents.Resume
		data.CoverLetter = app.Documents.CoverLetter
	}

	var buf bytes.Buffer
	if err := instructionsTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}

	dir := filepath.Join(m.Dir, app.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create instructions directory: %w", err)
	}
	path := filepath.Join(dir, InstructionsFile)
	if err := utils.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write instructions: %w", err)
	}

	return &Submission{Reference: path, Note: "manual submission instructions written to " + path}, nil
}
