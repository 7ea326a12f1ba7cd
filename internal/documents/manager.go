package documents

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/utils"
)

const (
	ResumesDir      = "resumes"
	CoverLettersDir = "cover_letters"
	IndexFile       = "documents_index.json"

	timestampLayout = "20060102_150405"
)

type Document struct {
	Kind    Kind
	Format  Format
	Path    string
	Content string
	// Base is the document before AI enhancement. It is empty when no
	// enhancement ran.
	Base string
}

// Set is the documents generated for one posting. Resume and CoverLetter are in
// the primary format; Extra holds the other requested formats.
type Set struct {
	JobKey           string
	Company          string
	Title            string
	MatchScore       float64
	HiringLikelihood float64
	Resume           *Document
	CoverLetter      *Document
	Extra            []*Document
}

// unwrapper is implemented by generators that decorate another generator.
type unwrapper interface {
	Unwrap() Generator
}

// Manager generates the documents of an application and writes them under Dir.
type Manager struct {
	Dir    string
	gen    Generator
	now    func() time.Time
	logger *zap.Logger
}

type ManagerOption func(*Manager)

func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

func NewManager(dir string, gen Generator, opts ...ManagerOption) *Manager {
	m := &Manager{Dir: dir, gen: gen, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.WithFields(m.logger)
	return m
}

// Generate writes a resume and a cover letter for req in every format. The first
// format is primary; the rest are rendered from the same source.
func (m *Manager) Generate(ctx context.Context, req Request, formats []Format) (*Set, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(formats) == 0 {
		formats = []Format{Markdown}
	}

	set := &Set{
		JobKey:  req.Posting.Key(),
		Company: req.Posting.Company,
		Title:   req.Posting.Title,
	}
	if req.Match != nil {
		set.MatchScore = req.Match.Overall
		set.HiringLikelihood = req.Match.HiringLikelihood
	}

	stamp := m.now().Format(timestampLayout)
	for _, kind := range []Kind{Resume, CoverLetter} {
		source, err := m.gen.Generate(ctx, kind, req)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", kind, err)
		}

		var base string
		if u, ok := m.gen.(unwrapper); ok {
			if base, err = u.Unwrap().Generate(ctx, kind, req); err != nil {
				return nil, fmt.Errorf("generate %s: %w", kind, err)
			}
		}

		for i, format := range formats {
			doc, err := m.write(kind, format, source, req, stamp)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				set.Extra = append(set.Extra, doc)
				continue
			}
			doc.Base = base
			if kind == Resume {
				set.Resume = doc
			} else {
				set.CoverLetter = doc
			}
		}
	}

	m.logger.Info("documents generated",
		zap.String(logger.FieldJobKey, set.JobKey),
		zap.String("resume", set.Resume.Path),
		zap.String("cover_letter", set.CoverLetter.Path),
	)
	return set, nil
}

func (m *Manager) write(kind Kind, format Format, source string, req Request, stamp string) (*Document, error) {
	title := req.Profile.FullName
	if kind == CoverLetter {
		title = "Cover letter: " + req.Posting.Title
	}

	content, err := Render(source, format, title)
	if err != nil {
		return nil, err
	}

	dir := ResumesDir
	if kind == CoverLetter {
		dir = CoverLettersDir
	}
	name := fmt.Sprintf("%s_%s_%s_%s.%s", kind, safeName(req.Posting.Company), safeName(req.Posting.Title), stamp, format.Ext())
	path := filepath.Join(m.Dir, dir, name)

	if err := utils.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", kind, err)
	}
	return &Document{Kind: kind, Format: format, Path: path, Content: content}, nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

type indexEntry struct {
	JobKey           string  `json:"job_key"`
	Company          string  `json:"company"`
	Title            string  `json:"title"`
	ResumePath       string  `json:"resume_path"`
	CoverLetterPath  string  `json:"cover_letter_path"`
	MatchScore       float64 `json:"match_score"`
	HiringLikelihood float64 `json:"hiring_likelihood"`
}

type index struct {
	GeneratedAt       time.Time    `json:"generated_at"`
	TotalApplications int          `json:"total_applications"`
	Applications      []indexEntry `json:"applications"`
}

// WriteIndex records the generated sets in Dir/documents_index.json and returns its path.
func (m *Manager) WriteIndex(sets []*Set) (string, error) {
	idx := index{GeneratedAt: m.now().UTC(), TotalApplications: len(sets), Applications: []indexEntry{}}
	for _, s := range sets {
		entry := indexEntry{
			JobKey:           s.JobKey,
			Company:          s.Company,
			Title:            s.Title,
			MatchScore:       s.MatchScore,
			HiringLikelihood: s.HiringLikelihood,
		}
		if s.Resume != nil {
			entry.ResumePath = s.Resume.Path
		}
		if s.CoverLetter != nil {
			entry.CoverLetterPath = s.CoverLetter.Path
		}
		idx.Applications = append(idx.Applications, entry)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return "", err
	}

	path := filepath.Join(m.Dir, IndexFile)
	if err := utils.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write documents index: %w", err)
	}
	return path, nil
}
