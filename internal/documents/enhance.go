package documents

import (
	"context"
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/logger"
)

const (
	enhanceSystem         = "You are an expert career writer. You edit documents without inventing facts."
	maxDescriptionRunes   = 1500
	defaultEnhanceLogSize = 200
)

var (
	//go:embed prompts/resume.md
	resumePrompt string
	//go:embed prompts/cover_letter.md
	coverLetterPrompt string
)

// AIEnhancer rewrites the output of another Generator with an AI model. When the
// model fails, the unenhanced document is returned and a warning is logged.
type AIEnhancer struct {
	next      Generator
	model     ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewAIEnhancer(next Generator, model ai.Generator, l *zap.Logger) *AIEnhancer {
	return &AIEnhancer{
		next:      next,
		model:     model,
		logger:    logger.WithFields(l),
		maxLogLen: defaultEnhanceLogSize,
	}
}

// Unwrap returns the generator whose output is enhanced.
func (e *AIEnhancer) Unwrap() Generator {
	return e.next
}

func (e *AIEnhancer) Generate(ctx context.Context, kind Kind, req Request) (string, error) {
	base, err := e.next.Generate(ctx, kind, req)
	if err != nil {
		return "", err
	}

	fields := append(logger.AIFields("", e.model.Model()),
		zap.String(logger.FieldJobKey, req.Posting.Key()),
		zap.String("document", string(kind)),
	)

	enhanced, err := e.model.GenerateContent(ctx, enhanceSystem, enhancePrompt(kind, req, base))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		e.logger.Warn("AI enhancement failed, keeping template document", append(fields, zap.Error(err))...)
		return base, nil
	}

	enhanced = stripFence(enhanced)
	if enhanced == "" {
		e.logger.Warn("AI enhancement returned nothing, keeping template document", fields...)
		return base, nil
	}

	e.logger.Debug("document enhanced", append(fields,
		logger.Preview("response_preview", enhanced, e.maxLogLen),
	)...)
	return enhanced + "\n", nil
}

func enhancePrompt(kind Kind, req Request, content string) string {
	template := resumePrompt
	if kind == CoverLetter {
		template = coverLetterPrompt
	}

	description := []rune(req.Posting.Description)
	if len(description) > maxDescriptionRunes {
		description = description[:maxDescriptionRunes]
	}

	tone := req.Tone
	if tone == "" {
		tone = Professional
	}

	return strings.NewReplacer(
		"{{TITLE}}", req.Posting.Title,
		"{{COMPANY}}", req.Posting.Company,
		"{{TONE}}", string(tone),
		"{{DESCRIPTION}}", string(description),
		"{{CONTENT}}", content,
	).Replace(template)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
