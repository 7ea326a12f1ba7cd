package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	log "github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/profile"
)

const (
	defaultMaxLogLength      = 200
	defaultTone              = "Friendly"
	none                     = "none"
	maxUserInstructionRunes  = 500
	systemInstruction        = "You are a recruiting assistant. You compare candidate profiles with job postings and answer strictly in the requested JSON schema."
	userInstructionsBullet   = "  - "
	fallbackPromptTemplate   = "Profile:\n{{PROFILE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nJSON Response:"
	maxSingleLineFieldRunes  = 300
	maxKeywordListFieldRunes = 300
)

//go:embed prompt.md
var promptTemplate string

// PromptOverrides tune the evaluation prompt. Every value is user supplied and
// sanitized before it reaches the model.
type PromptOverrides struct {
	ExtraCriteria     string `mapstructure:"extra-criteria" json:"extra-criteria,omitempty"`
	DealBreakers      string `mapstructure:"deal-breakers" json:"deal-breakers,omitempty"`
	CustomKeywords    string `mapstructure:"keywords" json:"keywords,omitempty"`
	Tone              string `mapstructure:"tone" json:"tone,omitempty"`
	RegionConstraints string `mapstructure:"region-constraints" json:"region-constraints,omitempty"`
	UserInstructions  string `mapstructure:"user-instructions" json:"user-instructions,omitempty"`
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Matcher asks Gemini for a fit assessment of a posting.
type Matcher struct {
	generator contentGenerator
	minScore  float64
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

var _ ai.Matcher = (*Matcher)(nil)

func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, l *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		logger:    log.WithAI(l, ProviderName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) SetPromptOverrides(o PromptOverrides) {
	m.overrides = o
}

// Evaluate scores the posting for the profile. Assessments below the minimum
// score are never a fit, whatever the model said.
func (m *Matcher) Evaluate(ctx context.Context, p *profile.Profile, posting *jobs.Posting) (*ai.FitAssessment, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if posting == nil {
		return nil, fmt.Errorf("posting is required")
	}

	profileJSON, err := json.MarshalIndent(profilePayload(p), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	postingJSON, err := json.MarshalIndent(posting, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := buildPrompt(string(profileJSON), string(postingJSON), m.overrides)

	fields := []zap.Field{
		zap.String(log.FieldJobKey, posting.Key()),
		zap.String(log.FieldProfileID, p.ID),
	}

	m.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		log.Preview("prompt_preview", prompt, m.maxLogLen),
	)...)

	raw, err := m.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		log.Preview("response_preview", raw, m.maxLogLen),
	)...)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore {
		m.logger.Debug("set fit to false by score threshold", append(fields,
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)...)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

// profilePayload leaves out contact details; the model does not need them.
func profilePayload(p *profile.Profile) map[string]any {
	return map[string]any{
		"id":                p.ID,
		"summary":           p.Summary,
		"location":          p.Location,
		"skills":            p.Skills,
		"experiences":       p.Experiences,
		"education":         p.Education,
		"certifications":    p.Certifications,
		"languages":         p.Languages,
		"desired_roles":     p.DesiredRoles,
		"desired_locations": p.DesiredLocations,
		"min_salary":        p.MinSalary,
		"remote_preference": p.RemotePreference,
	}
}

func buildPrompt(profileJSON, postingJSON string, o PromptOverrides) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = fallbackPromptTemplate
	}

	tone := singleLine(o.Tone, maxSingleLineFieldRunes)
	if tone == none {
		tone = defaultTone
	}

	r := strings.NewReplacer(
		"{{EXTRA_CRITERIA}}", singleLine(o.ExtraCriteria, maxSingleLineFieldRunes),
		"{{DEAL_BREAKERS}}", singleLine(o.DealBreakers, maxSingleLineFieldRunes),
		"{{CUSTOM_KEYWORDS}}", keywordList(o.CustomKeywords),
		"{{TONE}}", tone,
		"{{REGION_CONSTRAINTS}}", singleLine(o.RegionConstraints, maxSingleLineFieldRunes),
		"{{USER_INSTRUCTIONS}}", userInstructions(o.UserInstructions),
		"{{PROFILE_JSON}}", profileJSON,
		"{{POSTING_JSON}}", postingJSON,
	)
	return r.Replace(template)
}

// neutralize keeps user text from posing as a prompt section header.
var neutralize = strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")")

func singleLine(s string, limit int) string {
	s = strings.Join(strings.Fields(neutralize.Replace(s)), " ")
	if s == "" {
		return none
	}
	return truncateRunes(s, limit)
}

func keywordList(s string) string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.Join(strings.Fields(neutralize.Replace(kw)), " "); kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return none
	}
	return truncateRunes(strings.Join(out, ", "), maxKeywordListFieldRunes)
}

// userInstructions renders free-form instructions as a bullet list, one bullet
// per non-empty line, capped at maxUserInstructionRunes of content.
func userInstructions(s string) string {
	s = truncateRunes(strings.TrimSpace(neutralize.Replace(s)), maxUserInstructionRunes)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, userInstructionsBullet+line)
		}
	}
	if len(lines) == 0 {
		return userInstructionsBullet + none
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:     coerceBool(data["fit"]),
		Score:   math.Max(0, math.Min(1, score)),
		Reason:  coerceString(data["reason"]),
		Message: coerceString(data["message"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
