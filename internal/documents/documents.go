// Package documents produces tailored resumes and cover letters for a posting.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrUnknownTone       = errors.New("unknown tone")
)

type Format string

const (
	Markdown Format = "markdown"
	HTML     Format = "html"
	Text     Format = "txt"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", string(Markdown):
		return Markdown, nil
	case string(HTML):
		return HTML, nil
	case string(Text), "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext is the file extension used for the format.
func (f Format) Ext() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

type Kind string

const (
	Resume      Kind = "resume"
	CoverLetter Kind = "cover_letter"
)

type Tone string

const (
	Professional   Tone = "professional"
	Enthusiastic   Tone = "enthusiastic"
	Conversational Tone = "conversational"
)

func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return Professional, nil
	case Professional, Enthusiastic, Conversational:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
	}
}

// Request is everything a generator may use. Match is optional.
type Request struct {
	Profile *profile.Profile
	Posting *jobs.Posting
	Match   *matching.Result
	Tone    Tone
}

func (r Request) validate() error {
	if r.Profile == nil {
		return errors.New("profile is required")
	}
	if r.Posting == nil {
		return errors.New("posting is required")
	}
	return nil
}

// Generator writes the markdown source of a document. Other formats are rendered
// from that source.
type Generator interface {
	Generate(ctx context.Context, kind Kind, req Request) (string, error)
}
