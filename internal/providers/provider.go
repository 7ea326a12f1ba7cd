package providers

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("provider rate limited")
)

type Query struct {
	Text     string
	Location string
	Remote   bool
	// Limit caps postings per provider. Zero means no cap.
	Limit int
}

// Matches applies the query to a posting on the client side, for boards that
// cannot filter server-side. Every word of Text must occur in the title or the
// description. Remote asks for remote postings only. Location must match unless
// the posting is remote and remote postings were asked for.
func (q Query) Matches(title, description, location string, remote bool) bool {
	if q.Remote && !remote {
		return false
	}
	if q.Location != "" && !(q.Remote && remote) && !containsFold(location, q.Location) {
		return false
	}
	haystack := strings.ToLower(title + " " + description)
	for _, word := range strings.Fields(strings.ToLower(q.Text)) {
		if !strings.Contains(haystack, word) {
			return false
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

// Provider searches one job board and returns normalized postings.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]*jobs.Posting, error)
}

// Error is a failure of a single provider. It never aborts an aggregation.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the failure is one of the expected provider
// conditions rather than a bug or a cancelled search.
func (e *Error) Recoverable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimited)
}

// StatusError maps an unexpected HTTP status to the provider sentinels.
func StatusError(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, resp.Status)
	default:
		return fmt.Errorf("bad status: %s", resp.Status)
	}
}

// Body returns the response body, decompressed when the server answered with gzip.
func Body(resp *http.Response) (io.ReadCloser, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return resp.Body, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return readCloser{Reader: gz, close: func() error {
		gz.Close()
		return resp.Body.Close()
	}}, nil
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

// Unavailable stands in for boards that are configured but have no client.
type Unavailable struct {
	name   string
	reason string
}

func NewUnavailable(name, reason string) *Unavailable {
	return &Unavailable{name: name, reason: reason}
}

func (u *Unavailable) Name() string {
	return u.name
}

func (u *Unavailable) Search(context.Context, Query) ([]*jobs.Posting, error) {
	return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, u.reason)
}
