package greenhouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/providers"
)

const boardBody = `{
  "jobs": [
    {
      "id": 101,
      "title": "Senior Go Engineer",
      "updated_at": "2024-05-01T12:00:00-04:00",
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/101",
      "location": {"name": "Remote - US"},
      "content": "&lt;p&gt;We use &lt;strong&gt;Go&lt;/strong&gt; and Kubernetes.&lt;/p&gt;&lt;ul&gt;&lt;li&gt;5+ years of experience&lt;/li&gt;&lt;li&gt;Bachelor's degree required&lt;/li&gt;&lt;/ul&gt;"
    },
    {
      "id": 102,
      "title": "Office Manager",
      "updated_at": "2024-05-02T12:00:00Z",
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/102",
      "location": {"name": "Berlin"},
      "content": "&lt;p&gt;Keep the office running.&lt;/p&gt;"
    }
  ]
}`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/acme/jobs":
			if r.URL.Query().Get("content") != "true" {
				t.Errorf("content must be requested")
			}
			fmt.Fprint(w, boardBody)
		case "/down/jobs":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newClient(srv *httptest.Server, boards ...string) *Client {
	c := New(Config{Boards: boards}, zap.NewNop())
	c.APIURL = srv.URL
	return c
}

func TestSearchConvertsJobs(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	postings, err := newClient(srv, "acme").Search(context.Background(), providers.Query{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.Key() != "greenhouse:101" || p.Company != "acme" || !p.Remote {
		t.Fatalf("unexpected posting: %+v", p)
	}
	want := "We use Go and Kubernetes. 5+ years of experience Bachelor's degree required"
	if p.Description != want {
		t.Fatalf("unexpected description:\n got %q\nwant %q", p.Description, want)
	}
	if p.PostedAt.Hour() != 16 {
		t.Fatalf("expected posted at in UTC, got %s", p.PostedAt)
	}
}

func TestSearchFiltersQuery(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	tests := []struct {
		name  string
		query providers.Query
		want  int
	}{
		{name: "text in title", query: providers.Query{Text: "go engineer"}, want: 1},
		{name: "text in description", query: providers.Query{Text: "kubernetes"}, want: 1},
		{name: "remote only", query: providers.Query{Remote: true}, want: 1},
		{name: "location", query: providers.Query{Location: "berlin"}, want: 1},
		{name: "limit", query: providers.Query{Limit: 1}, want: 1},
		{name: "nothing matches", query: providers.Query{Text: "rust"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postings, err := newClient(srv, "acme").Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(postings) != tt.want {
				t.Fatalf("expected %d postings, got %d", tt.want, len(postings))
			}
		})
	}
}

func TestSearchBoardFailures(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	postings, err := newClient(srv, "down", "acme").Search(context.Background(), providers.Query{})
	if err != nil {
		t.Fatalf("one healthy board is enough, got %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected postings from the healthy board, got %d", len(postings))
	}

	_, err = newClient(srv, "down").Search(context.Background(), providers.Query{})
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}

	_, err = newClient(srv).Search(context.Background(), providers.Query{})
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected unavailable without boards, got %v", err)
	}
}
