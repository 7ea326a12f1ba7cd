package lever

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/providers"
)

const postingsBody = `[
  {
    "id": "a1b2",
    "text": "Platform Engineer",
    "hostedUrl": "https://jobs.lever.co/globex/a1b2",
    "createdAt": 1714564800000,
    "descriptionPlain": "Run our Kubernetes clusters.",
    "workplaceType": "remote",
    "categories": {"location": "Anywhere", "team": "Infra", "commitment": "Full-time"},
    "lists": [{"text": "Requirements", "content": "<li>Terraform</li><li>Go</li>"}],
    "salaryRange": {"min": 10000, "max": 12000, "currency": "USD", "interval": "per-month-salary"}
  },
  {
    "id": "c3d4",
    "text": "Designer",
    "hostedUrl": "https://jobs.lever.co/globex/c3d4",
    "createdAt": 1714651200000,
    "description": "<p>Design <b>things</b></p>",
    "workplaceType": "onsite",
    "categories": {"location": "Berlin"}
  }
]`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/globex":
			if r.URL.Query().Get("mode") != "json" {
				t.Errorf("json mode must be requested")
			}
			fmt.Fprint(w, postingsBody)
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newClient(srv *httptest.Server, companies ...string) *Client {
	c := New(Config{Companies: companies}, zap.NewNop())
	c.APIURL = srv.URL
	return c
}

func TestSearchConvertsPostings(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	postings, err := newClient(srv, "globex").Search(context.Background(), providers.Query{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(postings))
	}

	p := postings[0]
	if p.Key() != "lever:a1b2" || p.Company != "globex" || !p.Remote {
		t.Fatalf("unexpected posting: %+v", p)
	}
	if p.Description != "Run our Kubernetes clusters. Requirements: Terraform Go" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if p.Salary == nil || p.Salary.Min != 120000 || p.Salary.Max != 144000 || p.Salary.Currency != "USD" {
		t.Fatalf("unexpected salary: %+v", p.Salary)
	}
	if !p.PostedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected posted at: %s", p.PostedAt)
	}

	d := postings[1]
	if d.Remote || d.Salary != nil || d.Description != "Design things" {
		t.Fatalf("unexpected second posting: %+v", d)
	}
}

func TestSearchFiltersAndLimits(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	postings, err := newClient(srv, "globex").Search(context.Background(), providers.Query{Text: "terraform"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(postings) != 1 || postings[0].ID != "a1b2" {
		t.Fatalf("expected the platform role only, got %d", len(postings))
	}

	postings, err = newClient(srv, "globex").Search(context.Background(), providers.Query{Limit: 1})
	if err != nil || len(postings) != 1 {
		t.Fatalf("expected limit to apply, got %d (%v)", len(postings), err)
	}
}

func TestSearchRateLimited(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	_, err := newClient(srv, "busy").Search(context.Background(), providers.Query{})
	if !errors.Is(err, providers.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}
