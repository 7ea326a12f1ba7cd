package headhunter

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/skills"
)

func vacancyJSON(id, name, area, schedule string) map[string]any {
	return map[string]any{
		"id":            id,
		"name":          name,
		"area":          map[string]any{"id": "1", "name": area},
		"schedule":      map[string]any{"id": schedule, "name": schedule},
		"experience":    map[string]any{"id": "between3And6"},
		"employer":      map[string]any{"id": "e" + id, "name": "Company " + id},
		"salary":        map[string]any{"from": 200000, "to": nil, "currency": "RUR"},
		"alternate_url": "https://hh.ru/vacancy/" + id,
		"snippet": map[string]any{
			"requirement":    "Experience with <highlighttext>Go</highlighttext> and PostgreSQL",
			"responsibility": "Build services",
		},
		"key_skills":   []map[string]any{{"name": "Go"}, {"name": "Kubernetes"}},
		"published_at": "2024-05-20T10:00:00+0300",
	}
}

func newServer(t *testing.T, pages [][]map[string]any, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != SearchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		body := map[string]any{"items": pages[page], "found": 3, "pages": len(pages), "page": page, "per_page": 2}

		if page%2 == 1 {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			defer gz.Close()
			_ = json.NewEncoder(gz).Encode(body)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestSearchReadsAllPages(t *testing.T) {
	var requests atomic.Int32
	srv := newServer(t, [][]map[string]any{
		{vacancyJSON("1", "Go Developer", "Moscow", "fullDay"), vacancyJSON("2", "Senior Go Developer", "Remote", "remote")},
		{vacancyJSON("3", "Backend Engineer", "Saint Petersburg", "fullDay")},
	}, &requests)
	defer srv.Close()

	c := New(Config{Areas: []int{1, 2}}, "", zap.NewNop())
	c.APIURL = srv.URL

	postings, err := c.Search(context.Background(), providers.Query{Text: "golang"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(postings) != 3 {
		t.Fatalf("expected 3 postings, got %d", len(postings))
	}
	if requests.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", requests.Load())
	}

	p := postings[0]
	if p.Key() != "headhunter:1" || p.Company != "Company 1" || p.Location != "Moscow" {
		t.Fatalf("unexpected posting identity: %+v", p)
	}
	if p.Salary == nil || p.Salary.Min != 2400000 || p.Salary.Max != 0 {
		t.Fatalf("expected yearly salary from monthly, got %+v", p.Salary)
	}
	if p.MinYears != 3 || p.ExperienceLevel != "mid" {
		t.Fatalf("unexpected experience: %v %q", p.MinYears, p.ExperienceLevel)
	}
	if p.Description != "Experience with Go and PostgreSQL Build services" {
		t.Fatalf("unexpected description: %q", p.Description)
	}
	if p.RequiredSkills["Go"] != skills.Intermediate || len(p.RequiredSkills) != 2 {
		t.Fatalf("unexpected skills: %v", p.RequiredSkills)
	}
	if !p.PostedAt.Equal(time.Date(2024, 5, 20, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected posted at: %s", p.PostedAt)
	}
	if !postings[1].Remote || postings[0].Remote {
		t.Fatalf("remote flag not mapped from schedule")
	}
}

func TestSearchStopsAtLimit(t *testing.T) {
	var requests atomic.Int32
	srv := newServer(t, [][]map[string]any{
		{vacancyJSON("1", "A", "Moscow", "fullDay"), vacancyJSON("2", "B", "Moscow", "fullDay")},
		{vacancyJSON("3", "C", "Moscow", "fullDay")},
	}, &requests)
	defer srv.Close()

	c := New(Config{}, "", zap.NewNop())
	c.APIURL = srv.URL

	postings, err := c.Search(context.Background(), providers.Query{Text: "go", Limit: 1})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(postings) != 1 || requests.Load() != 1 {
		t.Fatalf("expected one posting from one request, got %d postings and %d requests", len(postings), requests.Load())
	}
}

func TestSearchFiltersLocation(t *testing.T) {
	var requests atomic.Int32
	srv := newServer(t, [][]map[string]any{
		{vacancyJSON("1", "A", "Moscow", "fullDay"), vacancyJSON("2", "B", "Kazan", "remote"), vacancyJSON("3", "C", "Kazan", "fullDay")},
	}, &requests)
	defer srv.Close()

	c := New(Config{}, "", zap.NewNop())
	c.APIURL = srv.URL

	tests := []struct {
		name  string
		query providers.Query
		want  []string
	}{
		{name: "location only", query: providers.Query{Location: "moscow"}, want: []string{"1"}},
		{name: "remote anywhere", query: providers.Query{Location: "moscow", Remote: true}, want: []string{"2"}},
		{name: "no filter", query: providers.Query{}, want: []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			postings, err := c.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(postings) != len(tt.want) {
				t.Fatalf("expected %d postings, got %d", len(tt.want), len(postings))
			}
			for i, id := range tt.want {
				if postings[i].ID != id {
					t.Fatalf("posting %d: expected id %s, got %s", i, id, postings[i].ID)
				}
			}
		})
	}
}

func TestSearchStatusErrors(t *testing.T) {
	tests := map[int]error{
		http.StatusTooManyRequests:    providers.ErrRateLimited,
		http.StatusServiceUnavailable: providers.ErrProviderUnavailable,
	}

	for status, want := range tests {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			}))
			defer srv.Close()

			c := New(Config{}, "token", zap.NewNop())
			c.APIURL = srv.URL

			_, err := c.Search(context.Background(), providers.Query{Text: "go"})
			if !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
		})
	}
}

func TestSearchSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "custom-agent" {
			t.Errorf("unexpected user agent %q", got)
		}
		if got := r.URL.Query().Get("schedule"); got != scheduleRemote {
			t.Errorf("expected remote schedule, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []any{}, "pages": 1})
	}))
	defer srv.Close()

	c := New(Config{UserAgent: "custom-agent"}, "secret", zap.NewNop())
	c.APIURL = srv.URL

	if _, err := c.Search(context.Background(), providers.Query{Remote: true}); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestBuildParams(t *testing.T) {
	q := buildParams(&SearchParams{
		Text:      "golang",
		Areas:     []int{1, 113},
		Schedules: []string{"remote", "flexible"},
		PerPage:   "50",
	})

	if q.Get("text") != "golang" || q.Get("per_page") != "50" {
		t.Fatalf("unexpected scalar params: %v", q)
	}
	if areas := q["area"]; len(areas) != 2 || areas[1] != "113" {
		t.Fatalf("unexpected areas: %v", areas)
	}
	if len(q["schedule"]) != 2 {
		t.Fatalf("unexpected schedules: %v", q["schedule"])
	}
	if q.Has("period") || q.Has("order_by") {
		t.Fatalf("zero values must be omitted: %v", q)
	}
}
