package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/skills"
)

func posting(provider, id, company string) *Posting {
	return &Posting{Provider: provider, ID: id, Title: "Engineer", Company: company}
}

func TestPostingKeyAndValidate(t *testing.T) {
	t.Parallel()

	p := posting("lever", "42", "Acme")
	assert.Equal(t, "lever:42", p.Key())
	require.NoError(t, p.Validate())

	p.Provider = ""
	require.Error(t, p.Validate())
}

func TestSalaryRange(t *testing.T) {
	t.Parallel()

	var absent *SalaryRange
	assert.False(t, absent.Known())
	assert.Equal(t, 0, absent.Top())
	assert.Equal(t, "n/a", absent.String())

	onlyMin := &SalaryRange{Min: 100}
	assert.True(t, onlyMin.Known())
	assert.Equal(t, 100, onlyMin.Top())
	assert.Equal(t, 200, (&SalaryRange{Min: 100, Max: 200}).Top())
}

func TestPostingsExcludeKeepsOrder(t *testing.T) {
	t.Parallel()

	list := &Postings{Items: []*Posting{
		posting("hh", "1", "A"),
		posting("hh", "2", "B"),
		posting("hh", "3", "A"),
		posting("hh", "4", "C"),
	}}

	removed := list.Exclude(CompanyField, []string{"A"})
	assert.Equal(t, []string{"hh:1", "hh:3"}, removed)
	require.Equal(t, 2, list.Len())
	assert.Equal(t, "2", list.Items[0].ID)
	assert.Equal(t, "4", list.Items[1].ID)

	assert.Nil(t, list.Exclude(KeyField, nil))
}

func TestPostingsMergeDedups(t *testing.T) {
	t.Parallel()

	list := &Postings{}
	added := list.Merge([]*Posting{posting("hh", "1", "A"), posting("lever", "1", "A")})
	assert.Equal(t, 2, added)

	updated := posting("hh", "1", "A")
	updated.Title = "Updated"
	added = list.Merge([]*Posting{updated, posting("hh", "2", "B")})
	assert.Equal(t, 1, added)
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, "Updated", list.FindByKey("hh:1").Title)
	assert.Nil(t, list.FindByKey("hh:9"))
}

func TestInferSeniority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		name  string
		ok    bool
	}{
		{title: "Senior Software Engineer", name: "senior", ok: true},
		{title: "Sr. Backend Developer", name: "senior", ok: true},
		{title: "Staff Engineer, Platform", name: "staff", ok: true},
		{title: "Team Lead (Go)", name: "lead", ok: true},
		{title: "Junior QA", name: "junior", ok: true},
		{title: "Software Engineer", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			t.Parallel()
			got, ok := InferSeniority(tt.title)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, got.Name)
		})
	}
}

func TestInferRequiredYears(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5.0, InferRequiredYears("You have 5+ years of experience with Go"))
	assert.Equal(t, 3.0, InferRequiredYears("At least 3 years in backend"))
	assert.Equal(t, 0.0, InferRequiredYears("Great team and snacks"))
}

func TestInferMinDegree(t *testing.T) {
	t.Parallel()

	assert.Equal(t, profile.DegreeBachelor, InferMinDegree("Bachelor's degree in CS required"))
	assert.Equal(t, profile.DegreeMaster, InferMinDegree("Must have a Master's in statistics"))
	assert.Equal(t, profile.DegreeNone, InferMinDegree("A bachelor's degree is nice to have"))
}

func TestEnrichDerivesFromDescription(t *testing.T) {
	t.Parallel()

	p := &Posting{
		Provider:    "greenhouse",
		ID:          "7",
		Title:       "Senior Platform Engineer",
		Description: "Kubernetes and Golang. 6+ years of experience. Bachelor's degree required.",
	}
	p.Enrich(nil)

	assert.Equal(t, map[string]skills.Level{"go": skills.Intermediate, "kubernetes": skills.Intermediate}, p.RequiredSkills)
	assert.Equal(t, profile.DegreeBachelor, p.MinDegree)
	assert.Equal(t, 6.0, p.MinYears)
	assert.Equal(t, "senior", p.ExperienceLevel)
}

func TestEnrichNormalizesProvidedSkills(t *testing.T) {
	t.Parallel()

	p := &Posting{Provider: "file", ID: "1", RequiredSkills: map[string]skills.Level{
		"JS":         skills.Novice,
		"javascript": skills.Advanced,
		"Rust":       skills.LevelUnknown,
	}}
	p.Enrich(skills.Default())

	assert.Equal(t, map[string]skills.Level{"javascript": skills.Advanced, "rust": skills.Intermediate}, p.RequiredSkills)
}

func TestCatalogAddAndLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	catalog := NewCatalog(dir)

	empty, err := catalog.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	first := posting("hh", "1", "A")
	first.PostedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first.RequiredSkills = map[string]skills.Level{"go": skills.Expert}

	added, err := catalog.Add([]*Posting{first, posting("hh", "2", "B")})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = catalog.Add([]*Posting{posting("hh", "2", "B")})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	loaded, err := catalog.Load()
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
	got := loaded.FindByKey("hh:1")
	require.NotNil(t, got)
	assert.Equal(t, skills.Expert, got.RequiredSkills["go"])
	assert.True(t, got.PostedAt.Equal(first.PostedAt))
}

func TestReadFileAcceptsListAndObject(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	list := filepath.Join(dir, "list.json")
	obj := filepath.Join(dir, "obj.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"provider":"file","id":"1","title":"A"}]`), 0o644))
	require.NoError(t, os.WriteFile(obj, []byte(`{"items":[{"provider":"file","id":"2","title":"B"}]}`), 0o644))

	fromList, err := ReadFile(list)
	require.NoError(t, err)
	require.Len(t, fromList, 1)
	assert.Equal(t, "file:1", fromList[0].Key())

	fromObj, err := ReadFile(obj)
	require.NoError(t, err)
	require.Len(t, fromObj, 1)
	assert.Equal(t, "file:2", fromObj[0].Key())
}

func TestReadFileSkipsNullEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "jobs.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"provider":"file","id":"1","title":"A"}, null]`), 0o644))

	items, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, items, 1)

	list := &Postings{}
	assert.Equal(t, 1, list.Merge(append(items, nil)))
	assert.Equal(t, 1, list.Len())
}

func TestExcludedPostingsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exclude.json")

	missing, err := GetExcludedPostingsFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, missing.Items)

	list := &Postings{Items: []*Posting{posting("hh", "1", "A")}}
	excluded := list.ToExcluded(ExcludeActorUser, "not interested")
	require.NoError(t, excluded.ToFile(path))

	loaded, err := GetExcludedPostingsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hh:1"}, loaded.Keys())
	assert.Equal(t, "not interested", loaded.Items[0].Reason)
}
