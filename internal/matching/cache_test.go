package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReusesAndInvalidates(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	cache := NewCache()

	first, err := cache.Score(e, testProfile(), testPosting())
	require.NoError(t, err)
	second, err := cache.Score(e, testProfile(), testPosting())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	hits, misses := cache.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	changed := testProfile()
	changed.MinSalary = 100000
	third, err := cache.Score(e, changed, testPosting())
	require.NoError(t, err)
	assert.Equal(t, 1.0, third.SalaryScore)
	assert.NotEqual(t, first.ProfileVersion, third.ProfileVersion)

	job := testPosting()
	job.Title = "Senior Software Engineer"
	_, err = cache.Score(e, testProfile(), job)
	require.NoError(t, err)

	assert.Equal(t, 3, cache.Len())
}

func TestCacheCopiesAreIndependent(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	cache := NewCache()

	r, err := cache.Score(e, testProfile(), testPosting())
	require.NoError(t, err)
	r.MatchedSkills[0] = "tampered"
	r.Overall = 42

	again, err := cache.Score(e, testProfile(), testPosting())
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, again.MatchedSkills)
	assert.NotEqual(t, 42.0, again.Overall)
}

func TestCacheConcurrentUse(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	cache := NewCache()

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Score(e, testProfile(), testPosting())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	hits, misses := cache.Stats()
	assert.Equal(t, 16, hits+misses)
	assert.Equal(t, 1, cache.Len())
}

func TestRank(t *testing.T) {
	t.Parallel()

	results := []*Result{
		{JobKey: "a", Overall: 0.5, HiringLikelihood: 0.9, CompensationScore: 0.1, SkillScore: 0.2},
		{JobKey: "b", Overall: 0.8, HiringLikelihood: 0.4, CompensationScore: 0.7, SkillScore: 0.9},
		{JobKey: "c", Overall: 0.8, HiringLikelihood: 0.6, CompensationScore: 0.7, SkillScore: 0.1},
	}

	keys := func(rs []*Result) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.JobKey)
		}
		return out
	}

	assert.Equal(t, []string{"b", "c", "a"}, keys(Rank(results, SortOverall)))
	assert.Equal(t, []string{"a", "c", "b"}, keys(Rank(results, SortLikelihood)))
	assert.Equal(t, []string{"b", "c", "a"}, keys(Rank(results, SortCompensation)))
	assert.Equal(t, []string{"b", "a", "c"}, keys(Rank(results, SortSkill)))
	assert.Equal(t, "a", results[0].JobKey, "input order must be untouched")

	key, err := ParseSortKey("Likelihood")
	require.NoError(t, err)
	assert.Equal(t, SortLikelihood, key)

	_, err = ParseSortKey("salary")
	require.Error(t, err)
}
