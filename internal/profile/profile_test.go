package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/job-matcher/internal/skills"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr bool
	}{
		{name: "sample is valid", mutate: func(*Profile) {}},
		{name: "missing id", mutate: func(p *Profile) { p.ID = "" }, wantErr: true},
		{name: "negative salary", mutate: func(p *Profile) { p.MinSalary = -1 }, wantErr: true},
		{name: "bad email", mutate: func(p *Profile) { p.Email = "nope" }, wantErr: true},
		{name: "skill without name", mutate: func(p *Profile) {
			p.Skills = append(p.Skills, skills.Skill{Level: skills.Novice})
		}, wantErr: true},
		{name: "duplicate after normalization", mutate: func(p *Profile) {
			p.Skills = append(p.Skills, skills.Skill{Name: "py", Level: skills.Novice})
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := Sample()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVersionHash(t *testing.T) {
	t.Parallel()

	a, b := Sample(), Sample()
	assert.Equal(t, a.VersionHash(), b.VersionHash())

	b.MinSalary++
	assert.NotEqual(t, a.VersionHash(), b.VersionHash())
}

func TestYearsAcrossMergesOverlaps(t *testing.T) {
	t.Parallel()

	day := func(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }
	end := func(y int, m time.Month) *time.Time { v := day(y, m); return &v }
	now := day(2024, time.January)

	exps := []Experience{
		{Title: "A", Start: day(2016, time.January), End: end(2020, time.January)},
		{Title: "B", Start: day(2018, time.January), End: end(2021, time.January)},
		{Title: "C", Start: day(2022, time.January), Current: true},
		{Title: "future", Start: day(2030, time.January)},
	}

	got := YearsAcross(exps, now)
	assert.InDelta(t, 7.0, got, 0.01)
}

func TestParseDegree(t *testing.T) {
	t.Parallel()

	tests := map[string]DegreeLevel{
		"Bachelor's":           DegreeBachelor,
		"BSc Computer Science": DegreeBachelor,
		"Master of Science":    DegreeMaster,
		"MBA":                  DegreeMaster,
		"PhD":                  DegreeDoctorate,
		"Associate Degree":     DegreeAssociate,
		"Bootcamp certificate": DegreeNone,
	}

	for input, expect := range tests {
		assert.Equal(t, expect, ParseDegree(input), input)
	}
}

func TestLoadRoundTripFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"profile.json", "profile.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(Sample(), path))

		loaded, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, Sample().VersionHash(), loaded.VersionHash(), name)
	}
}

func TestLoadDefaultsAndAliases(t *testing.T) {
	t.Parallel()

	doc := `
id: jane
full_name: Jane Doe
min_salary: 100000
remote_preference: remote
skills:
  - name: Go
    level: beginner
  - name: Rust
`
	path := filepath.Join(t.TempDir(), "p.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RemoteOnly, p.RemotePreference)
	assert.Equal(t, skills.Novice, p.Skills[0].Level)
	assert.Equal(t, skills.Intermediate, p.Skills[1].Level)
	assert.Equal(t, []string{"go", "rust"}, p.SkillKeys())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "p.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"full_name":"No Id"}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
