package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/documents"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/providers/indeed"
	"github.com/spigell/job-matcher/internal/skills"
	"github.com/spigell/job-matcher/internal/tracker"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)

	var c *Config
	require.NoError(t, v.Unmarshal(&c))
	require.NotNil(t, c)
	return c
}

func TestDefaultConfigIsValid(t *testing.T) {
	c := defaultConfig(t)
	require.NoError(t, c.Validate())

	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, []string{"headhunter", "greenhouse", "lever"}, c.Providers.Enabled)
	assert.Equal(t, time.Hour, c.Apply.Window)
	assert.Equal(t, 5*time.Second, c.Apply.Delay)
	assert.True(t, c.Apply.DryRun)
	assert.Equal(t, "gemini-2.5-pro", c.AI.Gemini.Model)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = " " }},
		{"unknown provider", func(c *Config) { c.Providers.Enabled = []string{"monster"} }},
		{"weights do not sum to one", func(c *Config) { c.Scoring.Weights.Skill = 0.9 }},
		{"zero rate limit", func(c *Config) { c.Apply.RateLimit = 0 }},
		{"zero window", func(c *Config) { c.Apply.Window = 0 }},
		{"negative delay", func(c *Config) { c.Apply.Delay = -time.Second }},
		{"fit score above one", func(c *Config) { c.AI.MinimumFitScore = 1.5 }},
		{"unknown ai provider", func(c *Config) { c.AI.Provider = "openai" }},
		{"missing section", func(c *Config) { c.Matrix = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig(t)
			tt.modify(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigInvalid))
		})
	}
}

func TestBuildProviders(t *testing.T) {
	c := defaultConfig(t)

	list, err := buildProviders(c.Providers, []string{"lever", " Lever ", "indeed", "file"}, zap.NewNop())
	require.NoError(t, err)

	names := make([]string, 0, len(list))
	for _, p := range list {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"lever", "indeed", "file"}, names)

	_, isIndeed := list[1].(*indeed.Client)
	assert.True(t, isIndeed)
	_, isStub := list[1].(*providers.Unavailable)
	assert.False(t, isStub)

	c.Providers.Indeed.APIKeyFile = filepath.Join(t.TempDir(), "missing")
	_, err = buildProviders(c.Providers, []string{"indeed"}, zap.NewNop())
	assert.Error(t, err)

	_, err = buildProviders(c.Providers, []string{"monster"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrConfigInvalid)

	c.Providers.Enabled = nil
	_, err = buildProviders(c.Providers, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestKnownProvider(t *testing.T) {
	for _, name := range []string{"headhunter", "greenhouse", "LEVER", "file", "glassdoor"} {
		assert.True(t, knownProvider(name), name)
	}
	assert.False(t, knownProvider("monster"))
}

func TestRedacted(t *testing.T) {
	c := defaultConfig(t)
	c.Providers.Headhunter.Token = "hh-secret"
	c.Providers.LinkedIn.APIKey = "li-secret"
	c.AI.Gemini = &gemini.Config{APIKey: "gm-secret", Model: "gemini-2.5-pro"}

	r := redacted(c)

	assert.Equal(t, redactedValue, r.Providers.Headhunter.Token)
	assert.Equal(t, redactedValue, r.Providers.LinkedIn.APIKey)
	assert.Empty(t, r.Providers.Indeed.APIKey)
	assert.Equal(t, redactedValue, r.AI.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", r.AI.Gemini.Model)

	assert.Equal(t, "hh-secret", c.Providers.Headhunter.Token)
	assert.Equal(t, "gm-secret", c.AI.Gemini.APIKey)
	assert.Nil(t, redacted(nil))
}

func TestAPIKeyPath(t *testing.T) {
	tests := map[string]string{
		"gemini":     "ai.gemini.api-key",
		"Headhunter": "providers.headhunter.token",
		"hh":         "providers.headhunter.token",
		"indeed":     "providers.indeed.api-key",
		"linkedin":   "providers.linkedin.api-key",
	}
	for provider, want := range tests {
		got, err := apiKeyPath(provider)
		require.NoError(t, err, provider)
		assert.Equal(t, want, got)
	}

	_, err := apiKeyPath("lever")
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestKnownKey(t *testing.T) {
	assert.True(t, knownKey("apply.rate-limit"))
	assert.True(t, knownKey("ai.prompt.deal-breakers"))
	assert.False(t, knownKey("apply.rate"))
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 5, parseValue("5"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, []any{"go", "rust"}, parseValue("[go, rust]"))
	assert.Equal(t, "1h", parseValue("1h"))
	assert.Equal(t, "", parseValue(""))
}

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-matcher.yaml")

	require.NoError(t, setConfigValue(path, "apply.rate-limit", 3))
	require.NoError(t, setConfigValue(path, "ai.gemini.model", "gemini-2.5-flash"))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	assert.Equal(t, 3, v.GetInt("apply.rate-limit"))
	assert.Equal(t, "gemini-2.5-flash", v.GetString("ai.gemini.model"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList(" a, b,,c "))
	assert.Nil(t, splitList(""))
}

func TestMarkReady(t *testing.T) {
	tr, err := tracker.Open(t.TempDir())
	require.NoError(t, err)

	app, _, err := tr.Upsert("lever:1", "p1")
	require.NoError(t, err)

	var out bytes.Buffer
	s := &session{logger: zap.NewNop(), out: &out}
	set := &documents.Set{
		Resume:      &documents.Document{Path: "applications/resumes/r.md"},
		CoverLetter: &documents.Document{Path: "applications/cover_letters/c.md"},
	}

	require.NoError(t, markReady(s, tr, app, set))

	got, err := tr.Get(app.ID)
	require.NoError(t, err)
	assert.Equal(t, tracker.ReadyToApply, got.Status)
	assert.True(t, got.Reached(tracker.ResumeGenerated))
	assert.True(t, got.Reached(tracker.CoverLetterGenerated))
	assert.Equal(t, "applications/resumes/r.md", got.Documents.Resume)

	// A second run does not move the application again.
	require.NoError(t, markReady(s, tr, got, set))
	again, err := tr.Get(app.ID)
	require.NoError(t, err)
	assert.Len(t, again.History, len(got.History))

	assert.Empty(t, pendingDocuments(tr, "p1", 5))
}

func TestProfileCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"profile", "--create-sample", "--output", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), path)

	p, err := profile.Load(path)
	require.NoError(t, err)
	assert.Equal(t, profile.Sample().ID, p.ID)
}

func TestMatchWithCorruptTracker(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOB_MATCHER_DATA_DIR", dir)

	profilePath := filepath.Join(dir, "profile.json")
	require.NoError(t, profile.Save(profile.Sample(), profilePath))

	jobsPath := filepath.Join(dir, "jobs.json")
	require.NoError(t, os.WriteFile(jobsPath, []byte(`[
  {"provider": "file", "id": "1", "title": "Senior Python Engineer", "company": "Acme",
   "description": "Python and AWS", "required_skills": {"Python": "ADVANCED", "py": "BEGINNER"}},
  null
]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tracker.StoreFile), []byte("{not json"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		require.NoError(t, matchCmd.Flags().Set("track", "false"))
		require.NoError(t, matchCmd.Flags().Set("jobs", ""))
		require.NoError(t, matchCmd.Flags().Set("profile", ""))
	})

	rootCmd.SetArgs([]string{"match", "--jobs", jobsPath, "--profile", profilePath, "--no-ai"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Senior Python Engineer at Acme")
	assert.Contains(t, out.String(), "matched: python")

	stored, err := jobs.NewCatalog(dir).Load()
	require.NoError(t, err)
	posting := stored.FindByKey("file:1")
	require.NotNil(t, posting)
	assert.Equal(t, map[string]skills.Level{"python": skills.Advanced}, posting.RequiredSkills)

	rootCmd.SetArgs([]string{"match", "--jobs", jobsPath, "--profile", profilePath, "--no-ai", "--track"})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, tracker.ErrPersistenceCorrupt))
}
