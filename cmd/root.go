package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/ai/gemini"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/providers/file"
	"github.com/spigell/job-matcher/internal/providers/greenhouse"
	"github.com/spigell/job-matcher/internal/providers/headhunter"
	"github.com/spigell/job-matcher/internal/providers/indeed"
	"github.com/spigell/job-matcher/internal/providers/lever"
)

const (
	app        = "job-matcher"
	envPrefix  = "JOB_MATCHER"
	configFile = app + ".yaml"
)

// ErrConfigInvalid wraps every configuration problem found at startup.
var ErrConfigInvalid = errors.New("invalid configuration")

type Config struct {
	DataDir     string           `mapstructure:"data-dir" json:"data-dir"`
	Profile     string           `mapstructure:"profile" json:"profile"`
	ExcludeFile string           `mapstructure:"exclude-file" json:"exclude-file"`
	Providers   *ProvidersConfig `mapstructure:"providers" json:"providers"`
	Scoring     *ScoringConfig   `mapstructure:"scoring" json:"scoring"`
	Search      *SearchConfig    `mapstructure:"search" json:"search"`
	Apply       *ApplyConfig     `mapstructure:"apply" json:"apply"`
	Documents   *DocumentsConfig `mapstructure:"documents" json:"documents"`
	Matrix      *MatrixConfig    `mapstructure:"matrix" json:"matrix"`
	AI          *AIConfig        `mapstructure:"ai" json:"ai"`
}

type ProvidersConfig struct {
	Enabled    []string          `mapstructure:"enabled" json:"enabled"`
	Headhunter headhunter.Config `mapstructure:"headhunter" json:"headhunter"`
	Greenhouse greenhouse.Config `mapstructure:"greenhouse" json:"greenhouse"`
	Lever      lever.Config      `mapstructure:"lever" json:"lever"`
	File       file.Config       `mapstructure:"file" json:"file"`
	Indeed     indeed.Config     `mapstructure:"indeed" json:"indeed"`
	LinkedIn   BoardKeyConfig    `mapstructure:"linkedin" json:"linkedin"`
	Glassdoor  BoardKeyConfig    `mapstructure:"glassdoor" json:"glassdoor"`
}

// BoardKeyConfig holds the credentials of boards job-matcher cannot query.
type BoardKeyConfig struct {
	APIKey string `mapstructure:"api-key" json:"api-key,omitempty"`
}

type ScoringConfig struct {
	Weights matching.Weights `mapstructure:"weights" json:"weights"`
}

type SearchConfig struct {
	Limit    int           `mapstructure:"limit" json:"limit"`
	Parallel int           `mapstructure:"parallel" json:"parallel"`
	MaxAge   time.Duration `mapstructure:"max-age" json:"max-age"`
}

type ApplyConfig struct {
	RateLimit           int           `mapstructure:"rate-limit" json:"rate-limit"`
	Window              time.Duration `mapstructure:"window" json:"window"`
	DryRun              bool          `mapstructure:"dry-run" json:"dry-run"`
	RequireConfirmation bool          `mapstructure:"require-confirmation" json:"require-confirmation"`
	Delay               time.Duration `mapstructure:"delay" json:"delay"`
	InstructionsDir     string        `mapstructure:"instructions-dir" json:"instructions-dir"`
	Exclude             *struct {
		Companies []string `mapstructure:"companies" json:"companies"`
	} `mapstructure:"exclude" json:"exclude"`
}

func (c *ApplyConfig) excludedCompanies() []string {
	if c == nil || c.Exclude == nil {
		return nil
	}
	return c.Exclude.Companies
}

type DocumentsConfig struct {
	OutputDir string   `mapstructure:"output-dir" json:"output-dir"`
	Formats   []string `mapstructure:"formats" json:"formats"`
	Tone      string   `mapstructure:"tone" json:"tone"`
}

type MatrixConfig struct {
	OutputDir string `mapstructure:"output-dir" json:"output-dir"`
}

type AIConfig struct {
	Enabled         bool                    `mapstructure:"enabled" json:"enabled"`
	Provider        string                  `mapstructure:"provider" json:"provider"`
	MinimumFitScore float64                 `mapstructure:"minimum-fit-score" json:"minimum-fit-score"`
	Gemini          *gemini.Config          `mapstructure:"gemini" json:"gemini"`
	Prompt          *gemini.PromptOverrides `mapstructure:"prompt" json:"prompt"`
}

// Validate checks the values the components cannot work without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data-dir is required", ErrConfigInvalid)
	}
	if c.Providers == nil || c.Scoring == nil || c.Search == nil || c.Apply == nil || c.Documents == nil || c.Matrix == nil || c.AI == nil {
		return fmt.Errorf("%w: incomplete configuration", ErrConfigInvalid)
	}
	if err := c.Scoring.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: scoring.weights: %w", ErrConfigInvalid, err)
	}
	for _, name := range c.Providers.Enabled {
		if !knownProvider(name) {
			return fmt.Errorf("%w: providers.enabled: unknown provider %q", ErrConfigInvalid, name)
		}
	}
	if c.Search.Limit < 0 || c.Search.Parallel < 0 || c.Search.MaxAge < 0 {
		return fmt.Errorf("%w: search values must not be negative", ErrConfigInvalid)
	}
	if c.Apply.RateLimit <= 0 {
		return fmt.Errorf("%w: apply.rate-limit must be positive, got %d", ErrConfigInvalid, c.Apply.RateLimit)
	}
	if c.Apply.Window <= 0 {
		return fmt.Errorf("%w: apply.window must be positive, got %s", ErrConfigInvalid, c.Apply.Window)
	}
	if c.Apply.Delay < 0 {
		return fmt.Errorf("%w: apply.delay must not be negative", ErrConfigInvalid)
	}
	if score := c.AI.MinimumFitScore; score < 0 || score > 1 {
		return fmt.Errorf("%w: ai.minimum-fit-score must be within [0, 1], got %v", ErrConfigInvalid, score)
	}
	if p := strings.ToLower(strings.TrimSpace(c.AI.Provider)); p != "" && p != gemini.ProviderName {
		return fmt.Errorf("%w: unsupported ai provider %q", ErrConfigInvalid, c.AI.Provider)
	}
	return nil
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "job-matcher matches a candidate profile against job postings and tracks the applications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return readConfig()
		},
	}
)

// Execute executes the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+configFile+" in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// .env is optional.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())
}

// readConfig loads the config file. Only an explicitly requested file has to exist.
func readConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("%w: reading config: %w", ErrConfigInvalid, err)
	}
	return nil
}

// setDefaults registers every key. AutomaticEnv only resolves keys viper knows
// about, so a key without a default cannot be set from the environment.
func setDefaults(v *viper.Viper) {
	weights := matching.DefaultWeights()

	v.SetDefault("data-dir", "data")
	v.SetDefault("profile", "profile.json")
	v.SetDefault("exclude-file", "")

	v.SetDefault("providers.enabled", []string{headhunter.Name, greenhouse.Name, lever.Name})
	v.SetDefault("providers.headhunter.token", "")
	v.SetDefault("providers.headhunter.token-file", "")
	v.SetDefault("providers.headhunter.user-agent", "")
	v.SetDefault("providers.headhunter.area", []int{})
	v.SetDefault("providers.greenhouse.boards", []string{})
	v.SetDefault("providers.lever.companies", []string{})
	v.SetDefault("providers.file.path", "")
	v.SetDefault("providers.indeed.api-key", "")
	v.SetDefault("providers.indeed.api-key-file", "")
	v.SetDefault("providers.indeed.user-agent", "")
	for _, board := range unsupportedBoards {
		v.SetDefault("providers."+board+".api-key", "")
	}

	v.SetDefault("scoring.weights.skill", weights.Skill)
	v.SetDefault("scoring.weights.experience", weights.Experience)
	v.SetDefault("scoring.weights.location", weights.Location)
	v.SetDefault("scoring.weights.salary", weights.Salary)
	v.SetDefault("scoring.weights.education", weights.Education)

	v.SetDefault("search.limit", 50)
	v.SetDefault("search.parallel", 4)
	v.SetDefault("search.max-age", time.Duration(0))

	v.SetDefault("apply.rate-limit", 10)
	v.SetDefault("apply.window", time.Hour)
	v.SetDefault("apply.dry-run", true)
	v.SetDefault("apply.require-confirmation", true)
	v.SetDefault("apply.delay", 5*time.Second)
	v.SetDefault("apply.instructions-dir", "")
	v.SetDefault("apply.exclude.companies", []string{})

	v.SetDefault("documents.output-dir", "applications")
	v.SetDefault("documents.formats", []string{"markdown"})
	v.SetDefault("documents.tone", "professional")

	v.SetDefault("matrix.output-dir", "matrices")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", gemini.ProviderName)
	v.SetDefault("ai.minimum-fit-score", 0.6)
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 500)
	for _, key := range []string{"extra-criteria", "deal-breakers", "keywords", "tone", "region-constraints", "user-instructions"} {
		v.SetDefault("ai.prompt."+key, "")
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if config == nil {
		return nil, fmt.Errorf("%w: config is empty", ErrConfigInvalid)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
