package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/spigell/job-matcher/internal/providers/indeed"
)

const redactedValue = "***"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the configuration",
	Example: `  job-matcher config --show
  job-matcher config --init
  job-matcher config --set apply.rate-limit 5
  job-matcher config --set-api-key gemini AIza...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("show", false, "print the effective configuration with secrets hidden")
	configCmd.Flags().Bool("init", false, "write a config file with the default values")
	configCmd.Flags().String("set", "", "set KEY to the value given as the argument")
	configCmd.Flags().String("set-api-key", "", "store the api key given as the argument for PROVIDER")

	configCmd.MarkFlagsMutuallyExclusive("show", "init", "set", "set-api-key")
	configCmd.MarkFlagsOneRequired("show", "init", "set", "set-api-key")
}

func runConfig(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	out := cmd.OutOrStdout()
	target := configTarget()

	switch {
	case flags.Changed("show"):
		config, err := getConfig()
		if err != nil {
			return err
		}
		pretty, err := json.MarshalIndent(redacted(config), "", "  ")
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		fmt.Fprintln(out, string(pretty))
		return nil

	case flags.Changed("init"):
		v := viper.New()
		setDefaults(v)
		if err := v.SafeWriteConfigAs(target); err != nil {
			var exists viper.ConfigFileAlreadyExistsError
			if errors.As(err, &exists) {
				return fmt.Errorf("%s already exists", target)
			}
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(out, "Config written to %s\n", target)
		return nil

	case flags.Changed("set"):
		key, _ := flags.GetString("set")
		if len(args) != 1 {
			return fmt.Errorf("--set %s needs a value", key)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if !knownKey(key) {
			return fmt.Errorf("%w: unknown key %q", ErrConfigInvalid, key)
		}
		if err := setConfigValue(target, key, parseValue(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(out, "Set %s in %s\n", key, target)
		return nil

	default:
		provider, _ := flags.GetString("set-api-key")
		if len(args) != 1 {
			return fmt.Errorf("--set-api-key %s needs the key", provider)
		}
		key, err := apiKeyPath(provider)
		if err != nil {
			return err
		}
		if err := setConfigValue(target, key, strings.TrimSpace(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(out, "Stored the %s key in %s\n", provider, target)
		return nil
	}
}

func configTarget() string {
	if cfgFile != "" {
		return cfgFile
	}
	return configFile
}

func knownKey(key string) bool {
	v := viper.New()
	setDefaults(v)
	return slices.Contains(v.AllKeys(), key)
}

// apiKeyPath maps a provider name to the config key holding its credential.
func apiKeyPath(provider string) (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(provider)); {
	case name == "gemini":
		return "ai.gemini.api-key", nil
	case name == "headhunter" || name == "hh":
		return "providers.headhunter.token", nil
	case name == indeed.Name || slices.Contains(unsupportedBoards, name):
		return "providers." + name + ".api-key", nil
	default:
		return "", fmt.Errorf("%w: no api key is known for provider %q", ErrConfigInvalid, provider)
	}
}

// parseValue reads a command line value the way it would be read from the
// config file, so "5" is a number and "[a, b]" a list.
func parseValue(raw string) any {
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// setConfigValue changes one key of the config file and leaves the rest as
// written. The global viper is not used since it carries environment values.
func setConfigValue(path, key string, value any) error {
	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}

	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// redacted returns a copy of config safe to print.
func redacted(config *Config) *Config {
	if config == nil {
		return nil
	}
	c := *config

	if config.Providers != nil {
		p := *config.Providers
		p.Headhunter.Token = hide(p.Headhunter.Token)
		p.Indeed.APIKey = hide(p.Indeed.APIKey)
		p.LinkedIn.APIKey = hide(p.LinkedIn.APIKey)
		p.Glassdoor.APIKey = hide(p.Glassdoor.APIKey)
		c.Providers = &p
	}

	if config.AI != nil && config.AI.Gemini != nil {
		a := *config.AI
		g := *config.AI.Gemini
		g.APIKey = hide(g.APIKey)
		a.Gemini = &g
		c.AI = &a
	}

	return &c
}

func hide(secret string) string {
	if secret == "" {
		return ""
	}
	return redactedValue
}
