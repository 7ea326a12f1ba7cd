package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spigell/job-matcher/internal/profile"
)

const sampleProfileFile = "sample_profile.json"

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Create, show or validate a candidate profile",
	Example: `  job-matcher profile --create-sample
  job-matcher profile --create-sample -o profile.yaml
  job-matcher profile --show profile.json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runProfile(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().Bool("create-sample", false, "write a sample profile to start from")
	profileCmd.Flags().String("show", "", "print a summary of the profile at this path")
	profileCmd.Flags().String("validate", "", "check the profile at this path")
	profileCmd.Flags().StringP("output", "o", sampleProfileFile, "where --create-sample writes, .yaml or .json")

	profileCmd.MarkFlagsMutuallyExclusive("create-sample", "show", "validate")
	profileCmd.MarkFlagsOneRequired("create-sample", "show", "validate")
}

func runProfile(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()

	if create, _ := flags.GetBool("create-sample"); create {
		output, _ := flags.GetString("output")
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists", output)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := profile.Save(profile.Sample(), output); err != nil {
			return err
		}
		s.printf("Sample profile written to %s. Edit it and point the profile key at it.\n", output)
		return nil
	}

	if path, _ := flags.GetString("validate"); path != "" {
		p, err := profile.Load(path)
		if err != nil {
			return err
		}
		s.printf("%s is valid: %s with %d skills\n", path, p.FullName, len(p.Skills))
		return nil
	}

	path, _ := flags.GetString("show")
	p, err := profile.Load(path)
	if err != nil {
		return err
	}
	printProfile(s, p)
	return nil
}

func printProfile(s *session, p *profile.Profile) {
	s.printf("%s (%s)\n", p.FullName, p.ID)
	if p.Location != "" {
		s.printf("Location: %s\n", p.Location)
	}
	s.printf("Experience: %.1f years in %d roles\n", p.TotalYears(time.Now()), len(p.Experiences))
	if degree := p.HighestDegree(); degree != profile.DegreeNone {
		s.printf("Education: %s\n", degree)
	}

	names := make([]string, 0, len(p.Skills))
	for _, sk := range p.Skills {
		names = append(names, fmt.Sprintf("%s (%s)", sk.Name, sk.Level))
	}
	s.printf("Skills: %s\n", strings.Join(names, ", "))

	if len(p.DesiredRoles) > 0 {
		s.printf("Looking for: %s\n", strings.Join(p.DesiredRoles, ", "))
	}
	if len(p.DesiredLocations) > 0 {
		s.printf("Locations: %s\n", strings.Join(p.DesiredLocations, ", "))
	}
	s.printf("Remote: %s, minimum salary: %d\n", p.RemotePreference, p.MinSalary)
}
