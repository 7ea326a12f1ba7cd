package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/autoapply"
	"github.com/spigell/job-matcher/internal/tracker"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Submit applications that are ready to apply",
	Long: `apply moves READY_TO_APPLY applications to APPLIED. Every submission passes the
rate limit and the company exclusions. Dry-run is the default; pass --dry-run=false
or set apply.dry-run to false to submit for real.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runApply(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringP("application-id", "a", "", "apply to this application only")
	applyCmd.Flags().IntP("top", "t", 0, "apply to the N most likely applications (default is all ready ones)")
	applyCmd.Flags().Bool("dry-run", false, "simulate the submissions (default is apply.dry-run)")
	applyCmd.Flags().Bool("no-confirm", false, "do not ask before every submission")
}

func runApply(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	id, _ := flags.GetString("application-id")
	top, _ := flags.GetInt("top")
	noConfirm, _ := flags.GetBool("no-confirm")

	mode := autoapply.Mode{
		DryRun:    s.config.Apply.DryRun,
		NoConfirm: noConfirm || !s.config.Apply.RequireConfirmation,
	}
	if flags.Changed("dry-run") {
		mode.DryRun, _ = flags.GetBool("dry-run")
	}

	tr, err := s.openTracker()
	if err != nil {
		return err
	}

	applicant, guard, err := newApplicant(s, tr)
	if err != nil {
		return err
	}

	if mode.DryRun {
		s.printf("Dry run: nothing is submitted.\n\n")
	}

	var outcomes []*autoapply.Outcome
	if id != "" {
		out, applyErr := applicant.Apply(s.ctx, id, mode)
		if out != nil {
			outcomes = append(outcomes, out)
		}
		err = applyErr
	} else {
		outcomes, err = applicant.ApplyTop(s.ctx, top, mode)
	}

	printOutcomes(s, outcomes)
	s.printf("%d submissions left in the current %s window\n", guard.Remaining(), s.config.Apply.Window)

	if entries, auditErr := tr.AuditLog().Entries(); auditErr == nil {
		st := autoapply.Attempts(entries)
		s.printf("\nAll time: %d submitted, %d simulated, %d denied (%d rate limited), %d awaiting confirmation\n",
			st.Submitted, st.Simulated, st.Denied, st.RateLimited, st.ConfirmationsRequired)
	}

	return err
}

func newApplicant(s *session, tr *tracker.Tracker) (*autoapply.Applicant, *autoapply.Guard, error) {
	entries, err := tr.AuditLog().Entries()
	if err != nil {
		return nil, nil, fmt.Errorf("read audit log: %w", err)
	}

	guard, err := autoapply.NewGuard(autoapply.Config{
		RateLimit:        s.config.Apply.RateLimit,
		Window:           s.config.Apply.Window,
		ExcludeCompanies: s.config.Apply.excludedCompanies(),
	}, tr,
		autoapply.WithGuardLogger(s.logger),
		autoapply.WithAuditLog(tr.AuditLog()),
		autoapply.WithPriorApprovals(entries),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	dir := s.config.Apply.InstructionsDir
	if dir == "" {
		dir = filepath.Join(s.config.DataDir, "applications")
	}

	applicant := autoapply.NewApplicant(guard, tr, autoapply.NewManualSubmitter(dir),
		autoapply.WithConfirm(confirmApplication),
		autoapply.WithDelay(s.config.Apply.Delay),
		autoapply.WithApplicantLogger(s.logger),
	)
	return applicant, guard, nil
}

func confirmApplication(app *tracker.Application) (bool, error) {
	label := fmt.Sprintf("Apply to %s at %s", app.Title(), app.Company())
	if app.Match != nil {
		label += fmt.Sprintf(" (match %s, likelihood %s)", percent(app.Match.Score), percent(app.Match.HiringLikelihood))
	}

	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func printOutcomes(s *session, outcomes []*autoapply.Outcome) {
	applied := 0
	for _, out := range outcomes {
		title := out.ApplicationID
		if out.Application != nil {
			title = fmt.Sprintf("%s at %s", out.Application.Title(), out.Application.Company())
		}

		switch {
		case out.Applied():
			applied++
			line := "applied"
			if out.Decision.Simulated {
				line = "applied (simulated)"
			}
			if out.Submission != nil && out.Submission.Reference != "" {
				line += ", " + out.Submission.Reference
			}
			s.printf("  %s: %s\n", title, line)
		case out.Declined:
			s.printf("  %s: skipped at the prompt\n", title)
		default:
			s.printf("  %s: %s\n", title, out.Decision)
		}
	}
	s.logger.Info("apply finished", zap.Int("processed", len(outcomes)), zap.Int("applied", applied))
	s.printf("\n%d of %d applications applied\n", applied, len(outcomes))
}
