package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/spigell/job-matcher/internal/tracker"
	"github.com/spigell/job-matcher/internal/utils"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "List, update and export tracked applications",
	Example: `  job-matcher track --list --status READY_TO_APPLY
  job-matcher track --update 3f2a... --new-status UNDER_REVIEW --note "recruiter called"
  job-matcher track --stats
  job-matcher track --export applications.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runTrack(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().BoolP("list", "l", false, "list applications (the default action)")
	trackCmd.Flags().StringP("status", "s", "", "comma-separated statuses to list")
	trackCmd.Flags().String("company", "", "list applications whose company contains this text")
	trackCmd.Flags().Bool("active", false, "list applications that are still in progress")
	trackCmd.Flags().String("sort", string(tracker.SortUpdated), "order by updated, created, score, likelihood, company or status")
	trackCmd.Flags().StringP("update", "u", "", "application id to move to another status")
	trackCmd.Flags().String("new-status", "", "target status for --update (asked for when empty)")
	trackCmd.Flags().String("note", "", "note stored with the status change")
	trackCmd.Flags().Bool("stats", false, "print statistics")
	trackCmd.Flags().StringP("export", "e", "", "export the listed applications as CSV to this file")

	trackCmd.MarkFlagsMutuallyExclusive("update", "stats", "export")
	trackCmd.MarkFlagsMutuallyExclusive("update", "list")
}

func runTrack(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	update, _ := flags.GetString("update")
	stats, _ := flags.GetBool("stats")
	export, _ := flags.GetString("export")

	tr, err := s.openTracker()
	if err != nil {
		return err
	}

	switch {
	case update != "":
		newStatus, _ := flags.GetString("new-status")
		note, _ := flags.GetString("note")
		return updateApplication(s, tr, update, newStatus, note)
	case stats:
		printStats(s, tr.Stats())
		return nil
	}

	filter, key, err := listOptions(cmd)
	if err != nil {
		return err
	}
	apps := tr.List(filter, key)

	if export != "" {
		var buf strings.Builder
		if err := tracker.ExportCSV(&buf, apps); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := utils.WriteFileAtomic(export, []byte(buf.String()), 0o644); err != nil {
			return err
		}
		s.printf("Exported %d applications to %s\n", len(apps), export)
		return nil
	}

	return printApplications(s, apps)
}

func listOptions(cmd *cobra.Command) (tracker.Filter, tracker.SortKey, error) {
	flags := cmd.Flags()
	statusList, _ := flags.GetString("status")
	company, _ := flags.GetString("company")
	active, _ := flags.GetBool("active")
	sortBy, _ := flags.GetString("sort")

	filter := tracker.Filter{Company: company, ActiveOnly: active}
	for _, name := range splitList(statusList) {
		st, err := tracker.ParseStatus(name)
		if err != nil {
			return filter, "", err
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	key, err := tracker.ParseSortKey(sortBy)
	if err != nil {
		return filter, "", err
	}
	return filter, key, nil
}

func updateApplication(s *session, tr *tracker.Tracker, id, newStatus, note string) error {
	app, err := tr.Get(id)
	if err != nil {
		return err
	}

	var target tracker.Status
	if newStatus == "" {
		if target, err = pickStatus(app); err != nil {
			return err
		}
	} else if target, err = tracker.ParseStatus(newStatus); err != nil {
		return err
	}

	updated, err := tr.Transition(id, target, note, tracker.WithActor(tracker.ActorUser))
	if err != nil {
		return err
	}
	s.printf("%s at %s: %s -> %s\n", updated.Title(), updated.Company(), app.Status, updated.Status)
	return nil
}

// pickStatus asks for one of the statuses the application can move to.
func pickStatus(app *tracker.Application) (tracker.Status, error) {
	next := app.Status.Successors()
	if len(next) == 0 {
		return "", fmt.Errorf("application %s is %s and cannot change anymore", app.ID, app.Status)
	}

	items := make([]string, 0, len(next))
	for _, st := range next {
		items = append(items, string(st))
	}

	prompt := promptui.Select{
		Label: fmt.Sprintf("Move %s at %s from %s to", app.Title(), app.Company(), app.Status),
		Items: items,
	}
	_, picked, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return tracker.Status(picked), nil
}

func printApplications(s *session, apps []*tracker.Application) error {
	if len(apps) == 0 {
		s.printf("No applications found.\n")
		return nil
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tTITLE\tSTATUS\tSCORE\tLIKELIHOOD\tUPDATED")
	for _, app := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			app.ID,
			truncate(app.Company(), 24),
			truncate(app.Title(), 40),
			app.Status,
			percent(app.Score()),
			percent(app.Likelihood()),
			app.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s.printf("\n%d applications\n", len(apps))
	return nil
}

func printStats(s *session, st tracker.Stats) {
	s.printf("Total applications: %d (%d active)\n", st.Total, st.Active)
	s.printf("Applied: %d, responded: %d, response rate: %s\n", st.Applied, st.Responded, percent(st.ResponseRate))
	s.printf("Average match: %s, average likelihood: %s\n", percent(st.AverageScore), percent(st.AverageLikelihood))

	if len(st.ByStatus) == 0 {
		return
	}
	statuses := make([]tracker.Status, 0, len(st.ByStatus))
	for status := range st.ByStatus {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Order() < statuses[j].Order() })

	s.printf("\nBy status:\n")
	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, status := range statuses {
		fmt.Fprintf(w, "  %s\t%d\n", status, st.ByStatus[status])
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
