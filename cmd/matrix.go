package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spigell/job-matcher/internal/matrix"
	"github.com/spigell/job-matcher/internal/tracker"
)

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Build the application tracking matrix",
	Example: `  job-matcher matrix
  job-matcher matrix --format markdown --output -`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runMatrix(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(matrixCmd)

	matrixCmd.Flags().StringP("format", "f", string(matrix.HTML), "markdown, json, csv or html")
	matrixCmd.Flags().StringP("sort", "s", string(tracker.SortLikelihood), "order by updated, created, score, likelihood, company or status")
	matrixCmd.Flags().StringP("output", "o", "", `directory for the matrix file, "-" prints it (default is matrix.output-dir)`)
	matrixCmd.Flags().Bool("active", false, "only applications that are still in progress")
}

func runMatrix(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	formatName, _ := flags.GetString("format")
	sortBy, _ := flags.GetString("sort")
	output, _ := flags.GetString("output")
	active, _ := flags.GetBool("active")

	format, err := matrix.ParseFormat(formatName)
	if err != nil {
		return err
	}
	key, err := tracker.ParseSortKey(sortBy)
	if err != nil {
		return err
	}

	tr, err := s.openTracker()
	if err != nil {
		return err
	}
	apps := tr.List(tracker.Filter{ActiveOnly: active}, key)

	gen := matrix.New(matrix.WithLogger(s.logger))
	if output == "-" {
		return gen.Render(s.out, apps, format)
	}
	if output == "" {
		output = s.config.Matrix.OutputDir
	}

	path, err := gen.WriteFile(output, apps, format)
	if err != nil {
		return err
	}
	s.printf("Matrix with %d applications written to %s\n", len(apps), path)
	return nil
}
