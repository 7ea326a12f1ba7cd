package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/utils"
)

const searchPreview = 20

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search job boards and store the postings in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runSearch(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "", "words every posting must contain (default is the first desired role of the profile)")
	searchCmd.Flags().StringP("location", "l", "", "location filter")
	searchCmd.Flags().Bool("remote", false, "remote postings only")
	searchCmd.Flags().IntP("limit", "n", 0, "max postings per provider (default is search.limit)")
	searchCmd.Flags().String("providers", "", "comma-separated providers to query (default is providers.enabled)")
	searchCmd.Flags().StringP("profile", "p", "", "profile used to build the query when --query is empty")
	searchCmd.Flags().StringP("output", "o", "", "also write the postings to this JSON file")
	searchCmd.Flags().Bool("by-company", false, "print the postings grouped by company as JSON")
	searchCmd.Flags().Bool("dump", false, "dump the postings to a temporary file")
	searchCmd.Flags().Bool("exclude-all", false, "append every found posting to the exclude file")
}

func runSearch(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	text, _ := flags.GetString("query")
	location, _ := flags.GetString("location")
	remote, _ := flags.GetBool("remote")
	limit, _ := flags.GetInt("limit")
	names, _ := flags.GetString("providers")
	profilePath, _ := flags.GetString("profile")
	output, _ := flags.GetString("output")
	byCompany, _ := flags.GetBool("by-company")
	dump, _ := flags.GetBool("dump")
	excludeAll, _ := flags.GetBool("exclude-all")

	if excludeAll && s.config.ExcludeFile == "" {
		return fmt.Errorf("%w: --exclude-all needs exclude-file to be set", ErrConfigInvalid)
	}

	if limit <= 0 {
		limit = s.config.Search.Limit
	}

	if text == "" {
		p, err := s.loadProfile(profilePath)
		switch {
		case err != nil && flags.Changed("profile"):
			return err
		case err != nil:
			s.logger.Warn("searching without a query", zap.Error(err))
		default:
			if len(p.DesiredRoles) > 0 {
				text = p.DesiredRoles[0]
			}
			if location == "" && len(p.DesiredLocations) > 0 {
				location = p.DesiredLocations[0]
			}
		}
	}

	list, err := buildProviders(s.config.Providers, splitList(names), s.logger)
	if err != nil {
		return err
	}

	q := providers.Query{Text: text, Location: location, Remote: remote, Limit: limit}
	s.logger.Info("starting the search",
		zap.String("query", q.Text),
		zap.String("location", q.Location),
		zap.Bool("remote", q.Remote),
		zap.Int("providers", len(list)),
	)

	aggregator := providers.NewAggregator(list,
		providers.WithParallel(s.config.Search.Parallel),
		providers.WithSkillIndex(s.index),
		providers.WithLogger(s.logger),
	)

	res, err := aggregator.Search(s.ctx, q)
	if err != nil && !errors.Is(err, s.ctx.Err()) {
		return fmt.Errorf("search: %w", err)
	}
	if summary := res.Summary(); summary != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), summary)
	}
	if err != nil {
		return err
	}

	res.Postings.SortByPosted()
	added, err := s.catalog().Add(res.Postings.Items)
	if err != nil {
		return err
	}

	if byCompany {
		pretty, _ := json.MarshalIndent(res.Postings.ReportByCompany(), "", "  ")
		s.printf("%s\n", pretty)
	} else {
		printPostings(s, res.Postings)
	}
	s.printf("\nFound %d postings from %d companies, %d new in the catalog %s\n",
		res.Postings.Len(), len(res.Postings.Companies()), added, s.catalog().Path())

	if dump {
		filename, err := res.Postings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
	}

	if excludeAll && res.Postings.Len() > 0 {
		excluded, err := jobs.GetExcludedPostingsFromFile(s.config.ExcludeFile)
		if err != nil {
			return err
		}
		excluded.Append(res.Postings.ToExcluded(jobs.ExcludeActorUser, "excluded from search results"))
		if err := excluded.ToFile(s.config.ExcludeFile); err != nil {
			return err
		}
		s.logger.Info("appended to exclude file", zap.String("filename", s.config.ExcludeFile), zap.Int("count", res.Postings.Len()))
	}

	if output != "" {
		data, err := json.MarshalIndent(res.Postings.Items, "", "  ")
		if err != nil {
			return fmt.Errorf("encode postings: %w", err)
		}
		if err := utils.WriteFileAtomic(output, data, 0o644); err != nil {
			return err
		}
		s.printf("Saved %d postings to %s\n", res.Postings.Len(), output)
	}

	return nil
}

func printPostings(s *session, p *jobs.Postings) {
	for i, posting := range p.Items {
		if i == searchPreview {
			s.printf("... and %d more\n", p.Len()-searchPreview)
			break
		}

		line := posting.Company
		if posting.Location != "" {
			line += " | " + posting.Location
		}
		if posting.Salary != nil && posting.Salary.Known() {
			line += " | " + posting.Salary.String()
		}

		s.printf("%2d. %s\n    %s\n    %s\n", i+1, posting.Title, line, posting.Key())
	}
}
