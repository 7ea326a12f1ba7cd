package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/likelihood"
	"github.com/spigell/job-matcher/internal/matching"
	"github.com/spigell/job-matcher/internal/profile"
	"github.com/spigell/job-matcher/internal/providers"
	"github.com/spigell/job-matcher/internal/providers/file"
	"github.com/spigell/job-matcher/internal/tracker"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score postings against the profile and rank them",
	Long: `match scores postings against the profile. Postings come from --jobs, from a
live search when --query is set, or from the catalog filled by search.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runMatch(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("profile", "p", "", "profile file (default is the profile key)")
	matchCmd.Flags().String("jobs", "", "JSON file with postings to match instead of the catalog")
	matchCmd.Flags().StringP("query", "q", "", "run a live search with this query and match its results")
	matchCmd.Flags().IntP("top", "t", 10, "number of matches to show")
	matchCmd.Flags().String("sort", string(matching.SortLikelihood), "order by overall, likelihood, compensation or skill")
	matchCmd.Flags().Bool("track", false, "start tracking the shown matches")
	matchCmd.Flags().Bool("include-tracked", false, "keep postings that are already tracked")
	matchCmd.Flags().Bool("no-ai", false, "skip the AI fit filter")
}

type match struct {
	posting *jobs.Posting
	result  *matching.Result
}

func runMatch(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	profilePath, _ := flags.GetString("profile")
	jobsPath, _ := flags.GetString("jobs")
	query, _ := flags.GetString("query")
	top, _ := flags.GetInt("top")
	sortBy, _ := flags.GetString("sort")
	track, _ := flags.GetBool("track")
	includeTracked, _ := flags.GetBool("include-tracked")
	noAI, _ := flags.GetBool("no-ai")

	key, err := matching.ParseSortKey(sortBy)
	if err != nil {
		return err
	}

	p, err := s.loadProfile(profilePath)
	if err != nil {
		return err
	}

	postings, err := matchSource(s, jobsPath, query)
	if err != nil {
		return err
	}
	if postings.Len() == 0 {
		s.printf("No postings to match. Run search first or pass --jobs.\n")
		return nil
	}

	// A corrupt store only blocks tracking; scoring does not need it.
	tr, err := s.openTracker()
	switch {
	case errors.Is(err, tracker.ErrPersistenceCorrupt) && !track:
		s.logger.Warn("matching without the tracker, already tracked postings are not filtered", zap.Error(err))
		tr = nil
	case err != nil:
		return err
	}

	filters := prepareFilters(s.ctx, s, p, tr, filterOptions{
		includeTracked: includeTracked,
		skipAI:         noAI,
		now:            time.Now,
	})
	for _, st := range filters.Describe() {
		s.logger.Debug("filter", zap.String("name", st.Name), zap.Bool("enabled", st.Enabled), zap.String("reason", st.Reason))
	}
	postings, err = filters.RunFilters(s.ctx, postings)
	if err != nil {
		return fmt.Errorf("filtering: %w", err)
	}
	if postings.Len() == 0 {
		s.printf("No postings left after filtering.\n")
		return nil
	}

	matches, err := scorePostings(s, p, postings, filters.Assessments(), time.Now())
	if err != nil {
		return err
	}
	matches = rankMatches(matches, key)
	if top > 0 && len(matches) > top {
		matches = matches[:top]
	}

	printMatches(s, matches)

	if !track {
		return nil
	}

	created := 0
	for _, m := range matches {
		_, isNew, err := tr.Upsert(m.posting.Key(), p.ID,
			tracker.WithJob(m.posting),
			tracker.WithMatch(m.result),
			tracker.WithCreator(tracker.ActorUser),
		)
		if err != nil {
			return err
		}
		if isNew {
			created++
		}
	}
	s.printf("\nTracking %d new applications (%d already tracked)\n", created, len(matches)-created)
	return nil
}

// matchSource picks the postings to score: an explicit file, a live search or
// the catalog, in that order.
func matchSource(s *session, jobsPath, query string) (*jobs.Postings, error) {
	switch {
	case jobsPath != "":
		// The file goes through the same validation as a search so that later
		// commands find the postings in the catalog.
		res, err := collect(s, []providers.Provider{file.New(file.Config{Path: jobsPath})}, providers.Query{})
		if err != nil {
			return nil, err
		}
		if len(res.Warnings) > 0 {
			return nil, res.Warnings[0]
		}
		return res.Postings, nil

	case query != "":
		list, err := buildProviders(s.config.Providers, nil, s.logger)
		if err != nil {
			return nil, err
		}
		res, err := collect(s, list, providers.Query{Text: query, Limit: s.config.Search.Limit})
		if err != nil {
			return nil, err
		}
		for _, w := range res.Warnings {
			s.logger.Warn("provider skipped", zap.Error(w))
		}
		return res.Postings, nil

	default:
		return s.catalog().Load()
	}
}

// collect runs the aggregator and stores what it found in the catalog.
func collect(s *session, list []providers.Provider, q providers.Query) (*providers.Result, error) {
	res, err := providers.NewAggregator(list,
		providers.WithParallel(s.config.Search.Parallel),
		providers.WithSkillIndex(s.index),
		providers.WithLogger(s.logger),
	).Search(s.ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if _, err := s.catalog().Add(res.Postings.Items); err != nil {
		return nil, err
	}
	return res, nil
}

// scorePostings scores every posting and estimates the hiring likelihood. The AI
// fit score, when there is one, is the culture fit signal.
func scorePostings(s *session, p *profile.Profile, postings *jobs.Postings, assessments map[string]*ai.FitAssessment, now time.Time) ([]match, error) {
	engine, err := s.engine()
	if err != nil {
		return nil, err
	}
	demand := likelihood.Ptr(likelihood.MarketDemand(p, s.index))

	out := make([]match, 0, postings.Len())
	for _, posting := range postings.Items {
		r, err := s.scores.Score(engine, p, posting)
		if err != nil {
			s.logger.Warn("skipping posting", zap.String("job", posting.Key()), zap.Error(err))
			continue
		}

		signals := likelihood.Signals{
			MarketDemand: demand,
			Timing:       likelihood.Ptr(likelihood.Timing(posting.PostedAt, now)),
		}
		if a, ok := assessments[posting.Key()]; ok && a != nil {
			signals.CultureFit = likelihood.Ptr(a.Score)
		}

		out = append(out, match{posting: posting, result: likelihood.Apply(r, signals)})
	}

	hits, misses := s.scores.Stats()
	s.logger.Debug("postings scored", zap.Int("cache_hits", hits), zap.Int("cache_misses", misses))
	return out, nil
}

func rankMatches(matches []match, key matching.SortKey) []match {
	byKey := make(map[string]*jobs.Posting, len(matches))
	results := make([]*matching.Result, 0, len(matches))
	for _, m := range matches {
		byKey[m.result.JobKey] = m.posting
		results = append(results, m.result)
	}

	ranked := make([]match, 0, len(matches))
	for _, r := range matching.Rank(results, key) {
		ranked = append(ranked, match{posting: byKey[r.JobKey], result: r})
	}
	return ranked
}

func printMatches(s *session, matches []match) {
	for i, m := range matches {
		r := m.result
		s.printf("%2d. %s at %s\n", i+1, m.posting.Title, m.posting.Company)
		s.printf("    match %s | likelihood %s (%s) | compensation %s\n",
			percent(r.Overall), percent(r.HiringLikelihood), likelihood.Rating(r.HiringLikelihood), percent(r.CompensationScore))
		s.printf("    skills %s | experience %s | location %s | salary %s | education %s\n",
			percent(r.SkillScore), percent(r.ExperienceScore), percent(r.LocationScore), percent(r.SalaryScore), percent(r.EducationScore))
		if len(r.MatchedSkills) > 0 {
			s.printf("    matched: %s\n", strings.Join(r.MatchedSkills, ", "))
		}
		if len(r.MissingSkills) > 0 {
			s.printf("    missing: %s\n", strings.Join(r.MissingSkills, ", "))
		}
		s.printf("    %s\n", m.posting.Key())
	}
}
