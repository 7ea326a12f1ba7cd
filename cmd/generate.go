package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/documents"
	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/tracker"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a tailored resume and cover letter for postings",
	Long: `generate writes a resume and a cover letter for every posting given with
--job-key. Without --job-key the best tracked applications that have no documents
yet are used. The applications move to READY_TO_APPLY.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		return runGenerate(s, cmd)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("profile", "p", "", "profile file (default is the profile key)")
	generateCmd.Flags().StringSliceP("job-key", "k", nil, "posting key as provider:id, repeatable")
	generateCmd.Flags().IntP("top", "t", 5, "number of tracked applications to use without --job-key")
	generateCmd.Flags().StringP("format", "f", "", "comma-separated formats: markdown, html, txt (default is documents.formats)")
	generateCmd.Flags().String("tone", "", "cover letter tone: professional, enthusiastic or conversational")
	generateCmd.Flags().StringP("output-dir", "o", "", "where to write the documents (default is documents.output-dir)")
	generateCmd.Flags().Bool("no-ai", false, "do not enhance the documents with AI")
	generateCmd.Flags().Bool("show-diff", false, "print what the AI enhancement changed")
}

func runGenerate(s *session, cmd *cobra.Command) error {
	flags := cmd.Flags()
	profilePath, _ := flags.GetString("profile")
	keys, _ := flags.GetStringSlice("job-key")
	top, _ := flags.GetInt("top")
	formatList, _ := flags.GetString("format")
	toneName, _ := flags.GetString("tone")
	outputDir, _ := flags.GetString("output-dir")
	noAI, _ := flags.GetBool("no-ai")
	showDiff, _ := flags.GetBool("show-diff")

	formats, err := documentFormats(formatList, s.config.Documents.Formats)
	if err != nil {
		return err
	}
	if toneName == "" {
		toneName = s.config.Documents.Tone
	}
	tone, err := documents.ParseTone(toneName)
	if err != nil {
		return err
	}
	if outputDir == "" {
		outputDir = s.config.Documents.OutputDir
	}

	p, err := s.loadProfile(profilePath)
	if err != nil {
		return err
	}
	tr, err := s.openTracker()
	if err != nil {
		return err
	}
	catalog, err := s.catalog().Load()
	if err != nil {
		return err
	}

	if len(keys) == 0 {
		keys = pendingDocuments(tr, p.ID, top)
		if len(keys) == 0 {
			s.printf("Nothing to generate. Pass --job-key or track matches first.\n")
			return nil
		}
	}

	postings := make([]*jobs.Posting, 0, len(keys))
	for _, key := range keys {
		posting := catalog.FindByKey(key)
		if posting == nil {
			return fmt.Errorf("posting %s is not in the catalog %s", key, s.catalog().Path())
		}
		postings = append(postings, posting)
	}

	manager := documents.NewManager(outputDir, documentGenerator(s, noAI),
		documents.WithLogger(s.logger),
	)

	matches, err := scorePostings(s, p, &jobs.Postings{Items: postings}, nil, time.Now())
	if err != nil {
		return err
	}

	sets := make([]*documents.Set, 0, len(matches))
	for _, m := range matches {
		app, _, err := tr.Upsert(m.posting.Key(), p.ID,
			tracker.WithJob(m.posting),
			tracker.WithMatch(m.result),
			tracker.WithCreator(tracker.ActorUser),
		)
		if err != nil {
			return err
		}

		set, err := manager.Generate(s.ctx, documents.Request{
			Profile: p,
			Posting: m.posting,
			Match:   m.result,
			Tone:    tone,
		}, formats)
		if err != nil {
			return fmt.Errorf("documents for %s: %w", m.posting.Key(), err)
		}
		sets = append(sets, set)

		s.printf("%s at %s\n    resume:       %s\n    cover letter: %s\n",
			set.Title, set.Company, set.Resume.Path, set.CoverLetter.Path)
		for _, extra := range set.Extra {
			s.printf("    %-13s %s\n", fmt.Sprintf("%s (%s):", extra.Kind, extra.Format), extra.Path)
		}
		if showDiff {
			printDiff(s, set.Resume)
			printDiff(s, set.CoverLetter)
		}

		if err := markReady(s, tr, app, set); err != nil {
			return err
		}
	}

	index, err := manager.WriteIndex(sets)
	if err != nil {
		return err
	}
	s.printf("\nGenerated documents for %d postings, index at %s\n", len(sets), index)
	return nil
}

func documentFormats(list string, defaults []string) ([]documents.Format, error) {
	names := splitList(list)
	if len(names) == 0 {
		names = defaults
	}
	formats := make([]documents.Format, 0, len(names))
	for _, name := range names {
		f, err := documents.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// documentGenerator returns the template generator, wrapped with the AI enhancer
// when AI is enabled and usable.
func documentGenerator(s *session, noAI bool) documents.Generator {
	base := documents.NewTemplateGenerator(documents.WithIndex(s.index))
	if noAI || !s.config.AI.Enabled {
		return base
	}

	model, err := newAIGenerator(s.ctx, s.config.AI, s.logger)
	if err != nil {
		s.logger.Warn("generating documents without AI", zap.Error(err))
		return base
	}
	return documents.NewAIEnhancer(base, model, s.logger)
}

// pendingDocuments returns the job keys of the best identified applications.
func pendingDocuments(tr *tracker.Tracker, profileID string, n int) []string {
	apps := tr.List(tracker.Filter{
		Statuses:  []tracker.Status{tracker.Identified},
		ProfileID: profileID,
	}, tracker.SortLikelihood)
	if n > 0 && len(apps) > n {
		apps = apps[:n]
	}

	keys := make([]string, 0, len(apps))
	for _, app := range apps {
		keys = append(keys, app.JobID)
	}
	return keys
}

// markReady walks the application through the document statuses up to
// READY_TO_APPLY, recording the document paths on the way.
func markReady(s *session, tr *tracker.Tracker, app *tracker.Application, set *documents.Set) error {
	if app.Status.Order() > tracker.ReadyToApply.Order() {
		s.logger.Warn("documents regenerated for an application past READY_TO_APPLY",
			append(logger.ApplicationFields(app.ID, app.JobID, app.ProfileID),
				zap.String(logger.FieldStatus, string(app.Status)))...,
		)
		return nil
	}

	resume, cover := filepath.ToSlash(set.Resume.Path), filepath.ToSlash(set.CoverLetter.Path)
	steps := []struct {
		status tracker.Status
		note   string
	}{
		{tracker.ResumeGenerated, "resume generated"},
		{tracker.CoverLetterGenerated, "cover letter generated"},
		{tracker.ReadyToApply, "documents ready"},
	}

	for _, step := range steps {
		if app.Status.Order() >= step.status.Order() {
			continue
		}
		next, err := tr.Transition(app.ID, step.status, step.note,
			tracker.WithActor(tracker.ActorUser),
			tracker.WithDocuments(resume, cover),
		)
		if err != nil {
			return err
		}
		app = next
	}
	return nil
}

func printDiff(s *session, doc *documents.Document) {
	if doc == nil || doc.Base == "" {
		return
	}
	diff := documents.Diff(doc.Base, doc.Content)
	if !diff.Changed() {
		s.printf("\n%s: AI enhancement made no changes\n", doc.Kind)
		return
	}
	s.printf("\n%s: +%d -%d lines\n%s\n", doc.Kind, diff.Insertions, diff.Deletions, diff)
}
