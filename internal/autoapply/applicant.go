package autoapply

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/tracker"
	"github.com/spigell/job-matcher/internal/utils"
)

// Store is the tracker surface the applicant drives.
type Store interface {
	Applications
	Transition(id string, target tracker.Status, note string, opts ...tracker.TransitionOption) (*tracker.Application, error)
	List(f tracker.Filter, key tracker.SortKey) []*tracker.Application
}

// ConfirmFunc asks the user to acknowledge a submission.
type ConfirmFunc func(app *tracker.Application) (bool, error)

type Outcome struct {
	ApplicationID string
	Decision      Decision
	// Declined is set when the user refused the confirmation prompt.
	Declined    bool
	Submission  *Submission
	Application *tracker.Application
}

func (o *Outcome) Applied() bool {
	return o.Application != nil && o.Application.Status == tracker.Applied
}

type Applicant struct {
	guard     *Guard
	apps      Store
	submitter Submitter
	confirm   ConfirmFunc
	delay     time.Duration
	logger    *zap.Logger
}

type ApplicantOption func(*Applicant)

func WithConfirm(fn ConfirmFunc) ApplicantOption {
	return func(a *Applicant) { a.confirm = fn }
}

// WithDelay pauses between consecutive real submissions of a batch.
func WithDelay(d time.Duration) ApplicantOption {
	return func(a *Applicant) { a.delay = d }
}

func WithApplicantLogger(l *zap.Logger) ApplicantOption {
	return func(a *Applicant) { a.logger = l }
}

func NewApplicant(guard *Guard, apps Store, submitter Submitter, opts ...ApplicantOption) *Applicant {
	a := &Applicant{guard: guard, apps: apps, submitter: submitter}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logger.WithFields(a.logger)
	return a
}

// Apply authorizes one application and, when allowed, submits it and moves it to
// APPLIED. Dry-run approvals skip the submitter and mark the move as simulated.
// Without a ConfirmFunc a REQUIRES_CONFIRMATION decision is returned to the caller.
func (a *Applicant) Apply(ctx context.Context, id string, mode Mode) (*Outcome, error) {
	out := &Outcome{ApplicationID: id}

	d := a.guard.Authorize(id, mode)
	if d.Kind == RequiresConfirmation && a.confirm != nil {
		app, err := a.apps.Get(id)
		if err != nil {
			return out, err
		}
		ok, err := a.confirm(app)
		if err != nil {
			return out, fmt.Errorf("confirm application %s: %w", id, err)
		}
		if !ok {
			out.Decision, out.Declined = d, true
			a.logger.Info("submission declined", zap.String(logger.FieldApplicationID, id))
			return out, nil
		}
		if err := a.guard.Confirm(id); err != nil {
			return out, err
		}
		d = a.guard.Authorize(id, mode)
	}

	out.Decision = d
	if !d.Allowed() {
		return out, nil
	}
	defer a.guard.Release(id)

	app, err := a.apps.Get(id)
	if err != nil {
		return out, err
	}

	note := "dry run: nothing was submitted"
	if !d.Simulated {
		sub, err := a.submitter.Submit(ctx, app)
		if err != nil {
			return out, fmt.Errorf("submit application %s: %w", id, err)
		}
		out.Submission = sub
		note = sub.Note
	}

	applied, err := a.apps.Transition(id, tracker.Applied, note, tracker.WithSimulated(d.Simulated))
	if err != nil {
		return out, err
	}
	out.Application = applied

	a.logger.Info("application submitted",
		append(logger.ApplicationFields(id, applied.JobID, applied.ProfileID),
			zap.Bool("simulated", d.Simulated),
			zap.String("company", applied.Company()),
		)...,
	)
	return out, nil
}

// ApplyTop runs Apply over up to n READY_TO_APPLY applications, most likely hire
// first. n <= 0 means all of them. The batch stops at the first rate-limit
// denial. Errors on single applications do not stop the batch; they are joined
// into the returned error.
func (a *Applicant) ApplyTop(ctx context.Context, n int, mode Mode) ([]*Outcome, error) {
	ready := a.apps.List(tracker.Filter{Statuses: []tracker.Status{tracker.ReadyToApply}}, tracker.SortLikelihood)
	if n > 0 && len(ready) > n {
		ready = ready[:n]
	}

	var (
		outcomes  []*Outcome
		errs      []error
		submitted bool
	)
	for _, app := range ready {
		if submitted {
			if err := utils.WaitFor(ctx, a.delay); err != nil {
				return outcomes, errors.Join(append(errs, err)...)
			}
		}

		out, err := a.Apply(ctx, app.ID, mode)
		outcomes = append(outcomes, out)
		if err != nil {
			a.logger.Warn("application was not submitted", zap.String(logger.FieldApplicationID, app.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		submitted = out.Applied() && !out.Decision.Simulated
		if out.Decision.Kind == Deny && out.Decision.Reason == ReasonRateLimited {
			a.logger.Info("rate limit reached, stopping batch", zap.Int("processed", len(outcomes)), zap.Int("ready", len(ready)))
			break
		}
	}

	return outcomes, errors.Join(errs...)
}

// AttemptStats summarizes submission attempts recorded in the audit log.
type AttemptStats struct {
	Allowed               int `json:"allowed"`
	Simulated             int `json:"simulated"`
	Denied                int `json:"denied"`
	RateLimited           int `json:"rate_limited"`
	ConfirmationsRequired int `json:"confirmations_required"`
	Submitted             int `json:"submitted"`
}

func Attempts(entries []tracker.AuditEntry) AttemptStats {
	var st AttemptStats
	appliedSuffix := "->" + string(tracker.Applied)

	for _, e := range entries {
		switch {
		case e.Action == ActionAuthorize:
			switch e.Outcome {
			case OutcomeAllow:
				if e.Simulated {
					st.Simulated++
				} else {
					st.Allowed++
				}
			case OutcomeDeny:
				st.Denied++
				if e.Note == ReasonRateLimited {
					st.RateLimited++
				}
			case OutcomeRequiresConfirmation:
				st.ConfirmationsRequired++
			}
		case strings.HasSuffix(e.Action, appliedSuffix) && e.Outcome == tracker.OutcomeAccepted && !e.Simulated:
			st.Submitted++
		}
	}
	return st
}
