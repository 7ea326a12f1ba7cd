package tracker

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/matching"
)

const (
	StoreFile = "applications.json"
	AuditFile = "audit.jsonl"
)

const (
	ActionCreate     = "create"
	ActionTransition = "transition"
)

type pairKey struct {
	jobID     string
	profileID string
}

// Tracker serializes every operation on the application collection behind one lock.
// Reads return copies taken under the same lock.
type Tracker struct {
	mu     sync.Mutex
	apps   map[string]*Application
	byPair map[pairKey]string

	store  *Store
	audit  *AuditLog
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Tracker)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(t *Tracker) { t.newID = gen }
}

// Open loads the tracker kept in dataDir.
func Open(dataDir string, opts ...Option) (*Tracker, error) {
	return New(
		NewStore(filepath.Join(dataDir, StoreFile)),
		NewAuditLog(filepath.Join(dataDir, AuditFile)),
		opts...,
	)
}

// New loads the store. It fails with ErrPersistenceCorrupt when the store cannot be read.
func New(store *Store, audit *AuditLog, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:  store,
		audit:  audit,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logger.WithFields(t.logger)

	apps, err := store.Load()
	if err != nil {
		return nil, err
	}

	t.apps = apps
	t.byPair = make(map[pairKey]string, len(apps))
	for id, app := range apps {
		key := pairKey{app.JobID, app.ProfileID}
		if other, dup := t.byPair[key]; dup {
			return nil, fmt.Errorf("%w: applications %s and %s track the same job and profile", ErrPersistenceCorrupt, other, id)
		}
		t.byPair[key] = id
	}

	return t, nil
}

func (t *Tracker) AuditLog() *AuditLog {
	return t.audit
}

type upsertOptions struct {
	job   *JobSummary
	match *MatchSummary
	actor string
}

type UpsertOption func(*upsertOptions)

func WithJob(p *jobs.Posting) UpsertOption {
	return func(o *upsertOptions) { o.job = SummarizeJob(p) }
}

func WithMatch(r *matching.Result) UpsertOption {
	return func(o *upsertOptions) { o.match = SummarizeMatch(r) }
}

func WithCreator(actor string) UpsertOption {
	return func(o *upsertOptions) { o.actor = actor }
}

// Upsert returns the application for (jobID, profileID), creating it at IDENTIFIED
// when none exists. An existing application is returned unchanged. created reports
// whether a new record was made.
func (t *Tracker) Upsert(jobID, profileID string, opts ...UpsertOption) (app *Application, created bool, err error) {
	if jobID == "" || profileID == "" {
		return nil, false, fmt.Errorf("job id and profile id are required")
	}

	o := upsertOptions{actor: ActorSystem}
	for _, opt := range opts {
		opt(&o)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{jobID, profileID}
	if id, ok := t.byPair[key]; ok {
		return t.apps[id].Clone(), false, nil
	}

	now := t.now().UTC()
	app = &Application{
		ID:        t.newID(),
		JobID:     jobID,
		ProfileID: profileID,
		Status:    Identified,
		History:   []HistoryEntry{{Status: Identified, Timestamp: now, Note: "tracking started"}},
		CreatedAt: now,
		UpdatedAt: now,
		Job:       o.job,
		Match:     o.match,
	}

	t.apps[app.ID] = app
	t.byPair[key] = app.ID
	if err := t.store.Save(t.apps); err != nil {
		delete(t.apps, app.ID)
		delete(t.byPair, key)
		return nil, false, fmt.Errorf("application for job %s: %w", jobID, err)
	}

	t.record(AuditEntry{
		Actor:         o.actor,
		Action:        ActionCreate,
		ApplicationID: app.ID,
		Timestamp:     now,
		Outcome:       OutcomeCreated,
		Note:          jobID,
	})

	t.logger.Info("application tracked",
		append(logger.ApplicationFields(app.ID, jobID, profileID), zap.String(logger.FieldStatus, string(app.Status)))...,
	)

	return app.Clone(), true, nil
}

type transitionOptions struct {
	actor     string
	simulated bool
	documents *Documents
}

type TransitionOption func(*transitionOptions)

func WithActor(actor string) TransitionOption {
	return func(o *transitionOptions) { o.actor = actor }
}

// WithSimulated marks the transition as performed in dry-run mode.
func WithSimulated(simulated bool) TransitionOption {
	return func(o *transitionOptions) { o.simulated = simulated }
}

// WithDocuments attaches generated document paths. Empty paths keep previous values.
func WithDocuments(resume, coverLetter string) TransitionOption {
	return func(o *transitionOptions) { o.documents = &Documents{Resume: resume, CoverLetter: coverLetter} }
}

// Transition moves an application to target. A target equal to the current status
// is a no-op recorded as duplicate_suppressed. A target that is not a declared
// successor fails with a *TransitionError and leaves the application unchanged.
func (t *Tracker) Transition(id string, target Status, note string, opts ...TransitionOption) (*Application, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("application %s: %w: %q", id, ErrUnknownStatus, target)
	}

	o := transitionOptions{actor: ActorSystem}
	for _, opt := range opts {
		opt(&o)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	app, ok := t.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}

	now := t.now().UTC()
	entry := AuditEntry{
		Actor:         o.actor,
		Action:        fmt.Sprintf("%s %s->%s", ActionTransition, app.Status, target),
		ApplicationID: id,
		Timestamp:     now,
		Simulated:     o.simulated,
		Note:          note,
	}

	if target == app.Status {
		entry.Outcome = OutcomeDuplicateSuppressed
		t.record(entry)
		return app.Clone(), nil
	}

	if !app.Status.CanTransitionTo(target) {
		entry.Outcome = OutcomeRejected
		t.record(entry)
		return nil, &TransitionError{ApplicationID: id, From: app.Status, To: target}
	}

	// Every accepted transition is audited before it is committed.
	entry.Outcome = OutcomeAccepted
	if err := t.audit.Append(entry); err != nil {
		return nil, fmt.Errorf("application %s: audit transition: %w", id, err)
	}

	previous := app.Clone()
	app.Status = target
	app.UpdatedAt = now
	app.History = append(app.History, HistoryEntry{Status: target, Timestamp: now, Note: note, Simulated: o.simulated})
	if o.documents != nil {
		app.Documents = mergeDocuments(app.Documents, o.documents)
	}
	if target == Applied {
		appliedAt := now
		app.AppliedAt = &appliedAt
		app.Simulated = o.simulated
	}

	if err := t.store.Save(t.apps); err != nil {
		t.apps[id] = previous
		entry.Outcome = OutcomeRolledBack
		entry.Note = err.Error()
		t.record(entry)
		return nil, fmt.Errorf("application %s: %w", id, err)
	}

	t.logger.Info("application status changed",
		append(logger.ApplicationFields(id, app.JobID, app.ProfileID),
			zap.String("from", string(previous.Status)),
			zap.String(logger.FieldStatus, string(target)),
			zap.Bool("simulated", o.simulated),
		)...,
	)

	return app.Clone(), nil
}

// Get returns a copy of the application.
func (t *Tracker) Get(id string) (*Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	app, ok := t.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	return app.Clone(), nil
}

// Find returns the application tracking (jobID, profileID).
func (t *Tracker) Find(jobID, profileID string) (*Application, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.byPair[pairKey{jobID, profileID}]
	if !ok {
		return nil, fmt.Errorf("job %s for profile %s: %w", jobID, profileID, ErrNotFound)
	}
	return t.apps[id].Clone(), nil
}

// snapshot copies the collection under the lock.
func (t *Tracker) snapshot() []*Application {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*Application, 0, len(t.apps))
	for _, app := range t.apps {
		out = append(out, app.Clone())
	}
	return out
}

// record appends to the audit log for outcomes that do not change state. A failure
// is logged and otherwise ignored.
func (t *Tracker) record(entry AuditEntry) {
	if err := t.audit.Append(entry); err != nil {
		t.logger.Warn("audit entry was not written",
			zap.String(logger.FieldApplicationID, entry.ApplicationID),
			zap.String("outcome", entry.Outcome),
			zap.Error(err),
		)
	}
}

func mergeDocuments(current, update *Documents) *Documents {
	merged := &Documents{}
	if current != nil {
		*merged = *current
	}
	if update.Resume != "" {
		merged.Resume = update.Resume
	}
	if update.CoverLetter != "" {
		merged.CoverLetter = update.CoverLetter
	}
	return merged
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
