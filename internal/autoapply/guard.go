package autoapply

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/tracker"
)

var (
	ErrNoPendingConfirmation = errors.New("no confirmation is pending for the application")
	ErrInvalidConfig         = errors.New("invalid auto-apply configuration")
)

type Kind string

const (
	Allow                Kind = "ALLOW"
	Deny                 Kind = "DENY"
	RequiresConfirmation Kind = "REQUIRES_CONFIRMATION"
)

// Deny reasons.
const (
	ReasonRateLimited     = "RateLimited"
	ReasonNotReady        = "NotReady"
	ReasonNotFound        = "NotFound"
	ReasonExcludedCompany = "ExcludedCompany"
	ReasonInFlight        = "InFlight"
)

const ActionAuthorize = "authorize"

type Decision struct {
	Kind          Kind   `json:"kind"`
	Reason        string `json:"reason,omitempty"`
	ApplicationID string `json:"application_id"`
	// Simulated is set for dry-run approvals. Nothing leaves the process for them.
	Simulated bool `json:"simulated,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

func (d Decision) String() string {
	if d.Reason != "" {
		return fmt.Sprintf("%s(%s)", d.Kind, d.Reason)
	}
	return string(d.Kind)
}

type Mode struct {
	DryRun    bool
	NoConfirm bool
}

type Config struct {
	RateLimit        int           `mapstructure:"rate-limit" json:"rate-limit"`
	Window           time.Duration `mapstructure:"window" json:"window"`
	ExcludeCompanies []string      `mapstructure:"exclude-companies" json:"exclude-companies"`
}

func (c Config) Validate() error {
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate limit must be positive, got %d", ErrInvalidConfig, c.RateLimit)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Applications is the part of the tracker the guard reads.
type Applications interface {
	Get(id string) (*tracker.Application, error)
}

// Guard gates moves into APPLIED. It owns the sliding window of real
// submissions, the outstanding confirmations and the applications being
// submitted right now, all behind mu. The guard lock is always taken before
// any tracker call.
type Guard struct {
	mu           sync.Mutex
	cfg          Config
	apps         Applications
	audit        *tracker.AuditLog
	logger       *zap.Logger
	now          func() time.Time
	allowed      []time.Time
	pending      map[string]bool
	acknowledged map[string]bool
	inFlight     map[string]bool
}

type GuardOption func(*Guard)

func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) { g.now = now }
}

func WithGuardLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

// WithAuditLog records every decision. Without it decisions are only logged.
func WithAuditLog(audit *tracker.AuditLog) GuardOption {
	return func(g *Guard) { g.audit = audit }
}

// WithPriorApprovals seeds the window with the real approvals recorded by earlier
// runs, so the cap holds across process restarts.
func WithPriorApprovals(entries []tracker.AuditEntry) GuardOption {
	return func(g *Guard) {
		for _, e := range entries {
			if e.Action == ActionAuthorize && e.Outcome == OutcomeAllow && !e.Simulated {
				g.allowed = append(g.allowed, e.Timestamp)
			}
		}
		sort.Slice(g.allowed, func(i, j int) bool { return g.allowed[i].Before(g.allowed[j]) })
	}
}

func NewGuard(cfg Config, apps Applications, opts ...GuardOption) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if apps == nil {
		return nil, fmt.Errorf("%w: applications are required", ErrInvalidConfig)
	}

	g := &Guard{
		cfg:          cfg,
		apps:         apps,
		now:          time.Now,
		pending:      make(map[string]bool),
		acknowledged: make(map[string]bool),
		inFlight:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logger.WithFields(g.logger)

	return g, nil
}

// Authorize decides whether the application may move to APPLIED now.
//
// Checks run in order: the application must be READY_TO_APPLY and not from an
// excluded company; dry-run is then always allowed and does not use the window;
// a full window denies with RateLimited; a real submission without NoConfirm
// needs a prior Confirm. Only real approvals take a slot in the window.
//
// An approval reserves the application until Release, and a second Authorize
// for it is denied with InFlight in the meantime.
func (g *Guard) Authorize(id string, mode Mode) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := g.decide(id, mode)
	g.audited(d)
	return d
}

func (g *Guard) decide(id string, mode Mode) Decision {
	d := Decision{ApplicationID: id}

	app, err := g.apps.Get(id)
	if err != nil {
		d.Kind, d.Reason = Deny, ReasonNotFound
		return d
	}
	if app.Status != tracker.ReadyToApply {
		d.Kind, d.Reason = Deny, ReasonNotReady
		return d
	}
	if g.inFlight[id] {
		d.Kind, d.Reason = Deny, ReasonInFlight
		return d
	}
	if g.excluded(app.Company()) {
		d.Kind, d.Reason = Deny, ReasonExcludedCompany
		return d
	}

	if mode.DryRun {
		g.inFlight[id] = true
		d.Kind, d.Simulated = Allow, true
		return d
	}

	now := g.now()
	g.prune(now)
	if len(g.allowed) >= g.cfg.RateLimit {
		d.Kind, d.Reason = Deny, ReasonRateLimited
		return d
	}

	if !mode.NoConfirm && !g.acknowledged[id] {
		g.pending[id] = true
		d.Kind = RequiresConfirmation
		return d
	}

	delete(g.acknowledged, id)
	delete(g.pending, id)
	g.allowed = append(g.allowed, now)
	g.inFlight[id] = true
	d.Kind = Allow
	return d
}

// Release ends the reservation taken by an approval, once the application was
// moved to APPLIED or the submission failed. The window slot is kept either way.
func (g *Guard) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.inFlight, id)
}

// Confirm acknowledges an outstanding REQUIRES_CONFIRMATION decision. The next
// Authorize call for the same application may then be allowed.
func (g *Guard) Confirm(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.pending[id] {
		return fmt.Errorf("application %s: %w", id, ErrNoPendingConfirmation)
	}
	delete(g.pending, id)
	g.acknowledged[id] = true
	return nil
}

// Remaining reports how many real submissions the current window still admits.
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(g.now())
	return g.cfg.RateLimit - len(g.allowed)
}

// prune drops approvals that fell out of the window ending at now.
func (g *Guard) prune(now time.Time) {
	cutoff := now.Add(-g.cfg.Window)
	keep := 0
	for keep < len(g.allowed) && !g.allowed[keep].After(cutoff) {
		keep++
	}
	g.allowed = g.allowed[keep:]
}

func (g *Guard) excluded(company string) bool {
	for _, c := range g.cfg.ExcludeCompanies {
		if c != "" && strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(company)) {
			return true
		}
	}
	return false
}

func (g *Guard) audited(d Decision) {
	fields := []zap.Field{
		zap.String(logger.FieldApplicationID, d.ApplicationID),
		zap.String("decision", string(d.Kind)),
		zap.String("reason", d.Reason),
		zap.Bool("simulated", d.Simulated),
	}
	g.logger.Debug("auto-apply decision", fields...)

	if g.audit == nil {
		return
	}
	err := g.audit.Append(tracker.AuditEntry{
		Actor:         tracker.ActorSystem,
		Action:        ActionAuthorize,
		ApplicationID: d.ApplicationID,
		Timestamp:     g.now().UTC(),
		Outcome:       outcome(d),
		Simulated:     d.Simulated,
		Note:          d.Reason,
	})
	if err != nil {
		g.logger.Warn("audit entry was not written", append(fields, zap.Error(err))...)
	}
}

// Audit outcomes of guard decisions.
const (
	OutcomeAllow                = "allow"
	OutcomeDeny                 = "deny"
	OutcomeRequiresConfirmation = "requires_confirmation"
)

func outcome(d Decision) string {
	switch d.Kind {
	case Allow:
		return OutcomeAllow
	case RequiresConfirmation:
		return OutcomeRequiresConfirmation
	default:
		return OutcomeDeny
	}
}
