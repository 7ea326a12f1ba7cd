package tracker

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	ActorSystem = "system"
	ActorUser   = "user"
)

// Audit outcomes.
const (
	OutcomeCreated             = "created"
	OutcomeAccepted            = "accepted"
	OutcomeRejected            = "rejected"
	OutcomeDuplicateSuppressed = "duplicate_suppressed"
	OutcomeRolledBack          = "rolled_back"
)

// AuditEntry is an append-only record. Entries are never rewritten or removed.
type AuditEntry struct {
	Actor         string    `json:"actor"`
	Action        string    `json:"action"`
	ApplicationID string    `json:"applicationId"`
	Timestamp     time.Time `json:"timestamp"`
	Outcome       string    `json:"outcome"`
	Simulated     bool      `json:"simulated,omitempty"`
	Note          string    `json:"note,omitempty"`
}

// AuditLog appends entries as JSON lines.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

func (l *AuditLog) Path() string {
	return l.path
}

func (l *AuditLog) Append(entry AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append audit entry: %w", err)
	}
	return f.Close()
}

// Entries reads the whole log. A missing log is empty.
func (l *AuditLog) Entries() ([]AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []AuditEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("audit log line %d: %w", n, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}
