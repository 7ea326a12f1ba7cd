package tracker

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrNotFound           = errors.New("application not found")
	ErrPersistenceCorrupt = errors.New("tracker store is corrupt")
	ErrUnknownStatus      = errors.New("unknown status")
)

// TransitionError reports a rejected status change. The application is left unchanged.
type TransitionError struct {
	ApplicationID string
	From          Status
	To            Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("application %s: cannot move from %s to %s", e.ApplicationID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
