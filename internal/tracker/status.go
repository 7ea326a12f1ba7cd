package tracker

import (
	"fmt"
	"strings"
)

// Status is a step of the application lifecycle.
type Status string

const (
	Identified           Status = "IDENTIFIED"
	ResumeGenerated      Status = "RESUME_GENERATED"
	CoverLetterGenerated Status = "COVER_LETTER_GENERATED"
	ReadyToApply         Status = "READY_TO_APPLY"
	Applied              Status = "APPLIED"
	UnderReview          Status = "UNDER_REVIEW"
	InterviewScheduled   Status = "INTERVIEW_SCHEDULED"
	OfferReceived        Status = "OFFER_RECEIVED"
	Rejected             Status = "REJECTED"
	Withdrawn            Status = "WITHDRAWN"
)

// statuses in lifecycle order.
var statuses = []Status{
	Identified, ResumeGenerated, CoverLetterGenerated, ReadyToApply, Applied,
	UnderReview, InterviewScheduled, OfferReceived, Rejected, Withdrawn,
}

// successors is the transition table. WITHDRAWN is reachable from every
// non-terminal status and is not listed here.
var successors = map[Status][]Status{
	Identified:           {ResumeGenerated},
	ResumeGenerated:      {CoverLetterGenerated},
	CoverLetterGenerated: {ReadyToApply},
	ReadyToApply:         {Applied},
	Applied:              {UnderReview},
	UnderReview:          {InterviewScheduled},
	InterviewScheduled:   {OfferReceived, Rejected},
	OfferReceived:        nil,
	Rejected:             nil,
	Withdrawn:            nil,
}

func AllStatuses() []Status {
	return append([]Status(nil), statuses...)
}

func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "-", "_"))))
	if _, ok := successors[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return status, nil
}

func (s Status) Valid() bool {
	_, ok := successors[s]
	return ok
}

func (s Status) Terminal() bool {
	return s == OfferReceived || s == Rejected || s == Withdrawn
}

// Active reports whether the application is still in progress.
func (s Status) Active() bool {
	return s.Valid() && !s.Terminal()
}

// Successors returns the statuses reachable from s in one transition.
func (s Status) Successors() []Status {
	next := append([]Status(nil), successors[s]...)
	if s.Active() {
		next = append(next, Withdrawn)
	}
	return next
}

// CanTransitionTo reports whether target is a declared successor of s.
func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range s.Successors() {
		if next == target {
			return true
		}
	}
	return false
}

// Order is the position of s in the lifecycle, used for sorting.
func (s Status) Order() int {
	for i, st := range statuses {
		if st == s {
			return i
		}
	}
	return len(statuses)
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
