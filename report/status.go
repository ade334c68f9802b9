package report

import "fmt"

// Status is the review state of a report.
type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusInReview, StatusResolved, StatusRejected}

// QueueStatuses are the statuses a moderator still has to act on.
var QueueStatuses = []Status{StatusPending, StatusInReview}

var transitions = map[Status][]Status{
	StatusPending:  {StatusInReview, StatusRejected},
	StatusInReview: {StatusResolved, StatusRejected, StatusPending},
	StatusResolved: {StatusInReview},
	StatusRejected: {StatusInReview},
}

// ParseStatus converts s into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s closes the report for owner edits.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// CanTransition reports whether a report may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change. changed is false when from == to.
func Transition(from, to Status) (changed bool, err error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return from != to, nil
}

// NextStatuses returns the statuses reachable from s, excluding s itself.
func NextStatuses(s Status) []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}
