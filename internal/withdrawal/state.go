package withdrawal

import (
	"fmt"

	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/pkg/common"
)

var transitions = map[Status][]Status{
	StatusPending:       {StatusApproved, StatusDelayed, StatusPendingReview, StatusRejected, StatusCancelled},
	StatusDelayed:       {StatusApproved, StatusPendingReview, StatusRejected, StatusCancelled},
	StatusPendingReview: {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:      nil,
	StatusRejected:      nil,
	StatusCancelled:     nil,
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	case StatusPending, StatusPendingReview, StatusDelayed:
		return false
	default:
		return true
	}
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidStateError for a transition outside the table.
func ValidateTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	if from.IsTerminal() {
		return common.NewInvalidStateError(fmt.Sprintf("withdrawal is already %s", from))
	}
	return common.NewInvalidStateError(fmt.Sprintf("cannot move withdrawal from %s to %s", from, to))
}

// InitialStatus maps a scoring decision to the status the request settles in.
func InitialStatus(d scoring.Decision) (Status, error) {
	switch d {
	case scoring.DecisionAutoApprove:
		return StatusApproved, nil
	case scoring.DecisionDelayed:
		return StatusDelayed, nil
	case scoring.DecisionManualReview:
		return StatusPendingReview, nil
	case scoring.DecisionRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown decision %q", d)
	}
}

// InsertStatus is the status a new request is stored with. Decisions that need a
// follow-up action (transfer or release) start as pending and transition after it.
func InsertStatus(d scoring.Decision) (Status, error) {
	target, err := InitialStatus(d)
	if err != nil {
		return "", err
	}
	switch target {
	case StatusApproved, StatusRejected:
		return StatusPending, nil
	default:
		return target, nil
	}
}
