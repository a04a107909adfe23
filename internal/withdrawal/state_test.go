package withdrawal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richxcame/tutor-payouts/internal/scoring"
	"github.com/richxcame/tutor-payouts/pkg/common"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:       {StatusApproved, StatusDelayed, StatusPendingReview, StatusRejected, StatusCancelled},
		StatusDelayed:       {StatusApproved, StatusPendingReview, StatusRejected, StatusCancelled},
		StatusPendingReview: {StatusApproved, StatusRejected, StatusCancelled},
	}

	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatesNeverTransition(t *testing.T) {
	for _, from := range []Status{StatusApproved, StatusRejected, StatusCancelled} {
		assert.True(t, from.IsTerminal())
		for _, to := range AllStatuses {
			err := ValidateTransition(from, to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrInvalidState))
			assert.Contains(t, err.Error(), "already")
		}
	}
}

func TestValidateTransition_NotInTable(t *testing.T) {
	err := ValidateTransition(StatusPendingReview, StatusDelayed)
	assert.True(t, errors.Is(err, common.ErrInvalidState))
	assert.NoError(t, ValidateTransition(StatusDelayed, StatusPendingReview))
}

func TestInitialAndInsertStatus(t *testing.T) {
	tests := []struct {
		decision scoring.Decision
		initial  Status
		insert   Status
	}{
		{scoring.DecisionAutoApprove, StatusApproved, StatusPending},
		{scoring.DecisionDelayed, StatusDelayed, StatusDelayed},
		{scoring.DecisionManualReview, StatusPendingReview, StatusPendingReview},
		{scoring.DecisionRejected, StatusRejected, StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.decision), func(t *testing.T) {
			initial, err := InitialStatus(tt.decision)
			require.NoError(t, err)
			assert.Equal(t, tt.initial, initial)

			insert, err := InsertStatus(tt.decision)
			require.NoError(t, err)
			assert.Equal(t, tt.insert, insert)
			if insert != initial {
				assert.True(t, CanTransition(insert, initial))
			}
		})
	}

	_, err := InitialStatus("MAYBE")
	assert.Error(t, err)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("pending_review")
	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, s)

	_, err = ParseStatus("paid")
	assert.Error(t, err)
	assert.True(t, Status("paid").IsTerminal())
}
