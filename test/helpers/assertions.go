package helpers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/richxcame/tutor-payouts/internal/ledger"
)

// AssertWallet asserts a wallet's balance and frozen amounts
func AssertWallet(t *testing.T, w *ledger.Wallet, balance, frozen string) {
	t.Helper()
	assert.True(t, w.Balance.Equal(decimal.RequireFromString(balance)), "balance: want %s, got %s", balance, w.Balance)
	assert.True(t, w.Frozen.Equal(decimal.RequireFromString(frozen)), "frozen: want %s, got %s", frozen, w.Frozen)
	assert.False(t, w.Available().IsNegative(), "available balance went negative")
}

// AssertTimeline asserts the ordered event labels of a timeline
func AssertTimeline(t *testing.T, events []string, expected ...string) {
	t.Helper()
	assert.Equal(t, expected, events)
}
