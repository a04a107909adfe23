package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HoldStatus is the lifecycle of a balance reservation
type HoldStatus string

const (
	HoldHeld      HoldStatus = "held"
	HoldCommitted HoldStatus = "committed"
	HoldReleased  HoldStatus = "released"
)

// Wallet is a tutor's spendable balance plus the part frozen by open withdrawals.
type Wallet struct {
	TutorID   uuid.UUID       `json:"tutor_id"`
	Balance   decimal.Decimal `json:"balance"`
	Frozen    decimal.Decimal `json:"frozen"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Available is the amount a tutor may still withdraw
func (w *Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Frozen)
}

// Hold reserves part of a wallet for one withdrawal
type Hold struct {
	ID           uuid.UUID       `json:"id"`
	TutorID      uuid.UUID       `json:"tutor_id"`
	WithdrawalID uuid.UUID       `json:"withdrawal_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       HoldStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	SettledAt    *time.Time      `json:"settled_at,omitempty"`
}

// Open reports whether the hold still freezes funds
func (h *Hold) Open() bool {
	return h.Status == HoldHeld
}
