package gateway

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount is the payout destination
type BankAccount struct {
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BankBin       string `json:"bank_bin"`
}

// TransferResult is the outcome of one payout call. It is stored under the
// idempotency key and replayed on repeat calls.
type TransferResult struct {
	Success       bool      `json:"success"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	CompletedAt   time.Time `json:"completed_at"`
}

// BalanceLevel classifies the settlement account balance
type BalanceLevel string

const (
	BalanceNormal   BalanceLevel = "normal"
	BalanceWarning  BalanceLevel = "warning"
	BalanceCritical BalanceLevel = "critical"
)

// PlatformBalance is the settlement account snapshot shown to admins
type PlatformBalance struct {
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Level     BalanceLevel    `json:"level"`
	CheckedAt time.Time       `json:"checked_at"`
}
