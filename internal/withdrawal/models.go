package withdrawal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/richxcame/tutor-payouts/internal/scoring"
)

// Status is the lifecycle state of a withdrawal request.
type Status string

const (
	StatusPending       Status = "pending"
	StatusPendingReview Status = "pending_review"
	StatusDelayed       Status = "delayed"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusCancelled     Status = "cancelled"
)

// AllStatuses lists every status.
var AllStatuses = []Status{
	StatusPending,
	StatusPendingReview,
	StatusDelayed,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
}

// ParseStatus validates a wire status.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown withdrawal status %q", s)
}

// BankDetails is the payout destination captured when the request was made.
type BankDetails struct {
	HolderName    string `json:"holder_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	BankBin       string `json:"bank_bin"`
}

// Request is a tutor withdrawal request.
type Request struct {
	ID                   uuid.UUID        `json:"id"`
	TutorID              uuid.UUID        `json:"tutor_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Bank                 BankDetails      `json:"bank"`
	Status               Status           `json:"status"`
	Decision             scoring.Decision `json:"decision"`
	HoldID               uuid.UUID        `json:"hold_id"`
	RequestIP            string           `json:"request_ip"`
	DelayUntil           *time.Time       `json:"delay_until,omitempty"`
	PayoutClaimUntil     *time.Time       `json:"-"`
	ProcessedAt          *time.Time       `json:"processed_at,omitempty"`
	ProcessedByID        *uuid.UUID       `json:"processed_by_id,omitempty"`
	GatewayTransactionID *string          `json:"gateway_transaction_id,omitempty"`
	GatewayStatus        *string          `json:"gateway_status,omitempty"`
	Version              int              `json:"version"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// ClaimActive reports whether a payout is in flight for this request.
func (r *Request) ClaimActive(now time.Time) bool {
	return r.PayoutClaimUntil != nil && r.PayoutClaimUntil.After(now)
}

// Change carries the columns written alongside a status transition.
type Change struct {
	ProcessedAt          *time.Time
	ProcessedByID        *uuid.UUID
	GatewayTransactionID *string
	GatewayStatus        *string
	// OwnsClaim is set by the payout path that holds the lease. Other writers
	// lose to an active lease.
	OwnsClaim bool
}

// ListFilter filters the admin request list.
type ListFilter struct {
	Status  *Status
	TutorID *uuid.UUID
	Limit   int
	Offset  int
}

// StatusSummary aggregates requests in one status.
type StatusSummary struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Overview holds request aggregates for the admin dashboard.
type Overview struct {
	ByStatus      map[Status]StatusSummary `json:"by_status"`
	ApprovedToday StatusSummary            `json:"approved_today"`
	DueDelayed    int64                    `json:"due_delayed"`
	AverageScore  float64                  `json:"average_score"`
}
