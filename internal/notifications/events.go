package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Withdrawal lifecycle event types
const (
	EventWithdrawalCreated   = "withdrawal.created"
	EventWithdrawalDelayed   = "withdrawal.delayed"
	EventWithdrawalReview    = "withdrawal.pending_review"
	EventWithdrawalApproved  = "withdrawal.approved"
	EventWithdrawalRejected  = "withdrawal.rejected"
	EventWithdrawalCancelled = "withdrawal.cancelled"
)

const (
	// SubjectPrefix is prepended to the event type to form the NATS subject.
	SubjectPrefix = "payouts."
	// MessagingSubject receives rendered tutor messages for delivery.
	MessagingSubject = "messaging.tutor.push"
)

// WithdrawalEventData is the payload of every withdrawal lifecycle event
type WithdrawalEventData struct {
	WithdrawalID uuid.UUID       `json:"withdrawal_id"`
	TutorID      uuid.UUID       `json:"tutor_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	Decision     string          `json:"decision,omitempty"`
	BankName     string          `json:"bank_name,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	DelayUntil   *time.Time      `json:"delay_until,omitempty"`
}

// TutorMessage is a localized message handed to the messaging service
type TutorMessage struct {
	TutorID uuid.UUID         `json:"tutor_id"`
	Kind    string            `json:"kind"`
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
}
