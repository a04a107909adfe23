package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Timeline event labels
const (
	EventCreated      = "created"
	EventApproved     = "approved"
	EventRejected     = "rejected"
	EventCancelled    = "cancelled"
	EventPayoutFailed = "payout_failed"
	EventEscalated    = "escalated"
)

// Severity of a system alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types raised by the payout workflow
const (
	AlertInsufficientPlatformFunds = "INSUFFICIENT_PLATFORM_FUNDS"
	AlertGatewayUnavailable        = "GATEWAY_UNAVAILABLE"
	AlertPayoutFailed              = "PAYOUT_FAILED"
)

// FraudCheckLog is one rule result, stored forever
type FraudCheckLog struct {
	ID                  uuid.UUID  `json:"id"`
	TutorID             uuid.UUID  `json:"tutor_id"`
	WithdrawalRequestID *uuid.UUID `json:"withdrawal_request_id,omitempty"`
	RuleName            string     `json:"rule_name"`
	Passed              bool       `json:"passed"`
	Message             string     `json:"message"`
	CheckedAt           time.Time  `json:"checked_at"`
}

// TimelineEvent is one step in a withdrawal's history
type TimelineEvent struct {
	ID                  uuid.UUID       `json:"id"`
	WithdrawalRequestID uuid.UUID       `json:"withdrawal_request_id"`
	Event               string          `json:"event"`
	ActorID             *uuid.UUID      `json:"actor_id,omitempty"`
	Details             json.RawMessage `json:"details,omitempty"`
	Timestamp           time.Time       `json:"timestamp"`
}

// SystemAlert is an operational alert for admins. Only the resolution fields change.
type SystemAlert struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FraudLogFilter narrows the fraud log listing
type FraudLogFilter struct {
	TutorID  *uuid.UUID
	RuleName *string
	Passed   *bool
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
