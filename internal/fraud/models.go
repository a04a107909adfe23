package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleName is the wire name of a fraud rule.
type RuleName string

const (
	RuleWithdrawSpeed    RuleName = "WITHDRAW_SPEED"
	RuleBankAccountMatch RuleName = "BANK_ACCOUNT_MATCH"
	RuleIPConsistency    RuleName = "IP_CONSISTENCY"
	RuleEmailVerified    RuleName = "EMAIL_VERIFIED"
)

// AllRules lists every rule in evaluation order.
var AllRules = []RuleName{
	RuleWithdrawSpeed,
	RuleBankAccountMatch,
	RuleIPConsistency,
	RuleEmailVerified,
}

// ParseRuleName validates a wire rule name.
func ParseRuleName(s string) (RuleName, error) {
	for _, r := range AllRules {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown fraud rule %q", s)
}

// RuleResult is the outcome of one rule for one attempt.
type RuleResult struct {
	RuleName RuleName `json:"rule_name"`
	Passed   bool     `json:"passed"`
	Message  string   `json:"message"`
}

// TutorContext is what the engine knows about the tutor.
type TutorContext struct {
	TutorID       uuid.UUID `json:"tutor_id"`
	LegalName     string    `json:"legal_name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Attempt describes the withdrawal being evaluated.
type Attempt struct {
	WithdrawalID   uuid.UUID
	Amount         decimal.Decimal
	BankHolderName string
	IP             string
	At             time.Time
}

// Rule checks one risk signal. A returned error is reported as a failed check.
type Rule interface {
	Name() RuleName
	Check(ctx context.Context, tutor TutorContext, attempt Attempt) (passed bool, message string, err error)
}

// HistorySource provides the tutor history the rules and the scorer need.
type HistorySource interface {
	// LastWithdrawalAt returns the creation time of the tutor's latest live withdrawal,
	// ignoring exclude. Nil means none.
	LastWithdrawalAt(ctx context.Context, tutorID, exclude uuid.UUID) (*time.Time, error)
	// KnownSessionIPs returns distinct IPs from the tutor's login sessions.
	KnownSessionIPs(ctx context.Context, tutorID uuid.UUID) ([]string, error)
	// CompletedWithdrawals counts approved withdrawals.
	CompletedWithdrawals(ctx context.Context, tutorID uuid.UUID) (int, error)
	// Tutor loads the tutor's verified profile.
	Tutor(ctx context.Context, tutorID uuid.UUID) (*TutorContext, error)
}
