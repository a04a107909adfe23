package fraud

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

// DefaultRules builds the standard rule set in AllRules order.
func DefaultRules(history HistorySource, cfg config.RiskConfig) []Rule {
	return []Rule{
		NewWithdrawSpeedRule(history, cfg.WithdrawCooldown),
		NewBankAccountMatchRule(cfg.NameSimilarityThreshold),
		NewIPConsistencyRule(history),
		EmailVerifiedRule{},
	}
}

// WithdrawSpeedRule flags withdrawals inside the cooldown after the previous one.
type WithdrawSpeedRule struct {
	history  HistorySource
	cooldown time.Duration
}

func NewWithdrawSpeedRule(history HistorySource, cooldown time.Duration) *WithdrawSpeedRule {
	return &WithdrawSpeedRule{history: history, cooldown: cooldown}
}

func (r *WithdrawSpeedRule) Name() RuleName { return RuleWithdrawSpeed }

func (r *WithdrawSpeedRule) Check(ctx context.Context, tutor TutorContext, attempt Attempt) (bool, string, error) {
	last, err := r.history.LastWithdrawalAt(ctx, tutor.TutorID, attempt.WithdrawalID)
	if err != nil {
		return false, "", fmt.Errorf("load last withdrawal: %w", err)
	}
	if last == nil {
		return true, "no previous withdrawal", nil
	}
	elapsed := attempt.At.Sub(*last)
	if elapsed < r.cooldown {
		return false, fmt.Sprintf("previous withdrawal %s ago, cooldown is %s",
			elapsed.Truncate(time.Minute), r.cooldown), nil
	}
	return true, fmt.Sprintf("previous withdrawal %s ago", elapsed.Truncate(time.Minute)), nil
}

// BankAccountMatchRule compares the bank holder name with the verified legal name.
type BankAccountMatchRule struct {
	threshold float64
}

func NewBankAccountMatchRule(threshold float64) *BankAccountMatchRule {
	return &BankAccountMatchRule{threshold: threshold}
}

func (r *BankAccountMatchRule) Name() RuleName { return RuleBankAccountMatch }

func (r *BankAccountMatchRule) Check(_ context.Context, tutor TutorContext, attempt Attempt) (bool, string, error) {
	if NormalizeName(tutor.LegalName) == "" {
		return false, "tutor has no verified legal name", nil
	}
	if NormalizeName(attempt.BankHolderName) == "" {
		return false, "bank account holder name is empty", nil
	}
	sim := NameSimilarity(tutor.LegalName, attempt.BankHolderName)
	if sim < r.threshold {
		return false, fmt.Sprintf("holder name similarity %.2f below %.2f", sim, r.threshold), nil
	}
	return true, fmt.Sprintf("holder name similarity %.2f", sim), nil
}

// IPConsistencyRule requires the request to come from a network the tutor has used before.
type IPConsistencyRule struct {
	history HistorySource
}

func NewIPConsistencyRule(history HistorySource) *IPConsistencyRule {
	return &IPConsistencyRule{history: history}
}

func (r *IPConsistencyRule) Name() RuleName { return RuleIPConsistency }

func (r *IPConsistencyRule) Check(ctx context.Context, tutor TutorContext, attempt Attempt) (bool, string, error) {
	ip := net.ParseIP(attempt.IP)
	if ip == nil {
		return false, fmt.Sprintf("request ip %q is not valid", attempt.IP), nil
	}

	known, err := r.history.KnownSessionIPs(ctx, tutor.TutorID)
	if err != nil {
		return false, "", fmt.Errorf("load session ips: %w", err)
	}
	if len(known) == 0 {
		return false, "no session history to compare against", nil
	}

	for _, k := range known {
		kip := net.ParseIP(k)
		if kip == nil {
			continue
		}
		if kip.Equal(ip) {
			return true, "ip matches a previous session", nil
		}
		if sameNetwork(kip, ip) {
			return true, "ip shares a network with a previous session", nil
		}
	}
	return false, fmt.Sprintf("ip %s differs from %d known session address(es)", ip, len(known)), nil
}

// sameNetwork compares /24 for IPv4 and /48 for IPv6.
func sameNetwork(a, b net.IP) bool {
	if a4, b4 := a.To4(), b.To4(); a4 != nil || b4 != nil {
		if a4 == nil || b4 == nil {
			return false
		}
		mask := net.CIDRMask(24, 32)
		return a4.Mask(mask).Equal(b4.Mask(mask))
	}
	mask := net.CIDRMask(48, 128)
	return a.Mask(mask).Equal(b.Mask(mask))
}

// EmailVerifiedRule requires a verified email.
type EmailVerifiedRule struct{}

func (EmailVerifiedRule) Name() RuleName { return RuleEmailVerified }

func (EmailVerifiedRule) Check(_ context.Context, tutor TutorContext, _ Attempt) (bool, string, error) {
	if !tutor.EmailVerified {
		return false, "email address is not verified", nil
	}
	return true, "email address verified", nil
}
