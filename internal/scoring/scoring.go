// Package scoring turns fraud rule results and tutor history into a trust score and decision.
package scoring

import (
	"fmt"
	"time"

	"github.com/richxcame/tutor-payouts/internal/fraud"
	"github.com/richxcame/tutor-payouts/pkg/config"
)

// Decision is the automated outcome of scoring.
type Decision string

const (
	DecisionAutoApprove  Decision = "AUTO_APPROVE"
	DecisionDelayed      Decision = "DELAYED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
	DecisionRejected     Decision = "REJECTED"
)

// ParseDecision validates a wire decision.
func ParseDecision(s string) (Decision, error) {
	switch d := Decision(s); d {
	case DecisionAutoApprove, DecisionDelayed, DecisionManualReview, DecisionRejected:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// History factor names.
const (
	FactorNewAccount         = "NEW_ACCOUNT"
	FactorEstablishedAccount = "ESTABLISHED_ACCOUNT"
	FactorWithdrawalHistory  = "WITHDRAWAL_HISTORY"
)

// Factor is one weighted contribution to the score.
type Factor struct {
	Name   string `json:"name"`
	Weight int    `json:"weight"`
	Detail string `json:"detail,omitempty"`
}

// History is the tutor history the scorer considers beyond rule results.
type History struct {
	AccountAge           time.Duration
	CompletedWithdrawals int
}

// TrustScoreSnapshot is the immutable record of how a decision was reached.
type TrustScoreSnapshot struct {
	BaseScore       int      `json:"base_score"`
	PositiveFactors []Factor `json:"positive_factors"`
	NegativeFactors []Factor `json:"negative_factors"`
	TotalScore      int      `json:"total_score"`
	Decision        Decision `json:"decision"`
}

// Calculator holds the weights and thresholds. It has no mutable state.
type Calculator struct {
	passWeights map[string]int
	failWeights map[string]int

	newAccountAge           time.Duration
	newAccountPenalty       int
	establishedAccountAge   time.Duration
	establishedAccountBonus int
	trustedWithdrawalCount  int
	withdrawalHistoryBonus  int

	rejectBelow int
	manualBelow int
	delayBelow  int
}

// NewCalculator copies the risk configuration.
func NewCalculator(cfg config.RiskConfig) *Calculator {
	return &Calculator{
		passWeights:             copyWeights(cfg.PassWeights),
		failWeights:             copyWeights(cfg.FailWeights),
		newAccountAge:           time.Duration(cfg.NewAccountDays) * 24 * time.Hour,
		newAccountPenalty:       cfg.NewAccountPenalty,
		establishedAccountAge:   time.Duration(cfg.EstablishedAccountDays) * 24 * time.Hour,
		establishedAccountBonus: cfg.EstablishedAccountBonus,
		trustedWithdrawalCount:  cfg.TrustedWithdrawalCount,
		withdrawalHistoryBonus:  cfg.WithdrawalHistoryBonus,
		rejectBelow:             cfg.RejectBelow,
		manualBelow:             cfg.ManualBelow,
		delayBelow:              cfg.DelayBelow,
	}
}

// Score is deterministic: factors follow the order of results, then history factors.
func (c *Calculator) Score(baseScore int, results []fraud.RuleResult, history History) TrustScoreSnapshot {
	snap := TrustScoreSnapshot{
		BaseScore:       baseScore,
		PositiveFactors: []Factor{},
		NegativeFactors: []Factor{},
	}

	for _, r := range results {
		name := string(r.RuleName)
		if r.Passed {
			snap.PositiveFactors = append(snap.PositiveFactors, Factor{Name: name, Weight: c.passWeights[name], Detail: r.Message})
		} else {
			snap.NegativeFactors = append(snap.NegativeFactors, Factor{Name: name, Weight: c.failWeights[name], Detail: r.Message})
		}
	}

	if c.newAccountPenalty > 0 && history.AccountAge < c.newAccountAge {
		snap.NegativeFactors = append(snap.NegativeFactors, Factor{
			Name:   FactorNewAccount,
			Weight: c.newAccountPenalty,
			Detail: fmt.Sprintf("account is %d day(s) old", int(history.AccountAge.Hours()/24)),
		})
	}
	if c.establishedAccountBonus > 0 && c.establishedAccountAge > 0 && history.AccountAge >= c.establishedAccountAge {
		snap.PositiveFactors = append(snap.PositiveFactors, Factor{
			Name:   FactorEstablishedAccount,
			Weight: c.establishedAccountBonus,
			Detail: fmt.Sprintf("account is %d day(s) old", int(history.AccountAge.Hours()/24)),
		})
	}
	if c.withdrawalHistoryBonus > 0 && c.trustedWithdrawalCount > 0 && history.CompletedWithdrawals >= c.trustedWithdrawalCount {
		snap.PositiveFactors = append(snap.PositiveFactors, Factor{
			Name:   FactorWithdrawalHistory,
			Weight: c.withdrawalHistoryBonus,
			Detail: fmt.Sprintf("%d completed withdrawal(s)", history.CompletedWithdrawals),
		})
	}

	total := baseScore
	for _, f := range snap.PositiveFactors {
		total += f.Weight
	}
	for _, f := range snap.NegativeFactors {
		total -= f.Weight
	}
	snap.TotalScore = clamp(total, 0, 100)
	snap.Decision = c.Decide(snap.TotalScore)
	return snap
}

// Decide maps a total score to a decision using the ascending thresholds.
func (c *Calculator) Decide(total int) Decision {
	switch {
	case total < c.rejectBelow:
		return DecisionRejected
	case total < c.manualBelow:
		return DecisionManualReview
	case total < c.delayBelow:
		return DecisionDelayed
	default:
		return DecisionAutoApprove
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func copyWeights(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
