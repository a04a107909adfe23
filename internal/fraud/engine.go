package fraud

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/richxcame/tutor-payouts/pkg/logger"
)

const defaultRuleTimeout = 5 * time.Second

// Engine runs every configured rule for an attempt.
type Engine struct {
	rules       []Rule
	ruleTimeout time.Duration
}

// NewEngine creates an engine over rules. Result order follows rule order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules, ruleTimeout: defaultRuleTimeout}
}

// Rules returns the configured rule names in evaluation order.
func (e *Engine) Rules() []RuleName {
	names := make([]RuleName, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate runs all rules concurrently and never short-circuits. A rule that errors,
// panics or times out is reported as failed with a diagnostic message.
func (e *Engine) Evaluate(ctx context.Context, tutor TutorContext, attempt Attempt) []RuleResult {
	results := make([]RuleResult, len(e.rules))

	var g errgroup.Group
	for i, rule := range e.rules {
		g.Go(func() error {
			results[i] = e.run(ctx, rule, tutor, attempt)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		recordRuleResult(r)
	}
	return results
}

func (e *Engine) run(ctx context.Context, rule Rule, tutor TutorContext, attempt Attempt) (result RuleResult) {
	result.RuleName = rule.Name()

	defer func() {
		if p := recover(); p != nil {
			logger.WithContext(ctx).Error("fraud rule panicked",
				zap.String("rule", string(result.RuleName)),
				zap.String("tutor_id", tutor.TutorID.String()),
				zap.Any("panic", p),
			)
			result.Passed = false
			result.Message = fmt.Sprintf("rule evaluation failed: %v", p)
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, e.ruleTimeout)
	defer cancel()

	passed, message, err := rule.Check(rctx, tutor, attempt)
	if err != nil {
		logger.WithContext(ctx).Warn("fraud rule failed closed",
			zap.String("rule", string(result.RuleName)),
			zap.String("tutor_id", tutor.TutorID.String()),
			zap.Error(err),
		)
		result.Passed = false
		result.Message = "rule evaluation failed: " + err.Error()
		return result
	}

	result.Passed = passed
	result.Message = message
	return result
}

// FailedRules returns the names of failed results.
func FailedRules(results []RuleResult) map[RuleName]bool {
	failed := make(map[RuleName]bool)
	for _, r := range results {
		if !r.Passed {
			failed[r.RuleName] = true
		}
	}
	return failed
}
