package fraud

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ruleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "payout_fraud_rule_results_total",
	Help: "Fraud rule evaluations by rule and outcome",
}, []string{"rule", "passed"})

func recordRuleResult(r RuleResult) {
	ruleResultsTotal.WithLabelValues(string(r.RuleName), strconv.FormatBool(r.Passed)).Inc()
}
