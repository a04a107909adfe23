package resilience

import (
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	gatewayBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "payouts",
		Subsystem: "gateway_breaker",
		Name:      "state",
		Help:      "Payout gateway breaker state (0=closed, 0.5=half-open, 1=open)",
	}, []string{"gateway"})

	gatewayBreakerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payouts",
		Subsystem: "gateway_breaker",
		Name:      "calls_total",
		Help:      "Gateway calls admitted by the breaker",
	}, []string{"gateway"})

	gatewayBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payouts",
		Subsystem: "gateway_breaker",
		Name:      "failed_calls_total",
		Help:      "Gateway calls that returned an error",
	}, []string{"gateway"})

	gatewayBreakerShortCircuits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payouts",
		Subsystem: "gateway_breaker",
		Name:      "short_circuits_total",
		Help:      "Payout attempts refused without calling the gateway because the breaker was open",
	}, []string{"gateway"})

	gatewayBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "payouts",
		Subsystem: "gateway_breaker",
		Name:      "transitions_total",
		Help:      "Gateway breaker state transitions",
	}, []string{"gateway", "from", "to"})

	unnamedGateways uint64
)

func gatewayLabel(name string) string {
	if name != "" {
		return name
	}
	id := atomic.AddUint64(&unnamedGateways, 1)
	return "gateway-" + strconv.FormatUint(id, 10)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 0.5
	case gobreaker.StateOpen:
		return 1
	default:
		return -1
	}
}

func observeState(gateway string, state gobreaker.State) {
	gatewayBreakerState.WithLabelValues(gateway).Set(stateValue(state))
}

func observeTransition(gateway string, from, to gobreaker.State) {
	gatewayBreakerTransitions.WithLabelValues(gateway, from.String(), to.String()).Inc()
	observeState(gateway, to)
}

func observeCall(gateway string)         { gatewayBreakerCalls.WithLabelValues(gateway).Inc() }
func observeFailure(gateway string)      { gatewayBreakerFailures.WithLabelValues(gateway).Inc() }
func observeShortCircuit(gateway string) { gatewayBreakerShortCircuits.WithLabelValues(gateway).Inc() }
