package resilience

import (
	"time"

	"github.com/richxcame/tutor-payouts/pkg/config"
)

// GatewaySettings derives breaker tuning for a payout gateway from its config.
// Half-open admissions are capped at the trip threshold.
func GatewaySettings(gateway string, cfg config.GatewayConfig) Settings {
	interval := time.Duration(cfg.BreakerInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	// The open window must outlast one full transfer attempt.
	timeout := time.Duration(cfg.BreakerTimeout) * time.Second
	if floor := time.Duration(cfg.Timeout) * time.Second; timeout < floor {
		timeout = floor
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	failures := cfg.BreakerFailureThreshold
	if failures <= 0 {
		failures = 5
	}

	successes := cfg.BreakerSuccessThreshold
	if successes <= 0 {
		successes = 1
	}
	if successes > failures {
		successes = failures
	}

	return Settings{
		Name:             gateway,
		Interval:         interval,
		Timeout:          timeout,
		FailureThreshold: uint32(failures),
		SuccessThreshold: uint32(successes),
	}
}
