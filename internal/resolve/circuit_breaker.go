package resolve

import (
	"talentrank/internal/config"
	"talentrank/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// RemoteCircuitBreaker wraps remote resolution calls so a failing remote
// tier is skipped quickly instead of burning the whole remote deadline on
// every request during an outage.
type RemoteCircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

// NewRemoteCircuitBreaker creates a breaker from configuration. Returns
// nil when disabled; a nil breaker executes calls directly.
func NewRemoteCircuitBreaker(cfg config.CircuitBreakerConfig, logger *errors.Logger) *RemoteCircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        "remote-resolver",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String(),
					"max_requests", cfg.MaxRequests,
					"failure_threshold", cfg.FailureThreshold)
			}
		},
	}

	return &RemoteCircuitBreaker{
		cb: gobreaker.NewCircuitBreaker[*genai.GenerateContentResponse](settings),
	}
}

// Execute runs fn under the breaker, or directly when the breaker is
// disabled.
func (cb *RemoteCircuitBreaker) Execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// IsHealthy reports whether the breaker is closed (or absent).
func (cb *RemoteCircuitBreaker) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

// Stats returns breaker statistics for the stats endpoint.
func (cb *RemoteCircuitBreaker) Stats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}
