package smartolt

import (
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	breakerName             = "smartolt-api"
	breakerTripAfter        = 5
	breakerOpenTimeout      = 30 * time.Second
	breakerHalfOpenRequests = 1
)

// newBreaker trips after consecutive transport failures. Envelopes with
// status=false mean the upstream answered, so they never count as failures.
func newBreaker(logger domain.Logger) *gobreaker.CircuitBreaker[*response] {
	metrics.BreakerState.Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		IsSuccessful: func(err error) bool {
			return err == nil || domain.KindOf(err) != domain.KindUpstreamTransport
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(stateToFloat(to))
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Upstream circuit breaker changed state")
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
