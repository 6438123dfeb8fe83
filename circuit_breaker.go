package couchbase

import (
	"context"
	"errors"
	"time"

	"github.com/pior/couchbase/wire"
	"github.com/sony/gobreaker/v2"
)

const (
	breakerMinRequests  = 3
	breakerFailureRatio = 0.6
)

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker function. A
// node's breaker opens once at least 3 requests were seen in the interval
// and 60% of them failed at the transport level. Requests the node answered,
// even with a failure status, count as successes.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(hostname string) *gobreaker.CircuitBreaker[*Response] {
	return func(hostname string) *gobreaker.CircuitBreaker[*Response] {
		return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:         hostname,
			MaxRequests:  maxRequests,
			Interval:     interval,
			Timeout:      timeout,
			ReadyToTrip:  nodeUnhealthy,
			IsSuccessful: nodeHealthy,
		})
	}
}

func nodeUnhealthy(counts gobreaker.Counts) bool {
	if counts.Requests < breakerMinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= breakerFailureRatio
}

// nodeHealthy reports whether err says nothing bad about the node: it
// answered, the request was rejected before being sent, or the caller gave
// up.
func nodeHealthy(err error) bool {
	if err == nil {
		return true
	}
	var statusErr *wire.StatusError
	var keyErr *wire.InvalidKeyError
	return errors.As(err, &statusErr) ||
		errors.As(err, &keyErr) ||
		errors.Is(err, context.Canceled)
}
