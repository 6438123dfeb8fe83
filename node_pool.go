package couchbase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/pior/couchbase/internal/coarsetime"
	"github.com/pior/couchbase/wire"
	"github.com/sony/gobreaker/v2"
)

// nodePool holds the endpoints of one node and the circuit breaker guarding
// them.
type nodePool struct {
	node           Node
	pool           *puddle.Pool[Endpoint]
	circuitBreaker *gobreaker.CircuitBreaker[*Response] // nil if not configured

	createdEndpoints   atomic.Int64
	destroyedEndpoints atomic.Int64
	lastUsed           atomic.Int64 // unix nanos, coarse
}

func newNodePool(node Node, dial func(ctx context.Context, node Node) (Endpoint, error), maxSize int32, newBreaker func(string) *gobreaker.CircuitBreaker[*Response]) (*nodePool, error) {
	np := &nodePool{node: node}
	np.touch()

	pool, err := puddle.NewPool(&puddle.Config[Endpoint]{
		Constructor: func(ctx context.Context) (Endpoint, error) {
			ep, err := dial(ctx, node)
			if err == nil {
				np.createdEndpoints.Add(1)
			}
			return ep, err
		},
		Destructor: func(ep Endpoint) {
			np.destroyedEndpoints.Add(1)
			_ = ep.Close()
		},
		MaxSize: maxSize,
	})
	if err != nil {
		return nil, err
	}
	np.pool = pool

	if newBreaker != nil {
		np.circuitBreaker = newBreaker(node.Hostname())
	}
	return np, nil
}

func (np *nodePool) touch() {
	np.lastUsed.Store(coarsetime.UnixNano())
}

func (np *nodePool) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, np.lastUsed.Load()))
}

// execute sends req through the circuit breaker, if any.
func (np *nodePool) execute(ctx context.Context, req *wire.Request) (*Response, error) {
	np.touch()

	if np.circuitBreaker == nil {
		return np.executeDirect(ctx, req)
	}

	return np.circuitBreaker.Execute(func() (*Response, error) {
		return np.executeDirect(ctx, req)
	})
}

// executeDirect acquires an endpoint, sends req and hands the endpoint back.
// The endpoint is destroyed when the error left the stream in an unknown
// state or when Send panicked.
func (np *nodePool) executeDirect(ctx context.Context, req *wire.Request) (resp *Response, err error) {
	res, err := np.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	sent := false
	defer func() {
		if !sent || (err != nil && wire.ShouldCloseConnection(err)) {
			res.Destroy()
			return
		}
		res.Release()
	}()

	resp, err = res.Value().Send(ctx, req)
	sent = true
	return resp, err
}

func (np *nodePool) close() {
	np.pool.Close()
}

// NodeStats describes the endpoint pool and breaker of one node.
type NodeStats struct {
	Hostname             string
	TotalEndpoints       int32
	IdleEndpoints        int32
	AcquiredEndpoints    int32
	AcquireCount         int64
	CreatedEndpoints     int64
	DestroyedEndpoints   int64
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (np *nodePool) stats() NodeStats {
	s := np.pool.Stat()
	stats := NodeStats{
		Hostname:           np.node.Hostname(),
		TotalEndpoints:     s.TotalResources(),
		IdleEndpoints:      s.IdleResources(),
		AcquiredEndpoints:  s.AcquiredResources(),
		AcquireCount:       s.AcquireCount(),
		CreatedEndpoints:   np.createdEndpoints.Load(),
		DestroyedEndpoints: np.destroyedEndpoints.Load(),
	}
	if np.circuitBreaker != nil {
		stats.CircuitBreakerState = np.circuitBreaker.State()
		stats.CircuitBreakerCounts = np.circuitBreaker.Counts()
	}
	return stats
}
