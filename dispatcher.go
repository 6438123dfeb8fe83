package couchbase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/pior/couchbase/internal/coarsetime"
	"github.com/pior/couchbase/locate"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DefaultMaxEndpointsPerNode is used when Config.MaxEndpointsPerNode is zero.
const DefaultMaxEndpointsPerNode = 4

// Config holds the dispatcher configuration.
type Config struct {
	// Topology supplies node snapshots. Required.
	Topology Topology

	// Dial opens an endpoint to a node.
	// If nil, DialEndpoint(nil, DefaultKVPort) is used.
	Dial func(ctx context.Context, node Node) (Endpoint, error)

	// MaxEndpointsPerNode bounds the pooled endpoints per node.
	// Zero means DefaultMaxEndpointsPerNode.
	MaxEndpointsPerNode int32

	// NewCircuitBreaker creates the breaker of a node, once per hostname.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(hostname string) *gobreaker.CircuitBreaker[*Response]

	// VBucket maps a key to the partition written in the request frame.
	// Node routing does not use it. If nil, every request targets vBucket 0,
	// which only suits single-partition test servers; see VBucketByCRC32.
	VBucket func(key string) uint16

	// Locators replace the default locator of their service.
	// Defaults: key hashing for key-value, round-robin for the others.
	Locators []locate.Locator[Node]

	// Logger receives routing and endpoint events. If nil, nothing is logged.
	Logger *zerolog.Logger

	// MetricSink receives dispatch metrics. If nil, metrics.Default() is used.
	MetricSink metrics.MetricSink

	// MetricLabels are added to every emitted metric.
	MetricLabels []metrics.Label
}

// Dispatcher routes requests to cluster nodes and sends them over pooled
// endpoints. Routing failures and transport errors are reported to the
// caller and through the request future; the dispatcher never retries.
type Dispatcher struct {
	topology     Topology
	locators     map[locate.ServiceType]locate.Locator[Node]
	dial         func(ctx context.Context, node Node) (Endpoint, error)
	maxEndpoints int32
	newBreaker   func(hostname string) *gobreaker.CircuitBreaker[*Response]
	vbucketOf    func(key string) uint16

	mu    sync.RWMutex
	pools map[string]*nodePool

	logger       zerolog.Logger
	msink        metrics.MetricSink
	metricLabels []metrics.Label

	opaque atomic.Uint32
	closed atomic.Bool
	stats  dispatchStatsCollector
}

func NewDispatcher(config Config) (*Dispatcher, error) {
	if config.Topology == nil {
		return nil, ErrNoTopology
	}

	dial := config.Dial
	if dial == nil {
		dial = DialEndpoint(nil, DefaultKVPort)
	}

	maxEndpoints := config.MaxEndpointsPerNode
	if maxEndpoints <= 0 {
		maxEndpoints = DefaultMaxEndpointsPerNode
	}

	locators := make(map[locate.ServiceType]locate.Locator[Node])
	for _, s := range locate.ServiceTypes() {
		locators[s] = locate.ForService[Node](s)
	}
	for _, l := range config.Locators {
		locators[l.Service()] = l
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	msink := config.MetricSink
	if msink == nil {
		msink = metrics.Default()
	}

	return &Dispatcher{
		topology:     config.Topology,
		locators:     locators,
		dial:         dial,
		maxEndpoints: maxEndpoints,
		newBreaker:   config.NewCircuitBreaker,
		vbucketOf:    config.VBucket,
		pools:        make(map[string]*nodePool),
		logger:       logger.With().Str("layer", "dispatch").Logger(),
		msink:        msink,
		metricLabels: config.MetricLabels,
	}, nil
}

func (d *Dispatcher) labels(extra ...metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(d.metricLabels)+len(extra))
	out = append(out, d.metricLabels...)
	return append(out, extra...)
}

func (d *Dispatcher) vbucket(key string) uint16 {
	if d.vbucketOf == nil {
		return 0
	}
	return d.vbucketOf(key)
}

// Route returns the node that should serve a request for service and key,
// using the current topology snapshot.
func (d *Dispatcher) Route(service locate.ServiceType, key string) (Node, error) {
	locator, ok := d.locators[service]
	if !ok {
		return nil, fmt.Errorf("couchbase: no locator for service %s", service)
	}

	node, err := locator.Locate(key, d.topology.Nodes())
	if err != nil {
		d.msink.IncrCounterWithLabels(MetricLocateNoNodeCount, 1, d.labels(LabelService.M(service.String())))
		d.logger.Warn().Err(err).Stringer("service", service).Msg("no eligible node")
		return nil, err
	}

	d.logger.Debug().Stringer("service", service).Str("node", node.Hostname()).Msg("routed")
	return node, nil
}

// RouteAll returns every node running service, for fan-out requests.
func (d *Dispatcher) RouteAll(service locate.ServiceType) ([]Node, error) {
	nodes, err := locate.NewBroadcast[Node](service).LocateAll(d.topology.Nodes())
	if err != nil {
		d.msink.IncrCounterWithLabels(MetricLocateNoNodeCount, 1, d.labels(LabelService.M(service.String())))
		return nil, err
	}
	return nodes, nil
}

// Dispatch routes req, sends it and completes its future with the outcome,
// which is also returned. The request content is released before Dispatch
// returns, whatever the outcome. A request released by its caller fails with
// ErrRequestReleased.
func (d *Dispatcher) Dispatch(ctx context.Context, req *SubdocRequest) (*Response, error) {
	defer req.Release()
	d.stats.recordDispatch()

	defer func() {
		if r := recover(); r != nil {
			d.stats.recordFailed()
			req.Future().Fail(fmt.Errorf("couchbase: dispatch panicked: %v", r))
			panic(r)
		}
	}()

	if req.released.Load() {
		d.stats.recordFailed()
		req.Future().Fail(ErrRequestReleased)
		return nil, ErrRequestReleased
	}

	if d.closed.Load() {
		d.stats.recordFailed()
		req.Future().Fail(ErrDispatcherClosed)
		return nil, ErrDispatcherClosed
	}

	service := req.Service()
	labels := d.labels(LabelService.M(service.String()), LabelOpcode.M(req.Opcode().String()))
	d.msink.IncrCounterWithLabels(MetricDispatchCount, 1, labels)

	node, err := d.Route(service, req.Key())
	if err != nil {
		d.stats.recordNoEligibleNode()
		req.Future().Fail(err)
		return nil, err
	}
	labels = append(labels, LabelNode.M(node.Hostname()))

	frame, err := req.Frame(d.vbucket(req.Key()), d.opaque.Add(1))
	if err != nil {
		return nil, d.fail(req, labels, "encode", err)
	}

	np, err := d.poolFor(node)
	if err != nil {
		return nil, d.fail(req, labels, "pool", err)
	}

	start := time.Now()
	resp, err := np.execute(ctx, frame)
	d.msink.AddSampleWithLabels(MetricDispatchLatency, float32(time.Since(start).Seconds()*1000), labels)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			d.stats.recordBreakerOpen()
			d.msink.IncrCounterWithLabels(MetricDispatchErrorCount, 1, append(labels, LabelError.M("breaker_open")))
			d.logger.Warn().Str("node", node.Hostname()).Msg("circuit breaker rejected request")
			req.Future().Fail(err)
			return nil, err
		}
		d.logger.Error().Err(err).Str("node", node.Hostname()).Str("key", req.Key()).Msg("send failed")
		return nil, d.fail(req, labels, "send", err)
	}

	if err := resp.Err(); err != nil {
		return nil, d.fail(req, labels, "status", err)
	}

	d.stats.recordCompleted()
	req.Future().Complete(resp)
	return resp, nil
}

// DispatchAsync runs Dispatch in a new goroutine and returns the request
// future.
func (d *Dispatcher) DispatchAsync(ctx context.Context, req *SubdocRequest) *Future[*Response] {
	go func() {
		_, _ = d.Dispatch(ctx, req)
	}()
	return req.Future()
}

func (d *Dispatcher) fail(req *SubdocRequest, labels []metrics.Label, kind string, err error) error {
	d.stats.recordFailed()
	d.msink.IncrCounterWithLabels(MetricDispatchErrorCount, 1, append(labels, LabelError.M(kind)))
	req.Future().Fail(err)
	return err
}

// poolFor returns the endpoint pool of node, creating it on first use.
func (d *Dispatcher) poolFor(node Node) (*nodePool, error) {
	host := node.Hostname()

	d.mu.RLock()
	np, exists := d.pools[host]
	d.mu.RUnlock()
	if exists {
		return np, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if np, exists := d.pools[host]; exists {
		return np, nil
	}
	if d.closed.Load() {
		return nil, ErrDispatcherClosed
	}

	np, err := newNodePool(node, d.dial, d.maxEndpoints, d.newBreaker)
	if err != nil {
		return nil, err
	}
	d.pools[host] = np
	d.msink.SetGaugeWithLabels(MetricNodePoolCount, float32(len(d.pools)), d.labels())
	d.logger.Info().Str("node", host).Msg("node pool created")
	return np, nil
}

// Prune closes the pools of nodes that left the topology, and of nodes idle
// for longer than maxIdle when maxIdle is positive. It returns the number of
// pools closed.
func (d *Dispatcher) Prune(maxIdle time.Duration) int {
	live := make(map[string]struct{})
	for _, n := range d.topology.Nodes() {
		live[n.Hostname()] = struct{}{}
	}
	now := coarsetime.Now()

	d.mu.Lock()
	var stale []*nodePool
	for host, np := range d.pools {
		_, ok := live[host]
		if ok && (maxIdle <= 0 || np.idleFor(now) < maxIdle) {
			continue
		}
		delete(d.pools, host)
		stale = append(stale, np)
	}
	d.msink.SetGaugeWithLabels(MetricNodePoolCount, float32(len(d.pools)), d.labels())
	d.mu.Unlock()

	for _, np := range stale {
		np.close()
		d.logger.Info().Str("node", np.node.Hostname()).Msg("node pool pruned")
	}
	return len(stale)
}

// Stats returns a snapshot of dispatch counters.
func (d *Dispatcher) Stats() DispatchStats {
	return d.stats.snapshot()
}

// NodeStats returns the pool and breaker stats of every node with a pool,
// sorted by hostname.
func (d *Dispatcher) NodeStats() []NodeStats {
	d.mu.RLock()
	stats := make([]NodeStats, 0, len(d.pools))
	for _, np := range d.pools {
		stats = append(stats, np.stats())
	}
	d.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Hostname < stats[j].Hostname
	})
	return stats
}

// Close closes every endpoint pool. Later dispatches fail with
// ErrDispatcherClosed.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}

	d.mu.Lock()
	pools := d.pools
	d.pools = make(map[string]*nodePool)
	d.mu.Unlock()

	for _, np := range pools {
		np.close()
	}
}
