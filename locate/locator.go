// Package locate selects which cluster node receives a request.
//
// Locators are stateful strategies, one instance per service family. Each call
// receives an immutable snapshot of the current nodes; locators never modify
// it and tolerate a different snapshot on every call.
package locate

import (
	"sync/atomic"

	"github.com/pior/couchbase/internal"
	"github.com/zeebo/xxh3"
)

// Locator selects one node for a request.
type Locator[N Node] interface {
	// Service returns the service the locator routes for.
	Service() ServiceType

	// Locate returns the node that should serve the request with the given
	// key. It returns a *NoEligibleNodeError when no node qualifies.
	Locate(key string, nodes []N) (N, error)
}

// ForService returns the default locator for s: key hashing for KeyValue and
// round-robin rotation for every other service.
func ForService[N Node](s ServiceType) Locator[N] {
	if s == KeyValue {
		return NewKeyValue[N]()
	}
	return NewRoundRobin[N](s, ServiceEnabled(s))
}

// RoundRobin rotates fairly through the nodes accepted by its predicate.
// Variants differ only in the predicate; the rotation counter is shared by all
// concurrent callers of one instance.
type RoundRobin[N Node] struct {
	service ServiceType
	check   Predicate
	counter atomic.Uint64
}

var _ Locator[Node] = (*RoundRobin[Node])(nil)

// NewRoundRobin returns a round-robin locator over nodes accepted by check.
func NewRoundRobin[N Node](service ServiceType, check Predicate) *RoundRobin[N] {
	return &RoundRobin[N]{service: service, check: check}
}

// NewQuery routes to nodes running the query service.
func NewQuery[N Node]() *RoundRobin[N] {
	return NewRoundRobin[N](Query, ServiceEnabled(Query))
}

// NewAnalytics routes to nodes running the analytics service.
func NewAnalytics[N Node]() *RoundRobin[N] {
	return NewRoundRobin[N](Analytics, ServiceEnabled(Analytics))
}

// NewView routes to nodes running the view service.
func NewView[N Node]() *RoundRobin[N] {
	return NewRoundRobin[N](View, ServiceEnabled(View))
}

// NewSearch routes to nodes running the search service.
func NewSearch[N Node]() *RoundRobin[N] {
	return NewRoundRobin[N](Search, ServiceEnabled(Search))
}

// NewManager routes to nodes running the cluster manager.
func NewManager[N Node]() *RoundRobin[N] {
	return NewRoundRobin[N](Manager, ServiceEnabled(Manager))
}

func (l *RoundRobin[N]) Service() ServiceType {
	return l.service
}

// Locate ignores the key. The counter is advanced once per call and the
// result is the (counter mod M)th of the M eligible nodes, so each eligible
// node is chosen with frequency 1/M regardless of its position.
func (l *RoundRobin[N]) Locate(_ string, nodes []N) (N, error) {
	eligible := countEligible(nodes, l.check)
	if eligible == 0 {
		var zero N
		return zero, &NoEligibleNodeError{Service: l.service, Scanned: len(nodes)}
	}

	target := (l.counter.Add(1) - 1) % uint64(eligible)
	return nthEligible(nodes, l.check, int(target), l.service)
}

// KeyHasher maps a key onto one of buckets buckets. It must be deterministic.
type KeyHasher func(key string, buckets int) int

// DefaultKeyHasher uses Jump Hash over the xxh3 hash of the key.
func DefaultKeyHasher(key string, buckets int) int {
	return internal.JumpHash(xxh3.HashString(key), buckets)
}

// KeyValueLocator picks the key-value node owning a key. For a given snapshot the
// same key always lands on the same node.
type KeyValueLocator[N Node] struct {
	hash  KeyHasher
	check Predicate
}

var _ Locator[Node] = (*KeyValueLocator[Node])(nil)

func NewKeyValue[N Node]() *KeyValueLocator[N] {
	return NewKeyValueWithHasher[N](DefaultKeyHasher)
}

func NewKeyValueWithHasher[N Node](hash KeyHasher) *KeyValueLocator[N] {
	if hash == nil {
		hash = DefaultKeyHasher
	}
	return &KeyValueLocator[N]{hash: hash, check: ServiceEnabled(KeyValue)}
}

func (l *KeyValueLocator[N]) Service() ServiceType {
	return KeyValue
}

func (l *KeyValueLocator[N]) Locate(key string, nodes []N) (N, error) {
	eligible := countEligible(nodes, l.check)
	if eligible == 0 {
		var zero N
		return zero, &NoEligibleNodeError{Service: KeyValue, Scanned: len(nodes)}
	}

	target := l.hash(key, eligible)
	if target < 0 || target >= eligible {
		target = 0
	}
	return nthEligible(nodes, l.check, target, KeyValue)
}

// Broadcast returns every node accepted by its predicate, for fan-out
// requests that must reach all capable nodes.
type Broadcast[N Node] struct {
	service ServiceType
	check   Predicate
}

func NewBroadcast[N Node](service ServiceType) *Broadcast[N] {
	return &Broadcast[N]{service: service, check: ServiceEnabled(service)}
}

func (l *Broadcast[N]) Service() ServiceType {
	return l.service
}

// LocateAll returns the eligible nodes in snapshot order.
func (l *Broadcast[N]) LocateAll(nodes []N) ([]N, error) {
	out := make([]N, 0, len(nodes))
	for _, n := range nodes {
		if l.check(n) {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, &NoEligibleNodeError{Service: l.service, Scanned: len(nodes)}
	}
	return out, nil
}

func countEligible[N Node](nodes []N, check Predicate) int {
	count := 0
	for _, n := range nodes {
		if check(n) {
			count++
		}
	}
	return count
}

func nthEligible[N Node](nodes []N, check Predicate, target int, service ServiceType) (N, error) {
	for _, n := range nodes {
		if !check(n) {
			continue
		}
		if target == 0 {
			return n, nil
		}
		target--
	}

	// Only reachable if a node changed capability between the two passes.
	var zero N
	return zero, &NoEligibleNodeError{Service: service, Scanned: len(nodes)}
}
