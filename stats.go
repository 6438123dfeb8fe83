package couchbase

import (
	"sync/atomic"
)

// DispatchStats counts dispatcher outcomes. Every dispatched request ends in
// exactly one of Completed, Failed or NoEligibleNode; Failed includes
// requests answered with a non-success status.
type DispatchStats struct {
	Dispatched     uint64
	Completed      uint64
	Failed         uint64
	NoEligibleNode uint64
	BreakerOpen    uint64 // subset of Failed
}

type dispatchStatsCollector struct {
	dispatched     atomic.Uint64
	completed      atomic.Uint64
	failed         atomic.Uint64
	noEligibleNode atomic.Uint64
	breakerOpen    atomic.Uint64
}

func (c *dispatchStatsCollector) recordDispatch()       { c.dispatched.Add(1) }
func (c *dispatchStatsCollector) recordCompleted()      { c.completed.Add(1) }
func (c *dispatchStatsCollector) recordFailed()         { c.failed.Add(1) }
func (c *dispatchStatsCollector) recordNoEligibleNode() { c.noEligibleNode.Add(1) }

func (c *dispatchStatsCollector) recordBreakerOpen() {
	c.breakerOpen.Add(1)
	c.failed.Add(1)
}

func (c *dispatchStatsCollector) snapshot() DispatchStats {
	return DispatchStats{
		Dispatched:     c.dispatched.Load(),
		Completed:      c.completed.Load(),
		Failed:         c.failed.Load(),
		NoEligibleNode: c.noEligibleNode.Load(),
		BreakerOpen:    c.breakerOpen.Load(),
	}
}
