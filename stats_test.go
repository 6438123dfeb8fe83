package couchbase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchStatsCollector(t *testing.T) {
	var c dispatchStatsCollector

	c.recordDispatch()
	c.recordDispatch()
	c.recordDispatch()
	c.recordCompleted()
	c.recordNoEligibleNode()
	c.recordBreakerOpen()

	assert.Equal(t, DispatchStats{
		Dispatched:     3,
		Completed:      1,
		Failed:         1,
		NoEligibleNode: 1,
		BreakerOpen:    1,
	}, c.snapshot())
}

func TestDispatchStatsCollector_Concurrent(t *testing.T) {
	var c dispatchStatsCollector

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.recordDispatch()
				c.recordFailed()
			}
		}()
	}
	wg.Wait()

	s := c.snapshot()
	assert.Equal(t, uint64(1000), s.Dispatched)
	assert.Equal(t, uint64(1000), s.Failed)
}
