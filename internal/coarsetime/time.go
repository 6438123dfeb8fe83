// Package coarsetime serves a clock refreshed every 50ms from a background
// goroutine, for hot paths that only need to know roughly when something
// happened.
package coarsetime

import (
	"sync/atomic"
	"time"
)

const resolution = 50 * time.Millisecond

var nanos atomic.Int64

func init() {
	nanos.Store(time.Now().UnixNano())

	ticker := time.NewTicker(resolution)
	go func() {
		for t := range ticker.C {
			nanos.Store(t.UnixNano())
		}
	}()
}

// UnixNano returns the coarse current time in nanoseconds since the epoch.
func UnixNano() int64 {
	return nanos.Load()
}

func Now() time.Time {
	return time.Unix(0, nanos.Load())
}
