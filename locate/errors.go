package locate

import (
	"errors"
	"fmt"
)

var ErrNoEligibleNode = errors.New("locate: no node capable of serving the request")

// NoEligibleNodeError is returned when a full scan of the snapshot found no
// node satisfying the locator predicate. It is transient: a later snapshot
// may contain a capable node.
type NoEligibleNodeError struct {
	Service ServiceType
	// Scanned is the size of the snapshot that was inspected.
	Scanned int
}

func (e *NoEligibleNodeError) Error() string {
	return fmt.Sprintf("locate: no node with service %s among %d nodes", e.Service, e.Scanned)
}

func (e *NoEligibleNodeError) Is(target error) bool {
	return target == ErrNoEligibleNode
}

// Temporary reports that retrying against a refreshed snapshot may succeed.
func (e *NoEligibleNodeError) Temporary() bool {
	return true
}
