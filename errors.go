package couchbase

import (
	"errors"
	"fmt"

	"github.com/pior/couchbase/locate"
	"github.com/pior/couchbase/wire"
)

var (
	ErrMissingPath      = errors.New("couchbase: path is mandatory")
	ErrEmptyPath        = errors.New("couchbase: path cannot be empty")
	ErrInvalidSeedList  = errors.New("couchbase: seed node list must contain at least one host")
	ErrDispatcherClosed = errors.New("couchbase: dispatcher closed")
	ErrFutureDisposed   = errors.New("couchbase: future disposed before completion")
	ErrFuturePending    = errors.New("couchbase: future not completed")
	ErrNoTopology       = errors.New("couchbase: topology is required")
	ErrRequestReleased  = errors.New("couchbase: request already released")
	ErrInvalidExpiry    = errors.New("couchbase: expiry out of range")
)

// PathError reports a request built with an unusable sub-document path. The
// request content has already been released when it is returned.
type PathError struct {
	Op  wire.Opcode
	Key string
	Err error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s on key %q", e.Err, e.Op, e.Key)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// SeedListError reports an unusable bootstrap host list.
type SeedListError struct {
	Reason string
}

func (e *SeedListError) Error() string {
	if e.Reason == "" {
		return ErrInvalidSeedList.Error()
	}
	return ErrInvalidSeedList.Error() + ": " + e.Reason
}

func (e *SeedListError) Unwrap() error {
	return ErrInvalidSeedList
}

// IsInvalidInput reports whether err was caused by caller input that will
// fail the same way on every attempt.
func IsInvalidInput(err error) bool {
	var keyErr *wire.InvalidKeyError
	return errors.Is(err, ErrMissingPath) ||
		errors.Is(err, ErrEmptyPath) ||
		errors.Is(err, ErrInvalidSeedList) ||
		errors.Is(err, ErrInvalidExpiry) ||
		errors.Is(err, wire.ErrPathTooLong) ||
		errors.As(err, &keyErr)
}

// IsTransient reports whether err depends on cluster state, so retrying
// against a refreshed topology may succeed.
func IsTransient(err error) bool {
	if errors.Is(err, locate.ErrNoEligibleNode) {
		return true
	}
	var statusErr *wire.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return false
}
