package wire

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic     = errors.New("wire: bad magic byte")
	ErrFrameTooBig  = errors.New("wire: frame exceeds maximum body length")
	ErrPathTooLong  = errors.New("wire: sub-document path exceeds 1024 bytes")
	ErrMalformedHdr = errors.New("wire: malformed header")
)

// ErrorWithConnectionState is implemented by errors that know whether the
// connection that produced them can still be used.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// InvalidKeyError is returned before anything is written when the key cannot
// be encoded. The connection is untouched and stays usable.
type InvalidKeyError struct {
	Message string
}

func (e *InvalidKeyError) Error() string {
	return "wire: invalid key: " + e.Message
}

func (e *InvalidKeyError) ShouldCloseConnection() bool {
	return false
}

// StatusError is a well-formed response with a non-success status. The
// connection stays in sync.
type StatusError struct {
	Opcode Opcode
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("wire: %s failed: %s", e.Opcode, e.Status)
}

func (e *StatusError) ShouldCloseConnection() bool {
	return false
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Status.Temporary()
}

// ShouldCloseConnection reports whether err leaves the connection in an
// unknown protocol state. Errors that do not say otherwise (I/O errors,
// framing errors) close the connection.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
