package couchbase

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pior/couchbase/buffer"
	"github.com/pior/couchbase/locate"
	"github.com/pior/couchbase/wire"
)

// Response is the decoded reply delivered through a request's future.
type Response = wire.Response

// SubdocRequest is one in-flight sub-document operation.
//
// Its content is the path bytes followed by the value fragments, exposed as
// one buffer. The request owns that buffer and releases it exactly once, via
// Release, after the frame has been written or when the request is abandoned.
type SubdocRequest struct {
	opcode     wire.Opcode
	key        string
	bucket     string
	path       string
	hasPath    bool
	pathLength int
	content    buffer.Buffer

	flags  wire.PathFlags
	expiry uint32
	cas    uint64

	future   *Future[*Response]
	released atomic.Bool
}

// MutationOptions tune a sub-document mutation.
type MutationOptions struct {
	// CreatePath creates missing intermediate dictionaries on the path.
	CreatePath bool

	// Expiry sets the document lifetime. Zero leaves it unchanged. Sub-second
	// precision is dropped, but a positive lifetime never drops below one
	// second.
	Expiry time.Duration

	// CAS makes the mutation conditional on the document's current CAS.
	// Zero disables the check.
	CAS uint64
}

// PathOf returns a pointer to path, for NewSubdocRequest.
func PathOf(path string) *string {
	return &path
}

// NewSubdocRequest builds a request and takes ownership of every fragment.
//
// A nil path is a usage error reported as *PathError wrapping ErrMissingPath.
// The content is composed before the path is checked, so the fragments of an
// invalid call are still released through the same cleanup as every other
// failure.
func NewSubdocRequest(op wire.Opcode, key, bucket string, path *string, fragments ...buffer.Buffer) (*SubdocRequest, error) {
	r := &SubdocRequest{
		opcode: op,
		key:    key,
		bucket: bucket,
		future: NewFuture[*Response](),
	}

	pathBuf := buffer.Empty()
	if path != nil {
		r.path = *path
		r.hasPath = true
		if *path != "" {
			pathBuf = buffer.FromString(*path)
		}
	}
	r.pathLength = pathBuf.Len()
	r.content = buffer.Compose(pathBuf, fragments...)

	if path == nil {
		return nil, r.cleanUp(&PathError{Op: op, Key: key, Err: ErrMissingPath})
	}
	return r, nil
}

// cleanUp releases the content of a request that is not handed out and
// returns err.
func (r *SubdocRequest) cleanUp(err error) error {
	r.Release()
	return err
}

func newCheckedRequest(op wire.Opcode, key, bucket, path string, opts MutationOptions, fragments ...buffer.Buffer) (*SubdocRequest, error) {
	r, err := NewSubdocRequest(op, key, bucket, &path, fragments...)
	if err != nil {
		return nil, err
	}
	if path == "" && !op.AllowsEmptyPath() {
		return nil, r.cleanUp(&PathError{Op: op, Key: key, Err: ErrEmptyPath})
	}

	if opts.CreatePath {
		r.flags |= wire.PathFlagMkdirP
	}
	expiry, err := encodeExpiry(opts.Expiry, time.Now())
	if err != nil {
		return nil, r.cleanUp(err)
	}
	r.expiry = expiry
	r.cas = opts.CAS
	return r, nil
}

// maxRelativeExpiry is the longest lifetime the server reads as relative
// seconds. Larger values are read as absolute Unix times.
const maxRelativeExpiry = 30 * 24 * time.Hour

// encodeExpiry converts a lifetime to the protocol's expiry field.
func encodeExpiry(d time.Duration, now time.Time) (uint32, error) {
	switch {
	case d < 0:
		return 0, fmt.Errorf("%w: negative lifetime %s", ErrInvalidExpiry, d)
	case d == 0:
		return 0, nil
	case d < time.Second:
		return 1, nil
	case d <= maxRelativeExpiry:
		return uint32(d / time.Second), nil
	}

	deadline := now.Add(d).Unix()
	if deadline > math.MaxUint32 {
		return 0, fmt.Errorf("%w: lifetime %s ends after 2106", ErrInvalidExpiry, d)
	}
	return uint32(deadline), nil
}

// NewGetRequest fetches the value at path.
func NewGetRequest(key, bucket, path string) (*SubdocRequest, error) {
	return newCheckedRequest(wire.OpSubdocGet, key, bucket, path, MutationOptions{})
}

// NewExistsRequest checks that path exists.
func NewExistsRequest(key, bucket, path string) (*SubdocRequest, error) {
	return newCheckedRequest(wire.OpSubdocExists, key, bucket, path, MutationOptions{})
}

// NewGetCountRequest counts the elements of the array or dictionary at path.
func NewGetCountRequest(key, bucket, path string) (*SubdocRequest, error) {
	return newCheckedRequest(wire.OpSubdocGetCount, key, bucket, path, MutationOptions{})
}

// NewMutationRequest applies value at path with op, taking ownership of value.
// Array push and add-unique operations accept an empty path to target a
// root-level array; every other operation rejects it with ErrEmptyPath.
func NewMutationRequest(op wire.Opcode, key, bucket, path string, value buffer.Buffer, opts MutationOptions) (*SubdocRequest, error) {
	return newCheckedRequest(op, key, bucket, path, opts, value)
}

// NewDeleteRequest removes the value at path.
func NewDeleteRequest(key, bucket, path string, opts MutationOptions) (*SubdocRequest, error) {
	return newCheckedRequest(wire.OpSubdocDelete, key, bucket, path, opts)
}

// NewCounterRequest adds delta to the number at path.
func NewCounterRequest(key, bucket, path string, delta int64, opts MutationOptions) (*SubdocRequest, error) {
	value := buffer.Wrap(strconv.AppendInt(nil, delta, 10))
	return newCheckedRequest(wire.OpSubdocCounter, key, bucket, path, opts, value)
}

func (r *SubdocRequest) Opcode() wire.Opcode { return r.opcode }
func (r *SubdocRequest) Key() string         { return r.key }
func (r *SubdocRequest) Bucket() string      { return r.bucket }

// Path returns the sub-document path and whether one was set.
func (r *SubdocRequest) Path() (string, bool) {
	return r.path, r.hasPath
}

// PathLength is the UTF-8 byte length of the path, 0 when it is empty.
func (r *SubdocRequest) PathLength() int {
	return r.pathLength
}

// Content returns the path bytes followed by the value fragments. The request
// keeps ownership.
func (r *SubdocRequest) Content() buffer.Buffer {
	return r.content
}

// Future returns the channel the dispatcher completes with the response.
func (r *SubdocRequest) Future() *Future[*Response] {
	return r.future
}

// Service is the cluster service able to serve the request.
func (r *SubdocRequest) Service() locate.ServiceType {
	return locate.KeyValue
}

func (r *SubdocRequest) PathFlags() wire.PathFlags { return r.flags }
func (r *SubdocRequest) Expiry() uint32            { return r.expiry }
func (r *SubdocRequest) CAS() uint64               { return r.cas }

// Release releases the content. Only the first call has an effect; it
// reports whether this call released it.
func (r *SubdocRequest) Release() bool {
	if !r.released.CompareAndSwap(false, true) {
		return false
	}
	if r.content != nil && r.content.RefCount() > 0 {
		r.content.Release()
	}
	return true
}

// Frame validates the key and builds the wire request. The frame borrows the content, so the
// request must not be released until the frame has been written.
func (r *SubdocRequest) Frame(vbucket uint16, opaque uint32) (*wire.Request, error) {
	if err := wire.ValidateKey(r.key); err != nil {
		return nil, err
	}
	extras, err := wire.SubdocExtras(r.pathLength, r.flags, r.expiry)
	if err != nil {
		return nil, err
	}

	return &wire.Request{
		Opcode:  r.opcode,
		VBucket: vbucket,
		Opaque:  opaque,
		CAS:     r.cas,
		Extras:  extras,
		Key:     r.key,
		Content: r.content,
	}, nil
}
