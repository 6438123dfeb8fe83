// Package buffer provides reference-counted byte buffers and a composite
// buffer that concatenates independently owned buffers without copying.
//
// Ownership rules:
//   - A new buffer starts with a reference count of one, held by its creator.
//   - Passing a buffer to a function documented as "taking ownership" hands
//     that reference over; the caller must not release it afterwards.
//   - Release drops one reference. The buffer is deallocated when the count
//     reaches zero and must not be used again.
//
// Misuse (reading or retaining a deallocated buffer, releasing more often than
// retained) is a programming error and panics.
package buffer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/pior/couchbase/internal"
)

var ErrReleased = errors.New("buffer: use after release")

// Buffer is a read-only, reference-counted byte sequence.
type Buffer interface {
	// Len returns the number of readable bytes.
	Len() int

	// RefCount returns the current number of references. Zero means the
	// buffer has been deallocated.
	RefCount() int32

	// Retain adds a reference and returns the buffer.
	Retain() Buffer

	// Release drops a reference and reports whether the buffer was
	// deallocated by this call.
	Release() bool

	// Segments returns the underlying byte slices in order, without copying.
	// The slices are only valid while the caller holds a reference.
	Segments() [][]byte

	// WriteTo writes the buffer content to w, using vectored I/O when w
	// supports it.
	WriteTo(w io.Writer) (int64, error)

	// Bytes returns the content as one contiguous slice. Single-segment
	// buffers return their backing slice; composites copy.
	Bytes() []byte
}

var slices = internal.NewSlicePool(256)

type refCount struct {
	n atomic.Int32
}

func (r *refCount) init() {
	r.n.Store(1)
}

func (r *refCount) load() int32 {
	return r.n.Load()
}

func (r *refCount) retain() {
	for {
		c := r.n.Load()
		if c <= 0 {
			panic(ErrReleased)
		}
		if r.n.CompareAndSwap(c, c+1) {
			return
		}
	}
}

func (r *refCount) release() bool {
	c := r.n.Add(-1)
	if c < 0 {
		panic(fmt.Errorf("%w: released %d times too often", ErrReleased, -c))
	}
	return c == 0
}

func (r *refCount) mustBeLive() {
	if r.n.Load() <= 0 {
		panic(ErrReleased)
	}
}

// Bytes is a Buffer backed by a single byte slice.
type Bytes struct {
	rc     refCount
	b      []byte
	pooled bool
}

var _ Buffer = (*Bytes)(nil)

// Wrap returns a buffer over b without copying. The caller must not modify
// b while the buffer is alive.
func Wrap(b []byte) *Bytes {
	buf := &Bytes{b: b}
	buf.rc.init()
	return buf
}

// FromString returns a buffer holding a copy of s.
func FromString(s string) *Bytes {
	return Wrap([]byte(s))
}

// Get returns a pooled buffer of length size. The backing array goes back to
// the pool when the last reference is released. Fill it through Writable.
func Get(size int) *Bytes {
	buf := &Bytes{b: slices.Get(size), pooled: true}
	buf.rc.init()
	return buf
}

// Copy returns a pooled buffer holding a copy of b.
func Copy(b []byte) *Bytes {
	buf := Get(len(b))
	copy(buf.b, b)
	return buf
}

// Writable exposes the backing slice for filling a buffer obtained from Get.
func (b *Bytes) Writable() []byte {
	b.rc.mustBeLive()
	return b.b
}

func (b *Bytes) Len() int {
	return len(b.b)
}

func (b *Bytes) RefCount() int32 {
	return b.rc.load()
}

func (b *Bytes) Retain() Buffer {
	b.rc.retain()
	return b
}

func (b *Bytes) Release() bool {
	if !b.rc.release() {
		return false
	}
	if b.pooled {
		slices.Put(b.b)
	}
	b.b = nil
	return true
}

func (b *Bytes) Segments() [][]byte {
	b.rc.mustBeLive()
	if len(b.b) == 0 {
		return nil
	}
	return [][]byte{b.b}
}

func (b *Bytes) WriteTo(w io.Writer) (int64, error) {
	b.rc.mustBeLive()
	n, err := w.Write(b.b)
	return int64(n), err
}

func (b *Bytes) Bytes() []byte {
	b.rc.mustBeLive()
	return b.b
}

// empty is the shared zero-length buffer. It is never deallocated.
type empty struct{}

var emptyBuffer Buffer = empty{}

// Empty returns the shared zero-length buffer. Retain and Release are no-ops.
func Empty() Buffer {
	return emptyBuffer
}

func (empty) Len() int                         { return 0 }
func (empty) RefCount() int32                  { return 1 }
func (e empty) Retain() Buffer                 { return e }
func (empty) Release() bool                    { return false }
func (empty) Segments() [][]byte               { return nil }
func (empty) WriteTo(io.Writer) (int64, error) { return 0, nil }
func (empty) Bytes() []byte                    { return nil }

// NewReader returns a reader over the content of buf. The reader does not hold
// a reference; buf must stay alive until reading is done.
func NewReader(buf Buffer) io.Reader {
	bufs := net.Buffers(buf.Segments())
	return &bufs
}

// writeSegments writes segs with net.Buffers so that connections get a single
// writev call.
func writeSegments(w io.Writer, segs [][]byte) (int64, error) {
	bufs := net.Buffers(segs)
	return bufs.WriteTo(w)
}
