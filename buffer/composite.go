package buffer

import (
	"io"
)

// Composite is a logical concatenation of independently owned buffers.
// It owns one reference to each component and releases every component
// exactly once when its own reference count reaches zero.
type Composite struct {
	rc         refCount
	components []Buffer
	length     int
}

var _ Buffer = (*Composite)(nil)

// NewComposite takes ownership of components and exposes them as one buffer.
// Nil components are skipped.
func NewComposite(components ...Buffer) *Composite {
	c := &Composite{components: make([]Buffer, 0, len(components))}
	c.rc.init()
	for _, b := range components {
		if b == nil {
			continue
		}
		c.components = append(c.components, b)
		c.length += b.Len()
	}
	return c
}

// Components returns the component buffers in order. The composite keeps
// ownership of them.
func (c *Composite) Components() []Buffer {
	c.rc.mustBeLive()
	return c.components
}

func (c *Composite) Len() int {
	return c.length
}

func (c *Composite) RefCount() int32 {
	return c.rc.load()
}

func (c *Composite) Retain() Buffer {
	c.rc.retain()
	return c
}

func (c *Composite) Release() bool {
	if !c.rc.release() {
		return false
	}
	for _, b := range c.components {
		b.Release()
	}
	c.components = nil
	return true
}

func (c *Composite) Segments() [][]byte {
	c.rc.mustBeLive()
	segs := make([][]byte, 0, len(c.components))
	for _, b := range c.components {
		segs = append(segs, b.Segments()...)
	}
	return segs
}

func (c *Composite) WriteTo(w io.Writer) (int64, error) {
	return writeSegments(w, c.Segments())
}

func (c *Composite) Bytes() []byte {
	out := make([]byte, 0, c.length)
	for _, seg := range c.Segments() {
		out = append(out, seg...)
	}
	return out
}

// Compose builds the content of a request: path first, then fragments in call
// order. It takes ownership of path and of every fragment.
//
// A zero-length path contributes nothing and is released. When exactly one
// component remains it is returned as is, with no wrapping layer; when none
// remain the result is Empty().
func Compose(path Buffer, fragments ...Buffer) Buffer {
	components := make([]Buffer, 0, 1+len(fragments))
	if path != nil {
		if path.Len() > 0 {
			components = append(components, path)
		} else {
			path.Release()
		}
	}
	for _, f := range fragments {
		if f != nil {
			components = append(components, f)
		}
	}

	switch len(components) {
	case 0:
		return Empty()
	case 1:
		return components[0]
	default:
		return NewComposite(components...)
	}
}

// ReleaseAll releases every non-nil buffer once. It is meant for error paths
// where ownership was received but never passed on.
func ReleaseAll(bufs ...Buffer) {
	for _, b := range bufs {
		if b != nil {
			b.Release()
		}
	}
}
