package internal

import (
	"sync"
)

// maxPooledCap bounds the slices kept for reuse so a single large value does
// not pin memory in the pool.
const maxPooledCap = 64 << 10

// SlicePool hands out byte slices of a requested length backed by reusable arrays.
type SlicePool struct {
	pool sync.Pool
}

func NewSlicePool(initialCap int) *SlicePool {
	return &SlicePool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, 0, initialCap)
				return &b
			},
		},
	}
}

// Get returns a slice of length size. Its content is unspecified.
func (p *SlicePool) Get(size int) []byte {
	bp := p.pool.Get().(*[]byte)
	if cap(*bp) < size {
		p.pool.Put(bp)
		return make([]byte, size)
	}
	return (*bp)[:size]
}

// Put returns b to the pool. The caller must not use b afterwards.
func (p *SlicePool) Put(b []byte) {
	if cap(b) > maxPooledCap {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}
