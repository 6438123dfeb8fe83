package couchbase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVBucketByCRC32(t *testing.T) {
	vb := VBucketByCRC32(64)

	counts := make(map[uint16]int)
	for i := range 6400 {
		key := fmt.Sprintf("user::%d", i)
		v := vb(key)
		assert.Less(t, v, uint16(64))
		assert.Equal(t, v, vb(key))
		counts[v]++
	}
	assert.Len(t, counts, 64, "every partition receives keys")
}

func TestVBucketByCRC32_Default(t *testing.T) {
	vb := VBucketByCRC32(0)
	for i := range 1000 {
		assert.Less(t, vb(fmt.Sprint(i)), uint16(DefaultNumVBuckets))
	}
}
