package couchbase

import (
	"hash/crc32"
)

// DefaultNumVBuckets is the partition count of a default Couchbase bucket.
const DefaultNumVBuckets = 1024

// VBucketByCRC32 returns a Config.VBucket function mapping a key to its
// partition the way Couchbase servers do: the upper half of the key's
// CRC32, masked to 15 bits, modulo numVBuckets.
func VBucketByCRC32(numVBuckets int) func(key string) uint16 {
	if numVBuckets <= 0 {
		numVBuckets = DefaultNumVBuckets
	}
	return func(key string) uint16 {
		crc := crc32.ChecksumIEEE([]byte(key))
		return uint16(((crc >> 16) & 0x7fff) % uint32(numVBuckets))
	}
}
