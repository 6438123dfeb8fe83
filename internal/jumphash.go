package internal

// JumpHash maps key onto one of numBuckets buckets with Google's "Jump"
// consistent hash (https://arxiv.org/abs/1406.2294). Adapted from
// https://github.com/dgryski/go-jump.
//
// Growing numBuckets from n to n+1 only moves 1/(n+1) of the keys.
func JumpHash(key uint64, numBuckets int) int {
	if numBuckets <= 1 {
		return 0
	}

	var b int64 = -1
	var j int64

	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}

	return int(b)
}
