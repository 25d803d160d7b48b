package partition

import "hash/fnv"

// Count is the fixed number of lock stripes streams are spread over.
const Count = 256

// For returns the stripe for a stream ID.
// Stable and deterministic: the same streamID always maps to the same stripe,
// so all writes for one stream contend on one lock.
// Uses FNV-32a (stdlib, fast, well-distributed).
func For(streamID string) int {
	h := fnv.New32a()
	h.Write([]byte(streamID))
	return int(h.Sum32() % Count)
}
