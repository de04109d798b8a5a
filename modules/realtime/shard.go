package realtime

import "github.com/cespare/xxhash/v2"

// shardCount is the number of independently locked partitions used by the
// registry and the presence tracker.
const shardCount = 32

func shardFor(key string) uint64 {
	return xxhash.Sum64String(key) % shardCount
}
