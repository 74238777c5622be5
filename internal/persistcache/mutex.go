package persistcache

import (
	"hash/fnv"
	"sync"
)

// shardCount bounds the number of save mutexes held at once; concurrent
// saves to different cache keys hashing to different shards don't
// serialize on each other, while same-key saves always land on the same
// shard and stay strictly ordered (spec.md §5 "Ordering guarantees").
const shardCount = 64

type keyedMutex struct {
	shards [shardCount]sync.Mutex
}

func (m *keyedMutex) Lock(key string) func() {
	s := &m.shards[shardIndex(key)]
	s.Lock()
	return s.Unlock
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
