package sync

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is used when NewShardedMutex is given a non-positive count.
const DefaultShards = 32

// ShardedMutex serializes work per key without a single global lock.
// Keys are spread over a fixed set of mutexes by FNV-1a hash; two keys that
// share a shard also share a lock, which is safe but may contend.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with the given number of shards.
func NewShardedMutex(shards int) *ShardedMutex {
	if shards <= 0 {
		shards = DefaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, shards)}
}

// Lock acquires the lock for the given key's shard.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// With runs fn while holding key's shard.
func (m *ShardedMutex) With(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

// shardFor returns the shard index for the given key. Empty keys use shard 0.
func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key)) //nolint:errcheck // hash writes never fail
	return int(h.Sum32() % uint32(len(m.shards)))
}
