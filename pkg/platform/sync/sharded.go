// Package sync provides fine-grained locking primitives shared across services.
package sync

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// ShardedMutex serializes operations per key without a global lock.
// Operations are distributed across a fixed set of shards based on a hash of
// the key, so two events for the same key always contend on the same mutex
// while unrelated keys rarely do.
//
// The click tracker uses it keyed by platform user id: a selection event's
// read-then-write against the store must not interleave with another event
// for the same user.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex creates a ShardedMutex with the default shard count.
func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{shards: make([]sync.Mutex, defaultShards)}
}

// Lock acquires the lock for the given key's shard.
func (m *ShardedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock for the given key's shard.
func (m *ShardedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// shardFor returns the shard index for the given key. Empty keys map to shard 0.
func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
