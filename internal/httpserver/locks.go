// internal/httpserver/locks.go
//
// Per-session serialisation for load-apply-save and locked reads.

package httpserver

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedLocks serialises load-apply-save per session ID.
// IDs hash onto a fixed set of mutexes; unrelated sessions may share one.
type keyedLocks struct {
	shards [lockShards]sync.Mutex
}

func newKeyedLocks() *keyedLocks { return &keyedLocks{} }

// lock acquires the mutex for id and returns its unlock func.
func (k *keyedLocks) lock(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &k.shards[h.Sum32()%lockShards]
	mu.Lock()
	return mu.Unlock
}
