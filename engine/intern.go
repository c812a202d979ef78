package engine

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// internTable deduplicates the handful of strings that repeat across every
// event in a session (URLs, initiator types, protocols) so that long
// captures don't hold thousands of identical copies.
type internTable struct {
	shards [256]internShard
}

type internShard struct {
	mu    sync.RWMutex
	table map[string]string
}

func newInternTable() *internTable {
	t := &internTable{}
	for i := range t.shards {
		t.shards[i].table = make(map[string]string)
	}
	return t
}

// Intern returns the canonical copy of s. Shard selection uses xxhash so
// ingestion and annotation callbacks hitting different strings rarely
// contend on the same lock.
func (t *internTable) Intern(s string) string {
	if s == "" {
		return ""
	}

	shard := &t.shards[xxhash.Sum64String(s)%256]

	shard.mu.RLock()
	if interned, exists := shard.table[s]; exists {
		shard.mu.RUnlock()
		return interned
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if interned, exists := shard.table[s]; exists {
		return interned
	}

	shard.table[s] = s
	return s
}
