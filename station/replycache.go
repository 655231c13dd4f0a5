package station

import (
	"sync"
	"time"
)

// ReplyCache keeps the serialized reply for recently answered inbound
// unique ids, so a replayed Call gets the original response without
// re-executing its side effects. Entries live for 2x messageTimeout and
// the cache is empty after restart.
type ReplyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]replyEntry
}

type replyEntry struct {
	data    []byte
	expires time.Time
}

func NewReplyCache(messageTimeout time.Duration) *ReplyCache {
	return &ReplyCache{
		ttl:     2 * messageTimeout,
		entries: make(map[string]replyEntry),
	}
}

func (c *ReplyCache) Get(uniqueId string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[uniqueId]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expires) {
		delete(c.entries, uniqueId)
		return nil, false
	}
	return entry.data, true
}

func (c *ReplyCache) Put(uniqueId string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, id)
		}
	}
	c.entries[uniqueId] = replyEntry{data: data, expires: now.Add(c.ttl)}
}
