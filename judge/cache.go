// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package judge

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a bounded LRU of judged answers keyed by the exact
// (question, transcript window) pair. It is shared process-wide across
// runs, safe for concurrent use, and only ever consulted for
// temperature-zero evaluations. It is an explicit dependency: construct
// one and inject it rather than relying on ambient state.
type Cache struct {
	entries *lru.Cache[string, Answer]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache bounded to capacity entries with standard LRU
// eviction. A capacity of zero or less disables caching: the returned
// cache is valid but never stores anything.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return &Cache{}, nil
	}
	entries, err := lru.New[string, Answer](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached answer for key, if present.
func (c *Cache) Get(key string) (Answer, bool) {
	if c == nil || c.entries == nil {
		return Answer{}, false
	}
	a, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return a, ok
}

// Put stores an answer under key, evicting the least recently used entry
// when full.
func (c *Cache) Put(key string, a Answer) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(key, a)
}

// Len returns the number of cached answers.
func (c *Cache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every cached answer.
func (c *Cache) Purge() {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Purge()
}

// Stats returns hit and miss counts since construction.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// CacheKey derives the cache key for a (question, window) pair. Fields
// are length-prefixed before hashing so distinct windows can never
// collide by concatenation.
func CacheKey(question string, window []Exchange) string {
	h := sha256.New()
	writeField := func(s string) {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}
	writeField(question)
	for _, ex := range window {
		writeField(ex.UserMessage)
		writeField(ex.Reply)
	}
	return hex.EncodeToString(h.Sum(nil))
}
