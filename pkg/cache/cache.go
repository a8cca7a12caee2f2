/*

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package cache is a small in-process TTL cache used on the ranking read
// path. Entries expire passively on read; Cleanup sweeps the rest.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultTTL matches the read-path freshness the ranking endpoints accept.
const DefaultTTL = 30 * time.Second

type entry struct {
	value     any
	expiresAt time.Time
}

// TTL is a mutex-guarded cache with a fixed time-to-live.
type TTL struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New returns a cache with the given TTL; zero selects DefaultTTL.
func New(ttl time.Duration) *TTL {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTL{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value when present and fresh.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores a value under key for one TTL period.
func (c *TTL) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// InvalidatePrefix drops every entry whose key starts with prefix. Group
// write paths call this with the group's key prefix.
func (c *TTL) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Cleanup removes every expired entry.
func (c *TTL) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Run sweeps expired entries on the given interval until ctx is done.
func (c *TTL) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}
