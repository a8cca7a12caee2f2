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

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetExpiry(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestInvalidatePrefix(t *testing.T) {
	c := New(time.Minute)
	c.Set("rankings:g1", 1)
	c.Set("rankings:g1:history", 2)
	c.Set("rankings:g2", 3)

	c.InvalidatePrefix("rankings:g1")

	_, ok := c.Get("rankings:g1")
	assert.False(t, ok)
	_, ok = c.Get("rankings:g1:history")
	assert.False(t, ok)
	_, ok = c.Get("rankings:g2")
	assert.True(t, ok)
}

func TestCleanup(t *testing.T) {
	c := New(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(2 * time.Minute)
	c.Set("b", 2)

	c.Cleanup()

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.entries, 1)
}
