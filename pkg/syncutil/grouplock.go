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

package syncutil

import (
	"sync"

	"github.com/google/uuid"
)

// GroupLocker serializes mutating operations per group. Schedule
// generation, completion and recalculation must never interleave for the
// same group; different groups proceed independently.
type GroupLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

// NewGroupLocker returns an empty locker.
func NewGroupLocker() *GroupLocker {
	return &GroupLocker{locks: make(map[uuid.UUID]*groupLock)}
}

// Lock blocks until the group's lock is held and returns the release
// function. Locks are created on demand and dropped once unreferenced.
func (l *GroupLocker) Lock(groupID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[groupID]
	if !ok {
		entry = &groupLock{}
		l.locks[groupID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			l.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, groupID)
			}
			l.mu.Unlock()
		})
	}
}
