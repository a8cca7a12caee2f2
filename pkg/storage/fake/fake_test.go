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

package fake

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

func TestCompletedEventsReplayOrder(t *testing.T) {
	store := New()
	ctx := context.Background()

	group := &storage.Group{Name: "G"}
	require.NoError(t, store.Groups().Create(ctx, group))

	base := time.Now()
	// Same start time: creation order breaks the tie. Then an earlier event
	// created later must still sort first.
	mk := func(name string, startsAt time.Time, status storage.EventStatus) {
		require.NoError(t, store.Events().Create(ctx, &storage.Event{
			GroupID: group.ID, Name: name, StartsAt: startsAt,
			Courts: 1, Rounds: 1, Status: status,
		}))
	}
	mk("second", base, storage.EventCompleted)
	mk("third", base, storage.EventCompleted)
	mk("first", base.Add(-time.Hour), storage.EventCompleted)
	mk("ignored", base.Add(-2*time.Hour), storage.EventDraft)

	events, err := store.Events().ListCompletedByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Name)
	assert.Equal(t, "second", events[1].Name)
	assert.Equal(t, "third", events[2].Name)
}

func TestPreviousCompleted(t *testing.T) {
	store := New()
	ctx := context.Background()

	group := &storage.Group{Name: "G"}
	require.NoError(t, store.Groups().Create(ctx, group))

	base := time.Now()
	older := &storage.Event{GroupID: group.ID, Name: "older", StartsAt: base.Add(-48 * time.Hour), Courts: 1, Rounds: 1, Status: storage.EventCompleted}
	newest := &storage.Event{GroupID: group.ID, Name: "newest", StartsAt: base.Add(-24 * time.Hour), Courts: 1, Rounds: 1, Status: storage.EventCompleted}
	current := &storage.Event{GroupID: group.ID, Name: "current", StartsAt: base, Courts: 1, Rounds: 1, Status: storage.EventGenerated}
	for _, e := range []*storage.Event{older, newest, current} {
		require.NoError(t, store.Events().Create(ctx, e))
	}

	prev, err := store.Events().PreviousCompleted(ctx, group.ID, current.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "newest", prev.Name)

	// The event itself is excluded.
	prev, err = store.Events().PreviousCompleted(ctx, group.ID, newest.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "older", prev.Name)

	none, err := store.Events().PreviousCompleted(ctx, uuid.New(), current.ID)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventUpdateWhitelist(t *testing.T) {
	store := New()
	ctx := context.Background()

	event := &storage.Event{GroupID: uuid.New(), Name: "before", StartsAt: time.Now(), Courts: 1, Rounds: 1}
	require.NoError(t, store.Events().Create(ctx, event))

	err := store.Events().Update(ctx, event.ID, map[string]any{"name": "after", "rounds": 4})
	require.NoError(t, err)
	got, err := store.Events().Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Name)
	assert.Equal(t, 4, got.Rounds)

	err = store.Events().Update(ctx, event.ID, map[string]any{"status": "COMPLETED"})
	require.ErrorIs(t, err, storage.ErrInvalidColumn)
}

func TestDeleteEventCascadesGames(t *testing.T) {
	store := New()
	ctx := context.Background()

	event := &storage.Event{GroupID: uuid.New(), Name: "E", StartsAt: time.Now(), Courts: 1, Rounds: 1}
	require.NoError(t, store.Events().Create(ctx, event))
	require.NoError(t, store.Games().ReplaceForEvent(ctx, event.ID, []storage.GameRow{
		{Team1: [2]uuid.UUID{uuid.New(), uuid.New()}, Team2: [2]uuid.UUID{uuid.New(), uuid.New()}},
	}))

	games, err := store.Games().ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, games, 1)

	require.NoError(t, store.Events().Delete(ctx, event.ID))
	_, err = store.Games().Get(ctx, games[0].ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReplaceForEventDropsOldGames(t *testing.T) {
	store := New()
	ctx := context.Background()
	eventID := uuid.New()

	require.NoError(t, store.Games().ReplaceForEvent(ctx, eventID, []storage.GameRow{
		{RoundIndex: 0, CourtIndex: 0, Team1: [2]uuid.UUID{uuid.New(), uuid.New()}, Team2: [2]uuid.UUID{uuid.New(), uuid.New()}},
		{RoundIndex: 0, CourtIndex: 1, Team1: [2]uuid.UUID{uuid.New(), uuid.New()}, Team2: [2]uuid.UUID{uuid.New(), uuid.New()}},
	}))
	require.NoError(t, store.Games().ReplaceForEvent(ctx, eventID, []storage.GameRow{
		{RoundIndex: 0, CourtIndex: 0, Team1: [2]uuid.UUID{uuid.New(), uuid.New()}, Team2: [2]uuid.UUID{uuid.New(), uuid.New()}},
	}))

	games, err := store.Games().ListByEvent(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, games, 1)
}
