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

package rankings

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallyrank/rallyrank/pkg/cache"
	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/storage"
	"github.com/rallyrank/rallyrank/pkg/storage/fake"
)

func seedGroup(t *testing.T, store *fake.Store) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	group := &storage.Group{Name: "Club"}
	require.NoError(t, store.Groups().Create(ctx, group))

	specs := []struct {
		name   string
		rating float64
		played int
		wins   int
		losses int
		ties   int
	}{
		{"Alice", 1150, 10, 7, 2, 1},
		{"Bob", 980, 8, 3, 5, 0},
		{"Cara", 1150, 4, 2, 2, 0},
		{"Dan", 1000, 0, 0, 0, 0},
	}
	var ids []uuid.UUID
	for _, spec := range specs {
		p := &storage.GroupPlayer{
			GroupID:     group.ID,
			DisplayName: spec.name,
			Rating:      spec.rating,
			GamesPlayed: spec.played,
			Wins:        spec.wins,
			Losses:      spec.losses,
			Ties:        spec.ties,
		}
		require.NoError(t, store.Players().Create(ctx, p))
		ids = append(ids, p.ID)
	}
	return group.ID, ids
}

func TestRankingsOrderAndWinRate(t *testing.T) {
	store := fake.New()
	groupID, _ := seedGroup(t, store)
	svc := New(store, nil, logr.Discard())

	entries, err := svc.Rankings(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Rating descending; equal ratings break by name.
	assert.Equal(t, "Alice", entries[0].DisplayName)
	assert.Equal(t, "Cara", entries[1].DisplayName)
	assert.Equal(t, "Dan", entries[2].DisplayName)
	assert.Equal(t, "Bob", entries[3].DisplayName)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 4, entries[3].Rank)

	// Ties count as half a win.
	assert.InDelta(t, 0.75, entries[0].WinRate, 1e-9)
	assert.Equal(t, 0.0, entries[2].WinRate, "no games means zero rate")
}

func TestRankingsLastEventDelta(t *testing.T) {
	store := fake.New()
	groupID, ids := seedGroup(t, store)
	svc := New(store, nil, logr.Discard())
	ctx := context.Background()

	// Two events' worth of audit records; only the newest one feeds the
	// standings delta.
	older := uuid.New()
	require.NoError(t, store.RatingUpdates().Insert(ctx, []storage.RatingUpdate{
		{GroupID: groupID, EventID: older, PlayerID: ids[0], RatingBefore: 1000, RatingAfter: 1120, Delta: 120},
	}))
	newest := uuid.New()
	require.NoError(t, store.RatingUpdates().Insert(ctx, []storage.RatingUpdate{
		{GroupID: groupID, EventID: newest, PlayerID: ids[0], RatingBefore: 1120, RatingAfter: 1150, Delta: 30},
		{GroupID: groupID, EventID: newest, PlayerID: ids[1], RatingBefore: 1000, RatingAfter: 980, Delta: -20},
	}))

	entries, err := svc.Rankings(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.DisplayName] = e
	}
	assert.Equal(t, 30.0, byName["Alice"].LastDelta)
	assert.Equal(t, -20.0, byName["Bob"].LastDelta)
	assert.Equal(t, 0.0, byName["Cara"].LastDelta, "players the last event did not move stay at zero")
	assert.Equal(t, 0.0, byName["Dan"].LastDelta)
}

func TestRankingsCacheInvalidation(t *testing.T) {
	store := fake.New()
	groupID, ids := seedGroup(t, store)
	svc := New(store, cache.New(time.Minute), logr.Discard())
	ctx := context.Background()

	first, err := svc.Rankings(ctx, groupID)
	require.NoError(t, err)

	bob, err := store.Players().Get(ctx, ids[1])
	require.NoError(t, err)
	bob.Rating = 2000
	require.NoError(t, store.Players().UpdateRatingAndStats(ctx, bob))

	// Still the cached standings until the group is invalidated.
	cached, err := svc.Rankings(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, first[0].DisplayName, cached[0].DisplayName)

	svc.InvalidateGroup(groupID)

	fresh, err := svc.Rankings(ctx, groupID)
	require.NoError(t, err)
	assert.Equal(t, "Bob", fresh[0].DisplayName)
}

func TestHistoryFilters(t *testing.T) {
	store := fake.New()
	groupID, ids := seedGroup(t, store)
	svc := New(store, nil, logr.Discard())
	ctx := context.Background()

	old := time.Now().Add(-72 * time.Hour)
	recent := time.Now().Add(-2 * time.Hour)
	for i, startsAt := range []time.Time{old, recent} {
		event := &storage.Event{
			GroupID:      groupID,
			Name:         "E" + string(rune('1'+i)),
			StartsAt:     startsAt,
			Courts:       1,
			Rounds:       1,
			Status:       storage.EventCompleted,
			Participants: ids,
		}
		require.NoError(t, store.Events().Create(ctx, event))
		require.NoError(t, store.Games().ReplaceForEvent(ctx, event.ID, []storage.GameRow{{
			Team1:  [2]uuid.UUID{ids[0], ids[1]},
			Team2:  [2]uuid.UUID{ids[2], ids[3]},
			Result: rating.Team1Win,
		}}))
	}

	all, err := svc.History(ctx, groupID, storage.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "E2", all[0].EventName, "newest first")

	cutoff := time.Now().Add(-24 * time.Hour)
	recentOnly, err := svc.History(ctx, groupID, storage.HistoryFilter{From: &cutoff})
	require.NoError(t, err)
	require.Len(t, recentOnly, 1)
	assert.Equal(t, "E2", recentOnly[0].EventName)

	outsider := uuid.New()
	none, err := svc.History(ctx, groupID, storage.HistoryFilter{PlayerID: &outsider})
	require.NoError(t, err)
	assert.Empty(t, none)
}
