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

package event

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/replay"
	"github.com/rallyrank/rallyrank/pkg/settings"
	"github.com/rallyrank/rallyrank/pkg/storage"
	"github.com/rallyrank/rallyrank/pkg/storage/fake"
	"github.com/rallyrank/rallyrank/pkg/syncutil"
)

type fixture struct {
	svc     *Service
	store   *fake.Store
	groupID uuid.UUID
	players []uuid.UUID
}

func newFixture(t *testing.T, playerCount int) *fixture {
	t.Helper()
	ctx := context.Background()
	store := fake.New()

	blob, err := settings.Default().ToJSON()
	require.NoError(t, err)
	group := &storage.Group{Name: "Tuesday Padel", Settings: blob}
	require.NoError(t, store.Groups().Create(ctx, group))

	var ids []uuid.UUID
	for i := 0; i < playerCount; i++ {
		p := &storage.GroupPlayer{
			GroupID:     group.ID,
			DisplayName: fmt.Sprintf("Player %d", i+1),
			Membership:  settings.MembershipPermanent,
			Rating:      1000,
		}
		require.NoError(t, store.Players().Create(ctx, p))
		ids = append(ids, p.ID)
	}

	locks := syncutil.NewGroupLocker()
	replayer := replay.New(store, locks, logr.Discard())
	return &fixture{
		svc:     NewService(store, locks, replayer, nil, logr.Discard()),
		store:   store,
		groupID: group.ID,
		players: ids,
	}
}

func (f *fixture) createEvent(t *testing.T, courts, rounds int) *storage.Event {
	t.Helper()
	event, err := f.svc.Create(context.Background(), CreateParams{
		GroupID:      f.groupID,
		Name:         "Week 1",
		StartsAt:     time.Now(),
		Courts:       courts,
		Rounds:       rounds,
		Participants: f.players[:courts*4],
	})
	require.NoError(t, err)
	return event
}

func score(v float64) *float64 {
	return &v
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateParams{GroupID: f.groupID, Courts: 0, Rounds: 1})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.svc.Create(ctx, CreateParams{
		GroupID: f.groupID, Courts: 2, Rounds: 1, StartsAt: time.Now(),
		Participants: f.players[:5],
	})
	assert.Equal(t, KindValidation, KindOf(err))

	dupes := []uuid.UUID{f.players[0], f.players[0], f.players[1], f.players[2]}
	_, err = f.svc.Create(ctx, CreateParams{
		GroupID: f.groupID, Courts: 1, Rounds: 1, StartsAt: time.Now(),
		Participants: dupes,
	})
	assert.Equal(t, KindValidation, KindOf(err))

	stranger := &storage.GroupPlayer{GroupID: uuid.New(), DisplayName: "Outsider", Rating: 1000}
	require.NoError(t, f.store.Players().Create(ctx, stranger))
	_, err = f.svc.Create(ctx, CreateParams{
		GroupID: f.groupID, Courts: 1, Rounds: 1, StartsAt: time.Now(),
		Participants: []uuid.UUID{stranger.ID, f.players[0], f.players[1], f.players[2]},
	})
	assert.Equal(t, KindValidation, KindOf(err))

	event := f.createEvent(t, 2, 3)
	assert.Equal(t, storage.EventDraft, event.Status)
}

func TestGenerateProducesSchedule(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()
	event := f.createEvent(t, 2, 3)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)

	assert.Equal(t, storage.EventGenerated, result.Event.Status)
	assert.Len(t, result.Games, 6)
	assert.NotEmpty(t, result.Event.GenerationMeta)
	assert.Equal(t, event.ID.String(), result.Metadata.SeedUsed)

	for _, g := range result.Games {
		assert.Equal(t, 1000.0, g.Team1Elo)
		assert.Equal(t, 1000.0, g.Team2Elo)
		assert.Equal(t, rating.Unset, g.Result)
	}
}

func TestGenerateIsReproducibleWithEventSeed(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()
	event := f.createEvent(t, 2, 2)

	first, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)

	require.Equal(t, len(first.Games), len(second.Games))
	for i := range first.Games {
		assert.Equal(t, first.Games[i].Team1, second.Games[i].Team1)
		assert.Equal(t, first.Games[i].Team2, second.Games[i].Team2)
	}
}

func TestGenerateRejectsCompletedEvent(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	event := f.createEvent(t, 1, 1)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(ctx, result.Games[0].ID, score(11), score(7))
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, event.ID)
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, event.ID, false)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestSwapAcrossGames(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()
	event := f.createEvent(t, 2, 1)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)

	// One player from each court of round 0.
	a := result.Games[0].Team1[0]
	b := result.Games[1].Team1[0]

	swap, err := f.svc.Swap(ctx, event.ID, 0, a, b)
	require.NoError(t, err)
	require.Len(t, swap.Games, 2)
	assert.Equal(t, b, swap.Games[0].Team1[0])
	assert.Equal(t, a, swap.Games[1].Team1[0])
	assert.True(t, swap.Games[0].Swapped)
	assert.True(t, swap.Games[1].Swapped)

	updated, err := f.store.Events().Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.EventInProgress, updated.Status)
}

func TestSwapErrors(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()
	event := f.createEvent(t, 2, 1)

	_, err := f.svc.Swap(ctx, event.ID, 0, f.players[0], f.players[1])
	assert.Equal(t, KindConflict, KindOf(err), "no schedule yet")

	_, err = f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)

	_, err = f.svc.Swap(ctx, event.ID, 0, f.players[0], f.players[0])
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.svc.Swap(ctx, event.ID, 0, f.players[0], uuid.New())
	assert.Equal(t, KindBadRequest, KindOf(err))
}

func TestUpdateScoreDerivesResultAndStatus(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	event := f.createEvent(t, 1, 1)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)
	gameID := result.Games[0].ID

	game, err := f.svc.UpdateScore(ctx, gameID, score(11), score(7))
	require.NoError(t, err)
	assert.Equal(t, rating.Team1Win, game.Result)

	updated, err := f.store.Events().Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.EventInProgress, updated.Status)

	_, err = f.svc.UpdateScore(ctx, gameID, score(-1), score(7))
	assert.Equal(t, KindValidation, KindOf(err))

	game, err = f.svc.UpdateScore(ctx, gameID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, rating.Unset, game.Result)
}

func TestCompleteAppliesRatingsAndStats(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	event := f.createEvent(t, 1, 1)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)
	game := result.Games[0]
	_, err = f.svc.UpdateScore(ctx, game.ID, score(11), score(7))
	require.NoError(t, err)

	completed, err := f.svc.Complete(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.EventCompleted, completed.Event.Status)

	// The result reports every player's movement, not just the new state.
	require.Len(t, completed.Deltas, 4)
	for _, id := range game.Team1 {
		assert.Equal(t, 16.0, completed.Deltas[id].Delta)
	}
	for _, id := range game.Team2 {
		assert.Equal(t, -16.0, completed.Deltas[id].Delta)
	}

	for _, id := range game.Team1 {
		p, err := f.store.Players().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1016.0, p.Rating)
		assert.Equal(t, 1, p.GamesPlayed)
		assert.Equal(t, 1, p.Wins)
	}
	for _, id := range game.Team2 {
		p, err := f.store.Players().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 984.0, p.Rating)
		assert.Equal(t, 1, p.Losses)
	}

	for _, id := range f.players {
		updates, err := f.store.RatingUpdates().ListByPlayer(ctx, id)
		require.NoError(t, err)
		require.Len(t, updates, 1)
		assert.Equal(t, 1000.0, updates[0].RatingBefore)
		assert.Equal(t, updates[0].RatingAfter-updates[0].RatingBefore, updates[0].Delta)
		assert.Equal(t, rating.SystemSeriousElo, updates[0].System)
	}

	_, err = f.svc.Complete(ctx, event.ID)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestCompleteRequiresSchedule(t *testing.T) {
	f := newFixture(t, 4)
	event := f.createEvent(t, 1, 1)

	_, err := f.svc.Complete(context.Background(), event.ID)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestScoreEditAfterCompleteRecalculates(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	event := f.createEvent(t, 1, 1)

	result, err := f.svc.Generate(ctx, event.ID, false)
	require.NoError(t, err)
	game := result.Games[0]
	_, err = f.svc.UpdateScore(ctx, game.ID, score(11), score(7))
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, event.ID)
	require.NoError(t, err)

	// Reverse the outcome on the completed event; ratings must be rebuilt
	// from history, not patched incrementally.
	_, err = f.svc.UpdateScore(ctx, game.ID, score(3), score(11))
	require.NoError(t, err)

	for _, id := range game.Team1 {
		p, err := f.store.Players().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 984.0, p.Rating)
		assert.Equal(t, 1, p.Losses)
		assert.Equal(t, 0, p.Wins)
	}
	for _, id := range game.Team2 {
		p, err := f.store.Players().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1016.0, p.Rating)
		assert.Equal(t, 1, p.Wins)
	}
}

func TestDeleteRules(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	draft := f.createEvent(t, 1, 1)
	require.NoError(t, f.svc.Delete(ctx, draft.ID))
	_, err := f.store.Events().Get(ctx, draft.ID)
	assert.Equal(t, KindNotFound, KindOf(fromStorage(err, "event")))

	done := f.createEvent(t, 1, 1)
	result, err := f.svc.Generate(ctx, done.ID, false)
	require.NoError(t, err)
	_, err = f.svc.UpdateScore(ctx, result.Games[0].ID, score(11), score(5))
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, done.ID)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, done.ID)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestUpdateWhitelist(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()
	event := f.createEvent(t, 1, 1)

	updated, err := f.svc.Update(ctx, event.ID, map[string]any{"name": "Week 1 (moved)"})
	require.NoError(t, err)
	assert.Equal(t, "Week 1 (moved)", updated.Name)

	_, err = f.svc.Update(ctx, event.ID, map[string]any{"status": "COMPLETED"})
	assert.Equal(t, KindBadRequest, KindOf(err))
}
