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

// Package fake is an in-memory storage.Store for tests and offline preview.
// WithinTx provides serialization but no rollback; tests that exercise
// failure paths should not rely on transactional undo.
package fake

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/storage"
)

// Store implements storage.Store over maps.
type Store struct {
	mu      sync.Mutex
	groups  map[uuid.UUID]storage.Group
	players map[uuid.UUID]storage.GroupPlayer
	events  map[uuid.UUID]storage.Event
	games   map[uuid.UUID]storage.GameRow
	updates []storage.RatingUpdate

	base time.Time
	seq  int64
}

var _ storage.Store = &Store{}

// New returns an empty store.
func New() *Store {
	return &Store{
		groups:  make(map[uuid.UUID]storage.Group),
		players: make(map[uuid.UUID]storage.GroupPlayer),
		events:  make(map[uuid.UUID]storage.Event),
		games:   make(map[uuid.UUID]storage.GameRow),
		base:    time.Now().UTC(),
	}
}

// stamp returns a strictly increasing timestamp so created_at ordering is
// deterministic even when records are created within the same nanosecond.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.base.Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *Store) Groups() storage.Groups               { return groupsView{s} }
func (s *Store) Players() storage.Players             { return playersView{s} }
func (s *Store) Events() storage.Events               { return eventsView{s} }
func (s *Store) Games() storage.Games                 { return gamesView{s} }
func (s *Store) RatingUpdates() storage.RatingUpdates { return updatesView{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	return fn(ctx, s)
}

type groupsView struct{ s *Store }

func (v groupsView) Create(_ context.Context, group *storage.Group) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = v.s.stamp()
	}
	if len(group.Settings) == 0 {
		group.Settings = json.RawMessage(`{}`)
	}
	v.s.groups[group.ID] = *group
	return nil
}

func (v groupsView) Get(_ context.Context, id uuid.UUID) (*storage.Group, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.groups[id]
	if !ok {
		return nil, errors.Wrap(storage.ErrNotFound, "group")
	}
	return &g, nil
}

func (v groupsView) UpdateSettings(_ context.Context, id uuid.UUID, settings json.RawMessage) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.groups[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "group")
	}
	g.Settings = append(json.RawMessage(nil), settings...)
	v.s.groups[id] = g
	return nil
}

type playersView struct{ s *Store }

func (v playersView) Create(_ context.Context, player *storage.GroupPlayer) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if player.ID == uuid.Nil {
		player.ID = uuid.New()
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = v.s.stamp()
	}
	v.s.players[player.ID] = *player
	return nil
}

func (v playersView) Get(_ context.Context, id uuid.UUID) (*storage.GroupPlayer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.players[id]
	if !ok {
		return nil, errors.Wrap(storage.ErrNotFound, "group player")
	}
	return &p, nil
}

func (v playersView) ListByGroup(_ context.Context, groupID uuid.UUID) ([]storage.GroupPlayer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []storage.GroupPlayer
	for _, p := range v.s.players {
		if p.GroupID == groupID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (v playersView) UpdateRatingAndStats(_ context.Context, player *storage.GroupPlayer) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.players[player.ID]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "group player")
	}
	p.Rating = player.Rating
	p.GamesPlayed = player.GamesPlayed
	p.Wins = player.Wins
	p.Losses = player.Losses
	p.Ties = player.Ties
	v.s.players[player.ID] = p
	return nil
}

type eventsView struct{ s *Store }

func (v eventsView) Create(_ context.Context, event *storage.Event) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = v.s.stamp()
	}
	if event.Status == "" {
		event.Status = storage.EventDraft
	}
	v.s.events[event.ID] = *event
	return nil
}

func (v eventsView) Get(_ context.Context, id uuid.UUID) (*storage.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok {
		return nil, errors.Wrap(storage.ErrNotFound, "event")
	}
	return &e, nil
}

func (v eventsView) listWhere(keep func(storage.Event) bool, asc bool) []storage.Event {
	var out []storage.Event
	for _, e := range v.s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !asc {
			a, b = b, a
		}
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out
}

func (v eventsView) ListByGroup(_ context.Context, groupID uuid.UUID) ([]storage.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.listWhere(func(e storage.Event) bool { return e.GroupID == groupID }, false), nil
}

func (v eventsView) ListCompletedByGroup(_ context.Context, groupID uuid.UUID) ([]storage.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.listWhere(func(e storage.Event) bool {
		return e.GroupID == groupID && e.Status == storage.EventCompleted
	}, true), nil
}

func (v eventsView) PreviousCompleted(_ context.Context, groupID, excludeEventID uuid.UUID) (*storage.Event, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	completed := v.listWhere(func(e storage.Event) bool {
		return e.GroupID == groupID && e.Status == storage.EventCompleted && e.ID != excludeEventID
	}, false)
	if len(completed) == 0 {
		return nil, nil
	}
	return &completed[0], nil
}

func (v eventsView) Update(_ context.Context, id uuid.UUID, fields map[string]any) error {
	if err := storage.CheckEventUpdateFields(fields); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	for column, value := range fields {
		switch column {
		case "name":
			e.Name = value.(string)
		case "starts_at":
			e.StartsAt = value.(time.Time)
		case "courts":
			e.Courts = value.(int)
		case "rounds":
			e.Rounds = value.(int)
		}
	}
	v.s.events[id] = e
	return nil
}

func (v eventsView) UpdateStatus(_ context.Context, id uuid.UUID, status storage.EventStatus) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	e.Status = status
	v.s.events[id] = e
	return nil
}

func (v eventsView) SetGenerationMeta(_ context.Context, id uuid.UUID, meta json.RawMessage) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.events[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	e.GenerationMeta = append(json.RawMessage(nil), meta...)
	v.s.events[id] = e
	return nil
}

func (v eventsView) Delete(_ context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.events[id]; !ok {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	delete(v.s.events, id)
	for gameID, g := range v.s.games {
		if g.EventID == id {
			delete(v.s.games, gameID)
		}
	}
	return nil
}

type gamesView struct{ s *Store }

func (v gamesView) Get(_ context.Context, id uuid.UUID) (*storage.GameRow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.games[id]
	if !ok {
		return nil, errors.Wrap(storage.ErrNotFound, "game")
	}
	return &g, nil
}

func (v gamesView) ListByEvent(_ context.Context, eventID uuid.UUID) ([]storage.GameRow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.listByEventLocked(eventID), nil
}

func (v gamesView) listByEventLocked(eventID uuid.UUID) []storage.GameRow {
	var out []storage.GameRow
	for _, g := range v.s.games {
		if g.EventID == eventID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RoundIndex != out[j].RoundIndex {
			return out[i].RoundIndex < out[j].RoundIndex
		}
		return out[i].CourtIndex < out[j].CourtIndex
	})
	return out
}

func (v gamesView) ReplaceForEvent(_ context.Context, eventID uuid.UUID, newGames []storage.GameRow) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for gameID, g := range v.s.games {
		if g.EventID == eventID {
			delete(v.s.games, gameID)
		}
	}
	for i := range newGames {
		g := &newGames[i]
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		if g.CreatedAt.IsZero() {
			g.CreatedAt = v.s.stamp()
		}
		if g.Result == "" {
			g.Result = rating.Unset
		}
		g.EventID = eventID
		v.s.games[g.ID] = *g
	}
	return nil
}

func (v gamesView) UpdateScore(_ context.Context, id uuid.UUID, score1, score2 *float64, result rating.Result) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.games[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	g.ScoreTeam1 = score1
	g.ScoreTeam2 = score2
	g.Result = result
	v.s.games[id] = g
	return nil
}

func (v gamesView) UpdateTeams(_ context.Context, game *storage.GameRow) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.games[game.ID]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	g.Team1 = game.Team1
	g.Team2 = game.Team2
	g.Team1Elo = game.Team1Elo
	g.Team2Elo = game.Team2Elo
	g.Swapped = game.Swapped
	v.s.games[game.ID] = g
	return nil
}

func (v gamesView) UpdateTeamElos(_ context.Context, id uuid.UUID, team1Elo, team2Elo float64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	g, ok := v.s.games[id]
	if !ok {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	g.Team1Elo = team1Elo
	g.Team2Elo = team2Elo
	v.s.games[id] = g
	return nil
}

func (v gamesView) History(_ context.Context, groupID uuid.UUID, filter storage.HistoryFilter) ([]storage.HistoryGame, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	inGame := func(g storage.GameRow, id uuid.UUID) bool {
		return g.Team1[0] == id || g.Team1[1] == id || g.Team2[0] == id || g.Team2[1] == id
	}

	var out []storage.HistoryGame
	for _, e := range v.s.events {
		if e.GroupID != groupID || e.Status != storage.EventCompleted {
			continue
		}
		if filter.From != nil && e.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.StartsAt.After(*filter.To) {
			continue
		}
		for _, g := range v.listByEventLocked(e.ID) {
			if filter.PlayerID != nil && !inGame(g, *filter.PlayerID) {
				continue
			}
			out = append(out, storage.HistoryGame{
				GameRow:       g,
				EventName:     e.Name,
				EventStartsAt: e.StartsAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EventStartsAt.Equal(out[j].EventStartsAt) {
			return out[i].EventStartsAt.After(out[j].EventStartsAt)
		}
		if out[i].RoundIndex != out[j].RoundIndex {
			return out[i].RoundIndex < out[j].RoundIndex
		}
		return out[i].CourtIndex < out[j].CourtIndex
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type updatesView struct{ s *Store }

func (v updatesView) Insert(_ context.Context, updates []storage.RatingUpdate) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, u := range updates {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = v.s.stamp()
		}
		v.s.updates = append(v.s.updates, u)
	}
	return nil
}

func (v updatesView) ListByPlayer(_ context.Context, playerID uuid.UUID) ([]storage.RatingUpdate, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []storage.RatingUpdate
	for _, u := range v.s.updates {
		if u.PlayerID == playerID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (v updatesView) LastEventRatingBefore(_ context.Context, groupID uuid.UUID) (map[uuid.UUID]float64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var lastEvent uuid.UUID
	var lastSeen time.Time
	for _, u := range v.s.updates {
		if u.GroupID == groupID && u.CreatedAt.After(lastSeen) {
			lastEvent = u.EventID
			lastSeen = u.CreatedAt
		}
	}

	out := make(map[uuid.UUID]float64)
	if lastEvent == uuid.Nil {
		return out, nil
	}
	for _, u := range v.s.updates {
		if u.GroupID == groupID && u.EventID == lastEvent {
			out[u.PlayerID] = u.RatingBefore
		}
	}
	return out, nil
}

func (v updatesView) DeleteByGroup(_ context.Context, groupID uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	kept := v.s.updates[:0]
	for _, u := range v.s.updates {
		if u.GroupID != groupID {
			kept = append(kept, u)
		}
	}
	v.s.updates = kept
	return nil
}
