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

// Package storage defines the persistence port for the matchmaking core.
// Adapters live in the postgres and fake subpackages.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/rating"
)

// Groups is the group aggregate port.
type Groups interface {
	Create(ctx context.Context, group *Group) error
	Get(ctx context.Context, id uuid.UUID) (*Group, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings json.RawMessage) error
}

// Players is the group-player aggregate port.
type Players interface {
	Create(ctx context.Context, player *GroupPlayer) error
	Get(ctx context.Context, id uuid.UUID) (*GroupPlayer, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]GroupPlayer, error)
	// UpdateRatingAndStats persists the rating plus all four stat counters.
	UpdateRatingAndStats(ctx context.Context, player *GroupPlayer) error
}

// Events is the event aggregate port.
type Events interface {
	Create(ctx context.Context, event *Event) error
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]Event, error)
	// ListCompletedByGroup returns COMPLETED events in replay order,
	// (starts_at ASC, created_at ASC).
	ListCompletedByGroup(ctx context.Context, groupID uuid.UUID) ([]Event, error)
	// PreviousCompleted returns the most recent COMPLETED event of the group
	// other than excludeEventID, or nil when there is none.
	PreviousCompleted(ctx context.Context, groupID, excludeEventID uuid.UUID) (*Event, error)
	// Update applies a partial update. Only whitelisted columns are
	// accepted; anything else fails with ErrInvalidColumn.
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status EventStatus) error
	SetGenerationMeta(ctx context.Context, id uuid.UUID, meta json.RawMessage) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// HistoryFilter narrows a match-history query.
type HistoryFilter struct {
	PlayerID *uuid.UUID
	From     *time.Time
	To       *time.Time
	Limit    int
}

// HistoryGame is one game joined with its event for history rendering.
type HistoryGame struct {
	GameRow
	EventName     string
	EventStartsAt time.Time
}

// Games is the game aggregate port.
type Games interface {
	Get(ctx context.Context, id uuid.UUID) (*GameRow, error)
	// ListByEvent returns games ordered by (round_index, court_index).
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]GameRow, error)
	// ReplaceForEvent discards any existing games of the event and inserts
	// the given set.
	ReplaceForEvent(ctx context.Context, eventID uuid.UUID, games []GameRow) error
	UpdateScore(ctx context.Context, id uuid.UUID, score1, score2 *float64, result rating.Result) error
	// UpdateTeams rewrites both team columns and the swapped flag of a game.
	UpdateTeams(ctx context.Context, game *GameRow) error
	UpdateTeamElos(ctx context.Context, id uuid.UUID, team1Elo, team2Elo float64) error
	// History returns completed-event games of a group, newest first.
	History(ctx context.Context, groupID uuid.UUID, filter HistoryFilter) ([]HistoryGame, error)
}

// RatingUpdates is the audit-record port.
type RatingUpdates interface {
	Insert(ctx context.Context, updates []RatingUpdate) error
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]RatingUpdate, error)
	// LastEventRatingBefore returns each player's rating_before from the
	// group's most recently recorded event, keyed by player id. Empty map
	// when the group has no audit records yet.
	LastEventRatingBefore(ctx context.Context, groupID uuid.UUID) (map[uuid.UUID]float64, error)
	DeleteByGroup(ctx context.Context, groupID uuid.UUID) error
}

// Store composes the aggregate ports. WithinTx runs fn against a store
// bound to one transaction; returning an error rolls everything back.
type Store interface {
	Groups() Groups
	Players() Players
	Events() Events
	Games() Games
	RatingUpdates() RatingUpdates
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// eventUpdateColumns is the whitelist for partial event updates. Status,
// participants and generation metadata move through their dedicated
// operations only.
var eventUpdateColumns = map[string]bool{
	"name":      true,
	"starts_at": true,
	"courts":    true,
	"rounds":    true,
}

// CheckEventUpdateFields rejects updates touching non-whitelisted columns.
// Both adapters call this before building their update statements.
func CheckEventUpdateFields(fields map[string]any) error {
	if len(fields) == 0 {
		return errors.Wrap(ErrInvalidColumn, "no fields to update")
	}
	for column := range fields {
		if !eventUpdateColumns[column] {
			return errors.Wrapf(ErrInvalidColumn, "column %q", column)
		}
	}
	return nil
}
