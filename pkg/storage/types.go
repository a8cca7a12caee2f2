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

package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/settings"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventDraft      EventStatus = "DRAFT"
	EventGenerated  EventStatus = "GENERATED"
	EventInProgress EventStatus = "IN_PROGRESS"
	EventCompleted  EventStatus = "COMPLETED"
)

// Group is one playing group. Settings is the raw JSON blob as stored;
// decode it with settings.FromJSON so missing keys pick up defaults.
type Group struct {
	ID        uuid.UUID
	Name      string
	Sport     string
	Settings  json.RawMessage
	CreatedAt time.Time
}

// GroupPlayer is a player's membership row within one group, including the
// mutable rating and cumulative stats.
type GroupPlayer struct {
	ID          uuid.UUID
	GroupID     uuid.UUID
	DisplayName string
	Membership  settings.Membership
	Skill       settings.Skill
	Rating      float64
	GamesPlayed int
	Wins        int
	Losses      int
	Ties        int
	CreatedAt   time.Time
}

// Event is one scheduled session of a group. Participants is the fixed
// roster of group-player ids, always courts*4 of them.
type Event struct {
	ID             uuid.UUID
	GroupID        uuid.UUID
	Name           string
	StartsAt       time.Time
	Courts         int
	Rounds         int
	Status         EventStatus
	Participants   []uuid.UUID
	GenerationMeta json.RawMessage
	CreatedAt      time.Time
}

// GameRow is one persisted 2v2 game. Team ELO columns snapshot the team
// mean ratings as of scheduling (or the replay pass), so history renders
// the ratings players actually had at the time.
type GameRow struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	RoundIndex int
	CourtIndex int
	Team1      [2]uuid.UUID
	Team2      [2]uuid.UUID
	Team1Elo   float64
	Team2Elo   float64
	ScoreTeam1 *float64
	ScoreTeam2 *float64
	Result     rating.Result
	Swapped    bool
	CreatedAt  time.Time
}

// RatingUpdate is the audit record of one player's rating change from one
// event. System tags the engine that produced the change, so groups that
// switch rating systems keep an attributable history.
type RatingUpdate struct {
	ID           uuid.UUID
	GroupID      uuid.UUID
	EventID      uuid.UUID
	PlayerID     uuid.UUID
	RatingBefore float64
	RatingAfter  float64
	Delta        float64
	System       rating.SystemTag
	CreatedAt    time.Time
}
