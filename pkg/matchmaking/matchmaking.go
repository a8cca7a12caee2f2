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

// Package matchmaking generates constrained round-robin schedules of 2v2
// games. The generator is a randomized-greedy constraint solver over a
// rating-filtered candidate pool, with deterministic seeding and iterative
// relaxation of the rating tolerance.
package matchmaking

import (
	"bytes"

	"github.com/google/uuid"
)

// Player is a participant as the generator sees it.
type Player struct {
	ID          uuid.UUID
	Rating      float64
	DisplayName string
}

// Pair is an unordered pair of player ids, normalized so it can be used as
// a map key regardless of construction order.
type Pair [2]uuid.UUID

// NewPair builds a normalized Pair.
func NewPair(a, b uuid.UUID) Pair {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return Pair{a, b}
}

// Game is a single scheduled 2v2 match.
type Game struct {
	RoundIndex int
	CourtIndex int
	Team1      [2]uuid.UUID
	Team2      [2]uuid.UUID
}

// AllPlayers returns the four player ids of the game.
func (g Game) AllPlayers() [4]uuid.UUID {
	return [4]uuid.UUID{g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1]}
}

// TeammatePairs returns the two teammate pairs of the game.
func (g Game) TeammatePairs() [2]Pair {
	return [2]Pair{
		NewPair(g.Team1[0], g.Team1[1]),
		NewPair(g.Team2[0], g.Team2[1]),
	}
}

// OpponentPairs returns the four cross-team pairs of the game.
func (g Game) OpponentPairs() [4]Pair {
	return [4]Pair{
		NewPair(g.Team1[0], g.Team2[0]),
		NewPair(g.Team1[0], g.Team2[1]),
		NewPair(g.Team1[1], g.Team2[0]),
		NewPair(g.Team1[1], g.Team2[1]),
	}
}

// Config holds the constraint toggles and rating-tolerance policy for one
// generation run.
type Config struct {
	NoRepeatTeammateInEvent           bool
	NoRepeatTeammateFromPreviousEvent bool
	NoRepeatOpponentInEvent           bool
	EloDiff                           float64
	AutoRelaxEloDiff                  bool
	AutoRelaxStep                     float64
	AutoRelaxMaxEloDiff               float64
}

// DefaultConfig mirrors the group-settings defaults.
func DefaultConfig() Config {
	return Config{
		NoRepeatTeammateInEvent:           true,
		NoRepeatTeammateFromPreviousEvent: true,
		NoRepeatOpponentInEvent:           true,
		EloDiff:                           0.05,
		AutoRelaxEloDiff:                  true,
		AutoRelaxStep:                     0.01,
		AutoRelaxMaxEloDiff:               0.25,
	}
}

// ConstraintToggles is the frozen snapshot of the three hard-constraint
// switches reported in generation metadata.
type ConstraintToggles struct {
	NoRepeatTeammateInEvent           bool `json:"no_repeat_teammate_in_event"`
	NoRepeatTeammateFromPreviousEvent bool `json:"no_repeat_teammate_from_previous_event"`
	NoRepeatOpponentInEvent           bool `json:"no_repeat_opponent_in_event"`
}

// Metadata describes one generation run. It is reported for successful and
// failed outcomes alike and persisted with the event.
type Metadata struct {
	SeedUsed          string            `json:"seed_used"`
	EloDiffConfigured float64           `json:"elo_diff_configured"`
	EloDiffUsed       float64           `json:"elo_diff_used"`
	RelaxIterations   int               `json:"relax_iterations"`
	Attempts          int               `json:"attempts"`
	DurationMs        int64             `json:"duration_ms"`
	ConstraintToggles ConstraintToggles `json:"constraint_toggles"`
}

// Result is a completed generation: rounds*courts games plus run metadata.
type Result struct {
	Games    []Game
	Metadata Metadata
}
