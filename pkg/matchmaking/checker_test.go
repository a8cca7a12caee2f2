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

package matchmaking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPairNormalizes(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	assert.Equal(t, NewPair(a, b), NewPair(b, a))
}

func TestRatingBalanced(t *testing.T) {
	c := NewChecker(DefaultConfig(), nil)

	assert.True(t, c.RatingBalanced(1000, 1000, 0.05))
	assert.True(t, c.RatingBalanced(1000, 950, 0.05))
	assert.False(t, c.RatingBalanced(1000, 940, 0.05))
	// Zero ratings never divide by zero.
	assert.True(t, c.RatingBalanced(0, 0, 0.05))
}

func TestTeammateAllowedFromPrevious(t *testing.T) {
	a, b, x, y := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	previous := map[Pair]bool{NewPair(a, b): true}

	c := NewChecker(DefaultConfig(), previous)
	assert.False(t, c.TeammateAllowedFromPrevious(NewPair(a, b)))
	assert.True(t, c.TeammateAllowedFromPrevious(NewPair(x, y)))

	cfg := DefaultConfig()
	cfg.NoRepeatTeammateFromPreviousEvent = false
	off := NewChecker(cfg, previous)
	assert.True(t, off.TeammateAllowedFromPrevious(NewPair(a, b)))
}

func TestOpponentsAllowedLimit(t *testing.T) {
	ids := [4]uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	pairs := [4]Pair{
		NewPair(ids[0], ids[2]),
		NewPair(ids[0], ids[3]),
		NewPair(ids[1], ids[2]),
		NewPair(ids[1], ids[3]),
	}

	c := NewChecker(DefaultConfig(), nil)

	counts := map[Pair]int{}
	assert.True(t, c.OpponentsAllowed(pairs, counts))

	counts[pairs[0]] = 1
	assert.True(t, c.OpponentsAllowed(pairs, counts))

	counts[pairs[0]] = 2
	assert.False(t, c.OpponentsAllowed(pairs, counts))
}

func TestValidateGame(t *testing.T) {
	players := makePlayers(1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000)
	byID := make(map[uuid.UUID]Player)
	for _, p := range players {
		byID[p.ID] = p
	}
	ids := func(i int) uuid.UUID { return players[i].ID }

	c := NewChecker(DefaultConfig(), nil)

	existing := []Game{{
		RoundIndex: 0, CourtIndex: 0,
		Team1: [2]uuid.UUID{ids(0), ids(1)},
		Team2: [2]uuid.UUID{ids(2), ids(3)},
	}}

	clean := Game{
		RoundIndex: 1, CourtIndex: 0,
		Team1: [2]uuid.UUID{ids(4), ids(5)},
		Team2: [2]uuid.UUID{ids(6), ids(7)},
	}
	assert.Empty(t, c.ValidateGame(clean, existing, byID, 0.05))

	repeat := Game{
		RoundIndex: 1, CourtIndex: 0,
		Team1: [2]uuid.UUID{ids(0), ids(1)},
		Team2: [2]uuid.UUID{ids(4), ids(5)},
	}
	violations := c.ValidateGame(repeat, existing, byID, 0.05)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "repeated teammate pair in event")
}

func TestValidateGameRatingImbalance(t *testing.T) {
	players := makePlayers(1500, 1500, 800, 800)
	byID := make(map[uuid.UUID]Player)
	for _, p := range players {
		byID[p.ID] = p
	}

	game := Game{
		Team1: [2]uuid.UUID{players[0].ID, players[1].ID},
		Team2: [2]uuid.UUID{players[2].ID, players[3].ID},
	}

	c := NewChecker(DefaultConfig(), nil)
	violations := c.ValidateGame(game, nil, byID, 0.05)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "rating imbalance")
}

func TestSwapWarnings(t *testing.T) {
	players := makePlayers(1000, 1000, 1000, 1000, 1000, 1000, 1000, 1000)
	ids := func(i int) uuid.UUID { return players[i].ID }

	previous := map[Pair]bool{NewPair(ids(0), ids(4)): true}
	c := NewChecker(DefaultConfig(), previous)

	games := []Game{
		{RoundIndex: 0, CourtIndex: 0, Team1: [2]uuid.UUID{ids(0), ids(1)}, Team2: [2]uuid.UUID{ids(2), ids(3)}},
		{RoundIndex: 0, CourtIndex: 1, Team1: [2]uuid.UUID{ids(4), ids(5)}, Team2: [2]uuid.UUID{ids(6), ids(7)}},
	}

	// Swapping player 1 for player 4 on court 0 recreates a team from the
	// previous event.
	swapped := Game{RoundIndex: 0, CourtIndex: 0, Team1: [2]uuid.UUID{ids(0), ids(4)}, Team2: [2]uuid.UUID{ids(2), ids(3)}}
	warnings := c.SwapWarnings(swapped, games)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "previous event")

	// A swap that breaks nothing warns about nothing.
	harmless := Game{RoundIndex: 0, CourtIndex: 0, Team1: [2]uuid.UUID{ids(0), ids(5)}, Team2: [2]uuid.UUID{ids(2), ids(3)}}
	assert.Empty(t, c.SwapWarnings(harmless, games))
}
