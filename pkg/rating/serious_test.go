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

package rating

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlayer(r float64, name string) PlayerRating {
	return PlayerRating{PlayerID: uuid.New(), Rating: r, DisplayName: name}
}

func ratingsOf(players ...PlayerRating) map[uuid.UUID]float64 {
	m := make(map[uuid.UUID]float64, len(players))
	for _, p := range players {
		m[p.PlayerID] = p.Rating
	}
	return m
}

func TestSeriousElo_EqualRatingsTeam1Win(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(1000, "P1")
	p2 := testPlayer(1000, "P2")
	p3 := testPlayer(1000, "P3")
	p4 := testPlayer(1000, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team1Win}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	require.Len(t, deltas, 4)
	// Expected score is exactly 0.5 with equal ratings, so delta is k/2.
	assert.InDelta(t, 16.0, deltas[p1.PlayerID].Delta, 1e-9)
	assert.InDelta(t, 16.0, deltas[p2.PlayerID].Delta, 1e-9)
	assert.InDelta(t, -16.0, deltas[p3.PlayerID].Delta, 1e-9)
	assert.InDelta(t, -16.0, deltas[p4.PlayerID].Delta, 1e-9)

	assert.InDelta(t, 1016.0, deltas[p1.PlayerID].RatingAfter, 1e-9)
	assert.Equal(t, "P1", deltas[p1.PlayerID].DisplayName)
}

func TestSeriousElo_ZeroSumPerGame(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(980, "P1")
	p2 := testPlayer(1120, "P2")
	p3 := testPlayer(1045, "P3")
	p4 := testPlayer(890, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team2Win}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	sum := 0.0
	for _, d := range deltas {
		sum += d.Delta
	}
	assert.InDelta(t, 0.0, sum, 1e-9)
}

func TestSeriousElo_UnderdogWinGainsMore(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(900, "P1")
	p2 := testPlayer(900, "P2")
	p3 := testPlayer(1100, "P3")
	p4 := testPlayer(1100, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team1Win}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	assert.Greater(t, deltas[p1.PlayerID].Delta, 16.0)
	assert.Greater(t, deltas[p2.PlayerID].Delta, 16.0)
	assert.Less(t, deltas[p3.PlayerID].Delta, -16.0)
}

func TestSeriousElo_FavoriteWinGainsLess(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(1100, "P1")
	p2 := testPlayer(1100, "P2")
	p3 := testPlayer(900, "P3")
	p4 := testPlayer(900, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team1Win}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	assert.Greater(t, deltas[p1.PlayerID].Delta, 0.0)
	assert.Less(t, deltas[p1.PlayerID].Delta, 16.0)
}

func TestSeriousElo_TieWithEqualRatings(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(1000, "P1")
	p2 := testPlayer(1000, "P2")
	p3 := testPlayer(1000, "P3")
	p4 := testPlayer(1000, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Tie}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	for _, d := range deltas {
		assert.InDelta(t, 0.0, d.Delta, 0.1)
	}
}

func TestSeriousElo_UnsetGamesSkipped(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(1000, "P1")
	p2 := testPlayer(1000, "P2")
	p3 := testPlayer(1000, "P3")
	p4 := testPlayer(1000, "P4")

	game := Game{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Unset}
	deltas := s.CalculateDeltas([]Game{game}, ratingsOf(p1, p2, p3, p4))

	assert.Empty(t, deltas)
}

func TestSeriousElo_AccumulatesAcrossGames(t *testing.T) {
	s := NewSeriousElo(32, 400)

	p1 := testPlayer(1000, "P1")
	p2 := testPlayer(1000, "P2")
	p3 := testPlayer(1000, "P3")
	p4 := testPlayer(1000, "P4")

	games := []Game{
		{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team1Win},
		{Team1: [2]PlayerRating{p1, p2}, Team2: [2]PlayerRating{p3, p4}, Result: Team1Win},
	}
	deltas := s.CalculateDeltas(games, ratingsOf(p1, p2, p3, p4))

	// Both games are rated against the same pre-batch ratings, so the deltas
	// add up without compounding.
	assert.InDelta(t, 32.0, deltas[p1.PlayerID].Delta, 1e-9)
	assert.InDelta(t, -32.0, deltas[p3.PlayerID].Delta, 1e-9)
}

func TestResultFromScores(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	assert.Equal(t, Team1Win, ResultFromScores(f(11), f(7)))
	assert.Equal(t, Team2Win, ResultFromScores(f(3), f(11)))
	assert.Equal(t, Tie, ResultFromScores(f(9), f(9)))
	assert.Equal(t, Unset, ResultFromScores(nil, f(5)))
	assert.Equal(t, Unset, ResultFromScores(f(5), nil))
}
