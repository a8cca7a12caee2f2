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
	"sort"

	"github.com/google/uuid"
)

// CatchUpElo compresses the rating spread over time: below-median winners
// gain more, above-median winners gain less, above-median losers lose more.
// It is deliberately not zero-sum.
//
// The median is computed over the players appearing in the batch, not the
// whole group.
type CatchUpElo struct {
	base
	gainBoostMax     float64
	gainReductionMax float64
	lossPenaltyMax   float64
}

// NewCatchUpElo returns a CatchUpElo system with the given parameters.
func NewCatchUpElo(kFactor, eloConst float64) *CatchUpElo {
	return &CatchUpElo{
		base:             base{kFactor: kFactor, eloConst: eloConst},
		gainBoostMax:     0.50,
		gainReductionMax: 0.30,
		lossPenaltyMax:   0.20,
	}
}

// CalculateDeltas implements System.
func (c *CatchUpElo) CalculateDeltas(games []Game, currentRatings map[uuid.UUID]float64) map[uuid.UUID]Delta {
	acc := newAccumulator()

	// First pass collects every player so the median covers the whole batch,
	// including games that end up skipped as Unset.
	for _, game := range games {
		acc.observe(game.Team1[0], game.Team1[1], game.Team2[0], game.Team2[1])
	}

	median := c.medianRating(acc, currentRatings)

	ratingOf := func(p PlayerRating) float64 {
		if r, ok := currentRatings[p.PlayerID]; ok {
			return r
		}
		return p.Rating
	}

	for _, game := range games {
		if game.Result == Unset {
			continue
		}

		team1Rating := c.teamAverage(game.Team1[0], game.Team1[1])
		team2Rating := c.teamAverage(game.Team2[0], game.Team2[1])

		expected := c.expectedScore(team1Rating, team2Rating)
		actual := c.actualScore(game.Result, true)

		baseDeltaTeam1 := c.kFactor * (actual - expected)

		for _, p := range game.Team1 {
			acc.add(p.PlayerID, c.adjust(baseDeltaTeam1, ratingOf(p), median))
		}
		for _, p := range game.Team2 {
			acc.add(p.PlayerID, c.adjust(-baseDeltaTeam1, ratingOf(p), median))
		}
	}

	return acc.result(currentRatings)
}

func (c *CatchUpElo) medianRating(acc *accumulator, currentRatings map[uuid.UUID]float64) float64 {
	if len(acc.order) == 0 {
		return 1000
	}
	ratings := make([]float64, 0, len(acc.order))
	for _, id := range acc.order {
		r, ok := currentRatings[id]
		if !ok {
			r = acc.info[id].Rating
		}
		ratings = append(ratings, r)
	}
	sort.Float64s(ratings)
	n := len(ratings)
	if n%2 == 0 {
		return (ratings[n/2-1] + ratings[n/2]) / 2
	}
	return ratings[n/2]
}

// adjust scales the base delta by the player's distance from the median.
// The distance ratio is clamped to +/-0.5, which caps the boost at +50%,
// the gain reduction at -30% and the loss penalty at +20%.
func (c *CatchUpElo) adjust(baseDelta, playerRating, median float64) float64 {
	if median == 0 {
		return baseDelta
	}

	distance := (playerRating - median) / median
	if distance > 0.5 {
		distance = 0.5
	} else if distance < -0.5 {
		distance = -0.5
	}
	if distance < 0 {
		distance = -distance
	}

	if baseDelta > 0 {
		if playerRating < median {
			return baseDelta * (1 + c.gainBoostMax*distance*2)
		}
		return baseDelta * (1 - c.gainReductionMax*distance*2)
	}
	if playerRating > median {
		return baseDelta * (1 + c.lossPenaltyMax*distance*2)
	}
	return baseDelta
}
