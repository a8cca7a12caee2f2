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
	"math"

	"github.com/google/uuid"
)

// RacsElo is the volatile "fun" variant. Each player gets an individual
// expected score against the opposing team's average, and the K factor
// scales with the score difference (K = 10 * |s1 - s2|), so blowouts move
// ratings harder. Ties change nothing.
type RacsElo struct {
	base
}

// NewRacsElo returns a RacsElo system with the given parameters.
func NewRacsElo(kFactor, eloConst float64) *RacsElo {
	return &RacsElo{base{kFactor: kFactor, eloConst: eloConst}}
}

// CalculateDeltas implements System.
func (r *RacsElo) CalculateDeltas(games []Game, currentRatings map[uuid.UUID]float64) map[uuid.UUID]Delta {
	acc := newAccumulator()

	for _, game := range games {
		if game.Result == Unset {
			continue
		}
		acc.observe(game.Team1[0], game.Team1[1], game.Team2[0], game.Team2[1])

		p1, p2 := game.Team1[0], game.Team1[1]
		p3, p4 := game.Team2[0], game.Team2[1]

		team1Avg := r.teamAverage(p1, p2)
		team2Avg := r.teamAverage(p3, p4)

		e1 := r.expected(p1.Rating, team2Avg)
		e2 := r.expected(p2.Rating, team2Avg)
		e3 := r.expected(p3.Rating, team1Avg)
		e4 := r.expected(p4.Rating, team1Avg)

		k := r.kFactor
		if game.ScoreTeam1 != nil && game.ScoreTeam2 != nil {
			k = 10 * math.Abs(*game.ScoreTeam1-*game.ScoreTeam2)
		}

		switch game.Result {
		case Team1Win:
			acc.add(p1.PlayerID, k*e1)
			acc.add(p2.PlayerID, k*e2)
			acc.add(p3.PlayerID, k*(e3-1))
			acc.add(p4.PlayerID, k*(e4-1))
		case Team2Win:
			acc.add(p1.PlayerID, k*(e1-1))
			acc.add(p2.PlayerID, k*(e2-1))
			acc.add(p3.PlayerID, k*e3)
			acc.add(p4.PlayerID, k*e4)
		case Tie:
			// No rating movement on ties in Rac's system.
		}
	}

	return acc.result(currentRatings)
}

// expected computes the per-player expectation
// E = 1 / (1 + 10^((R - opponentAvg) / (R * eloConst))), guarding R == 0.
func (r *RacsElo) expected(playerRating, opponentAvg float64) float64 {
	if playerRating == 0 {
		return 0.5
	}
	exponent := (playerRating - opponentAvg) / (playerRating * r.eloConst)
	return 1.0 / (1.0 + math.Pow(10, exponent))
}
