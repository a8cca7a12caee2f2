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

import "github.com/google/uuid"

// SeriousElo is the standard team-average ELO system used for competitive
// play. The team rating is the mean of both players; both teammates receive
// the same delta, so every game is zero-sum.
type SeriousElo struct {
	base
}

// NewSeriousElo returns a SeriousElo system with the given parameters.
func NewSeriousElo(kFactor, eloConst float64) *SeriousElo {
	return &SeriousElo{base{kFactor: kFactor, eloConst: eloConst}}
}

// CalculateDeltas implements System.
func (s *SeriousElo) CalculateDeltas(games []Game, currentRatings map[uuid.UUID]float64) map[uuid.UUID]Delta {
	acc := newAccumulator()

	for _, game := range games {
		if game.Result == Unset {
			continue
		}
		acc.observe(game.Team1[0], game.Team1[1], game.Team2[0], game.Team2[1])

		team1Rating := s.teamAverage(game.Team1[0], game.Team1[1])
		team2Rating := s.teamAverage(game.Team2[0], game.Team2[1])

		expected := s.expectedScore(team1Rating, team2Rating)
		actual := s.actualScore(game.Result, true)

		deltaTeam1 := s.kFactor * (actual - expected)

		for _, p := range game.Team1 {
			acc.add(p.PlayerID, deltaTeam1)
		}
		for _, p := range game.Team2 {
			acc.add(p.PlayerID, -deltaTeam1)
		}
	}

	return acc.result(currentRatings)
}
