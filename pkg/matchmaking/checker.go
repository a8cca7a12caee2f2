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
	"fmt"
	"math"

	"github.com/google/uuid"
)

// maxOpponentMeetings is the soft limit on how often the same two players
// may face each other within one event. Deliberately 2, not 1.
const maxOpponentMeetings = 2

// Checker validates games against the configured constraints.
type Checker struct {
	cfg           Config
	previousPairs map[Pair]bool
}

// NewChecker builds a Checker. previousPairs is the teammate pair-set of
// the most recent completed event and may be nil.
func NewChecker(cfg Config, previousPairs map[Pair]bool) *Checker {
	if previousPairs == nil {
		previousPairs = make(map[Pair]bool)
	}
	return &Checker{cfg: cfg, previousPairs: previousPairs}
}

// TeammateAllowedInEvent reports whether pairing two players again within
// the same event is permitted.
func (c *Checker) TeammateAllowedInEvent(pair Pair, existing map[Pair]bool) bool {
	if !c.cfg.NoRepeatTeammateInEvent {
		return true
	}
	return !existing[pair]
}

// TeammateAllowedFromPrevious reports whether a pair is permitted given the
// previous event's teammate history.
func (c *Checker) TeammateAllowedFromPrevious(pair Pair) bool {
	if !c.cfg.NoRepeatTeammateFromPreviousEvent {
		return true
	}
	return !c.previousPairs[pair]
}

// OpponentsAllowed reports whether adding the given opposing pairs keeps
// every matchup at or below the meeting limit.
func (c *Checker) OpponentsAllowed(pairs [4]Pair, counts map[Pair]int) bool {
	if !c.cfg.NoRepeatOpponentInEvent {
		return true
	}
	for _, p := range pairs {
		if counts[p] >= maxOpponentMeetings {
			return false
		}
	}
	return true
}

// RatingBalanced reports whether two team means sit within the relative
// tolerance. A zero max rating is treated as balanced.
func (c *Checker) RatingBalanced(team1Rating, team2Rating, eloDiff float64) bool {
	maxRating := math.Max(team1Rating, team2Rating)
	if maxRating == 0 {
		return true
	}
	return math.Abs(team1Rating-team2Rating)/maxRating <= eloDiff
}

// ValidateGame checks one game against all constraints given the rest of
// the event's games. It returns the list of violations, empty when valid.
func (c *Checker) ValidateGame(game Game, existingGames []Game, players map[uuid.UUID]Player, eloDiff float64) []string {
	var violations []string

	existingTeammates := make(map[Pair]bool)
	opponentCounts := make(map[Pair]int)
	for _, g := range existingGames {
		for _, p := range g.TeammatePairs() {
			existingTeammates[p] = true
		}
		for _, p := range g.OpponentPairs() {
			opponentCounts[p]++
		}
	}

	for _, pair := range game.TeammatePairs() {
		if !c.TeammateAllowedInEvent(pair, existingTeammates) {
			violations = append(violations, "repeated teammate pair in event")
		}
		if !c.TeammateAllowedFromPrevious(pair) {
			violations = append(violations, "repeated teammate pair from previous event")
		}
	}

	if !c.OpponentsAllowed(game.OpponentPairs(), opponentCounts) {
		violations = append(violations, fmt.Sprintf("opponent pair would exceed %d matches in event", maxOpponentMeetings))
	}

	team1Rating := (players[game.Team1[0]].Rating + players[game.Team1[1]].Rating) / 2
	team2Rating := (players[game.Team2[0]].Rating + players[game.Team2[1]].Rating) / 2
	if !c.RatingBalanced(team1Rating, team2Rating, eloDiff) {
		violations = append(violations, fmt.Sprintf("rating imbalance: %.0f vs %.0f", team1Rating, team2Rating))
	}

	return violations
}

// SwapWarnings inspects a game after a manual swap. Swaps never block, so
// constraint breaches come back as warnings only.
func (c *Checker) SwapWarnings(gameAfterSwap Game, allGames []Game) []string {
	var warnings []string

	existingTeammates := make(map[Pair]bool)
	for _, g := range allGames {
		if g.RoundIndex == gameAfterSwap.RoundIndex && g.CourtIndex == gameAfterSwap.CourtIndex {
			continue
		}
		for _, p := range g.TeammatePairs() {
			existingTeammates[p] = true
		}
	}

	for _, pair := range gameAfterSwap.TeammatePairs() {
		if !c.TeammateAllowedFromPrevious(pair) {
			warnings = append(warnings, "swap creates a teammate repeat from the previous event")
			break
		}
	}
	for _, pair := range gameAfterSwap.TeammatePairs() {
		if c.cfg.NoRepeatTeammateInEvent && existingTeammates[pair] {
			warnings = append(warnings, "swap creates a repeated teammate pair in this event")
			break
		}
	}

	return warnings
}
