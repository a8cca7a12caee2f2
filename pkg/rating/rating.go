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

// Package rating implements the pluggable rating systems used to score
// completed doubles games. Every system is a pure function from a batch of
// games plus current ratings to per-player deltas; callers decide how the
// batch is cut (whole event on completion, one round at a time during replay).
package rating

import (
	"math"

	"github.com/google/uuid"
)

// Result is the outcome tag of a single game.
type Result string

const (
	Team1Win Result = "TEAM1_WIN"
	Team2Win Result = "TEAM2_WIN"
	Tie      Result = "TIE"
	Unset    Result = "UNSET"
)

// ResultFromScores derives the result tag from the two scores.
// A missing score on either side leaves the game Unset.
func ResultFromScores(score1, score2 *float64) Result {
	switch {
	case score1 == nil || score2 == nil:
		return Unset
	case *score1 > *score2:
		return Team1Win
	case *score2 > *score1:
		return Team2Win
	default:
		return Tie
	}
}

// PlayerRating identifies a player and the rating that should be used for
// this calculation.
type PlayerRating struct {
	PlayerID    uuid.UUID
	Rating      float64
	DisplayName string
}

// Game carries everything a rating system needs about one 2v2 game.
type Game struct {
	Team1      [2]PlayerRating
	Team2      [2]PlayerRating
	Result     Result
	ScoreTeam1 *float64
	ScoreTeam2 *float64
}

// Delta is the computed rating change for one player.
type Delta struct {
	PlayerID     uuid.UUID
	RatingBefore float64
	RatingAfter  float64
	Delta        float64
	DisplayName  string
}

// System is the single capability all rating variants implement.
//
// Implementations must be deterministic given a fixed batch: players are
// iterated in insertion order of first appearance, and games with an Unset
// result are skipped.
type System interface {
	CalculateDeltas(games []Game, currentRatings map[uuid.UUID]float64) map[uuid.UUID]Delta
}

// base holds the parameters shared by every ELO variant.
type base struct {
	kFactor  float64
	eloConst float64
}

func (b base) teamAverage(p1, p2 PlayerRating) float64 {
	return (p1.Rating + p2.Rating) / 2
}

// expectedScore is the standard ELO expectation for side A against side B.
func (b base) expectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/b.eloConst))
}

// actualScore maps the result tag to 1 / 0 / 0.5 for the requested side.
func (b base) actualScore(result Result, isTeam1 bool) float64 {
	switch result {
	case Tie, Unset:
		return 0.5
	case Team1Win:
		if isTeam1 {
			return 1.0
		}
		return 0.0
	default: // Team2Win
		if isTeam1 {
			return 0.0
		}
		return 1.0
	}
}

// accumulator gathers per-player deltas across a batch while preserving
// first-appearance order, which keeps summation deterministic.
type accumulator struct {
	order  []uuid.UUID
	deltas map[uuid.UUID]float64
	info   map[uuid.UUID]PlayerRating
}

func newAccumulator() *accumulator {
	return &accumulator{
		deltas: make(map[uuid.UUID]float64),
		info:   make(map[uuid.UUID]PlayerRating),
	}
}

func (a *accumulator) observe(players ...PlayerRating) {
	for _, p := range players {
		if _, ok := a.info[p.PlayerID]; !ok {
			a.info[p.PlayerID] = p
			a.deltas[p.PlayerID] = 0
			a.order = append(a.order, p.PlayerID)
		}
	}
}

func (a *accumulator) add(id uuid.UUID, delta float64) {
	a.deltas[id] += delta
}

// result materializes the Delta map. The before rating comes from the
// caller-supplied current ratings, falling back to the rating embedded in
// the game rows.
func (a *accumulator) result(currentRatings map[uuid.UUID]float64) map[uuid.UUID]Delta {
	out := make(map[uuid.UUID]Delta, len(a.order))
	for _, id := range a.order {
		before, ok := currentRatings[id]
		if !ok {
			before = a.info[id].Rating
		}
		d := a.deltas[id]
		out[id] = Delta{
			PlayerID:     id,
			RatingBefore: before,
			RatingAfter:  before + d,
			Delta:        d,
			DisplayName:  a.info[id].DisplayName,
		}
	}
	return out
}
