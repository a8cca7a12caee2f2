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
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// maxRoundAttempts bounds how many shuffled greedy passes are tried before
// a round is declared unpackable at the current tolerance.
const maxRoundAttempts = 100

// match is a candidate pairing of two disjoint teams.
type match struct {
	team1 [2]uuid.UUID
	team2 [2]uuid.UUID
}

type failureClass int

const (
	failureNone failureClass = iota
	failureRating
	failureHard
)

// Generator produces a schedule for one event. It is single-use: build one
// per generation run.
type Generator struct {
	players  map[uuid.UUID]Player
	order    []uuid.UUID
	courts   int
	rounds   int
	cfg      Config
	checker  *Checker
	seed     string
	fullPool []match
}

// NewGenerator validates the roster and prepares a generation run.
// previousPairs is the teammate pair-set of the most recent completed
// event; seed may be empty, in which case a fresh opaque seed is drawn.
func NewGenerator(players []Player, courts, rounds int, cfg Config, previousPairs map[Pair]bool, seed string) (*Generator, error) {
	if len(players) != courts*4 {
		return nil, errors.Wrapf(ErrParticipantCount, "got %d players for %d courts", len(players), courts)
	}
	if seed == "" {
		seed = NewSeed()
	}

	byID := make(map[uuid.UUID]Player, len(players))
	order := make([]uuid.UUID, 0, len(players))
	for _, p := range players {
		byID[p.ID] = p
		order = append(order, p.ID)
	}

	return &Generator{
		players: byID,
		order:   order,
		courts:  courts,
		rounds:  rounds,
		cfg:     cfg,
		checker: NewChecker(cfg, previousPairs),
		seed:    seed,
	}, nil
}

// NewSeed returns a fresh opaque seed string.
func NewSeed() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d", time.Now().UnixNano())))
	return hex.EncodeToString(sum[:])[:12]
}

// Seed returns the seed this run will use.
func (g *Generator) Seed() string { return g.seed }

// Generate runs the solver. On failure the returned Result still carries
// the run metadata; the error unwraps to ErrRatingInfeasible or
// ErrConstraintsInfeasible.
func (g *Generator) Generate() (*Result, error) {
	start := time.Now()
	attempts := 0
	relaxIterations := 0
	eloDiffUsed := g.cfg.EloDiff

	metadata := func() Metadata {
		return Metadata{
			SeedUsed:          g.seed,
			EloDiffConfigured: g.cfg.EloDiff,
			EloDiffUsed:       eloDiffUsed,
			RelaxIterations:   relaxIterations,
			Attempts:          attempts,
			DurationMs:        time.Since(start).Milliseconds(),
			ConstraintToggles: ConstraintToggles{
				NoRepeatTeammateInEvent:           g.cfg.NoRepeatTeammateInEvent,
				NoRepeatTeammateFromPreviousEvent: g.cfg.NoRepeatTeammateFromPreviousEvent,
				NoRepeatOpponentInEvent:           g.cfg.NoRepeatOpponentInEvent,
			},
		}
	}

	for {
		// Reseeding per relax iteration keeps the whole relaxation ladder
		// reproducible for a given seed.
		rng := g.rngFor(relaxIterations)

		games, failure := g.tryGenerate(rng, eloDiffUsed)
		attempts++

		if failure == failureNone {
			return &Result{Games: games, Metadata: metadata()}, nil
		}

		if failure == failureRating && g.cfg.AutoRelaxEloDiff {
			eloDiffUsed += g.cfg.AutoRelaxStep
			relaxIterations++
			if eloDiffUsed > g.cfg.AutoRelaxMaxEloDiff {
				return &Result{Metadata: metadata()},
					errors.Wrapf(ErrRatingInfeasible, "max elo diff %g exceeded", g.cfg.AutoRelaxMaxEloDiff)
			}
			continue
		}

		if failure == failureHard {
			return &Result{Metadata: metadata()}, errors.WithStack(ErrConstraintsInfeasible)
		}
		return &Result{Metadata: metadata()},
			errors.Wrapf(ErrRatingInfeasible, "max elo diff %g, auto-relax disabled", eloDiffUsed)
	}
}

func (g *Generator) rngFor(relaxIteration int) *rand.Rand {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s_%d", g.seed, relaxIteration)))
	return rand.New(rand.NewSource(int64(binary.BigEndian.Uint64(sum[:8]))))
}

// tryGenerate attempts a full schedule at the given tolerance. The failure
// class tells the caller whether widening the tolerance can help.
func (g *Generator) tryGenerate(rng *rand.Rand, eloDiff float64) ([]Game, failureClass) {
	pool := g.buildCandidatePool(eloDiff)
	if len(pool) == 0 {
		return nil, failureRating
	}

	var all []Game
	eventTeammates := make(map[Pair]bool)
	eventOpponents := make(map[Pair]int)

	for round := 0; round < g.rounds; round++ {
		games, ok := g.selectRound(rng, pool, round, eventTeammates, eventOpponents)
		if !ok {
			// Probe against the unfiltered pool: if packing succeeds once the
			// balance filter is lifted, the tolerance was the bottleneck.
			if _, ok := g.selectRound(rng, g.unfilteredPool(), round, eventTeammates, eventOpponents); ok {
				return nil, failureRating
			}
			return nil, failureHard
		}

		for _, game := range games {
			for _, p := range game.TeammatePairs() {
				eventTeammates[p] = true
			}
			for _, p := range game.OpponentPairs() {
				eventOpponents[p]++
			}
		}
		all = append(all, games...)
	}

	return all, failureNone
}

// buildCandidatePool enumerates every disjoint team pairing whose means sit
// within the tolerance. Enumeration order follows the roster order, so the
// pool is deterministic before shuffling.
func (g *Generator) buildCandidatePool(eloDiff float64) []match {
	ids := g.order
	var pairs [][2]uuid.UUID
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, [2]uuid.UUID{ids[i], ids[j]})
		}
	}

	var pool []match
	for _, t1 := range pairs {
		for _, t2 := range pairs {
			if t1[0] == t2[0] || t1[0] == t2[1] || t1[1] == t2[0] || t1[1] == t2[1] {
				continue
			}
			r1 := (g.players[t1[0]].Rating + g.players[t1[1]].Rating) / 2
			r2 := (g.players[t2[0]].Rating + g.players[t2[1]].Rating) / 2
			if g.checker.RatingBalanced(r1, r2, eloDiff) {
				pool = append(pool, match{team1: t1, team2: t2})
			}
		}
	}
	return pool
}

func (g *Generator) unfilteredPool() []match {
	if g.fullPool == nil {
		g.fullPool = g.buildCandidatePool(math.Inf(1))
	}
	return g.fullPool
}

// selectRound packs one round from the candidate pool: shuffle, then walk
// greedily admitting matches that keep the round disjoint and the hard
// constraints intact, considering both committed event state and the
// tentative picks of this round.
func (g *Generator) selectRound(rng *rand.Rand, pool []match, roundIndex int, eventTeammates map[Pair]bool, eventOpponents map[Pair]int) ([]Game, bool) {
	shuffled := make([]match, len(pool))

	for attempt := 0; attempt < maxRoundAttempts; attempt++ {
		copy(shuffled, pool)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		var selected []Game
		used := make(map[uuid.UUID]bool)
		roundTeammates := make(map[Pair]bool)
		roundOpponents := make(map[Pair]int)

		for _, m := range shuffled {
			if used[m.team1[0]] || used[m.team1[1]] || used[m.team2[0]] || used[m.team2[1]] {
				continue
			}

			game := Game{RoundIndex: roundIndex, CourtIndex: len(selected), Team1: m.team1, Team2: m.team2}
			if !g.hardConstraintsOK(game, eventTeammates, roundTeammates, eventOpponents, roundOpponents) {
				continue
			}

			selected = append(selected, game)
			for _, id := range game.AllPlayers() {
				used[id] = true
			}
			for _, p := range game.TeammatePairs() {
				roundTeammates[p] = true
			}
			for _, p := range game.OpponentPairs() {
				roundOpponents[p]++
			}

			if len(selected) == g.courts {
				return selected, true
			}
		}
	}

	return nil, false
}

func (g *Generator) hardConstraintsOK(game Game, eventTeammates, roundTeammates map[Pair]bool, eventOpponents, roundOpponents map[Pair]int) bool {
	for _, pair := range game.TeammatePairs() {
		if g.cfg.NoRepeatTeammateInEvent && (eventTeammates[pair] || roundTeammates[pair]) {
			return false
		}
		if !g.checker.TeammateAllowedFromPrevious(pair) {
			return false
		}
	}
	if g.cfg.NoRepeatOpponentInEvent {
		for _, pair := range game.OpponentPairs() {
			if eventOpponents[pair]+roundOpponents[pair] >= maxOpponentMeetings {
				return false
			}
		}
	}
	return true
}
