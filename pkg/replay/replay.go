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

// Package replay recomputes a group's ratings and stats from its full
// completed-event history. It is the single source of truth after any
// retroactive edit: reset everything, stream events in play order, apply
// the configured rating engine round by round.
package replay

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/logging"
	"github.com/rallyrank/rallyrank/pkg/metrics"
	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/settings"
	"github.com/rallyrank/rallyrank/pkg/storage"
	"github.com/rallyrank/rallyrank/pkg/syncutil"
)

// topRatingsCount is how many leaders the recalculation summary reports.
const topRatingsCount = 5

// PlayerStanding is one row of the summary leaderboard.
type PlayerStanding struct {
	PlayerID    uuid.UUID
	DisplayName string
	Rating      float64
}

// Summary describes one completed recalculation.
type Summary struct {
	EventsProcessed int
	PlayersUpdated  int
	TopRatings      []PlayerStanding
}

// Orchestrator runs full-group recalculations.
type Orchestrator struct {
	store storage.Store
	locks *syncutil.GroupLocker
	log   logr.Logger
}

// New builds an Orchestrator.
func New(store storage.Store, locks *syncutil.GroupLocker, log logr.Logger) *Orchestrator {
	return &Orchestrator{store: store, locks: locks, log: log}
}

// Recalculate rebuilds every rating, stat and audit record of the group
// from scratch. It holds the group lock and runs in one transaction, so
// readers never observe a half-recomputed group.
func (o *Orchestrator) Recalculate(ctx context.Context, groupID uuid.UUID) (*Summary, error) {
	unlock := o.locks.Lock(groupID)
	defer unlock()

	start := time.Now()
	var summary *Summary
	err := o.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		s, err := o.recalculate(ctx, tx, groupID)
		summary = s
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ReportReplay(summary.EventsProcessed, time.Since(start))
	o.log.Info("group recalculated",
		logging.GroupID, groupID,
		"events_processed", summary.EventsProcessed,
		"players_updated", summary.PlayersUpdated)
	return summary, nil
}

func (o *Orchestrator) recalculate(ctx context.Context, tx storage.Store, groupID uuid.UUID) (*Summary, error) {
	group, err := tx.Groups().Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	cfg, err := settings.FromJSON(group.Settings)
	if err != nil {
		return nil, err
	}
	engine := cfg.RatingSystemFor()

	players, err := tx.Players().ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	// Reset: skill-tier initial ratings, zeroed stats, no audit records.
	ratings := make(map[uuid.UUID]float64, len(players))
	state := make(map[uuid.UUID]*storage.GroupPlayer, len(players))
	for i := range players {
		p := players[i]
		p.Rating = cfg.ResetRatingFor(p.Skill)
		p.GamesPlayed, p.Wins, p.Losses, p.Ties = 0, 0, 0, 0
		ratings[p.ID] = p.Rating
		state[p.ID] = &p
	}
	if err := tx.RatingUpdates().DeleteByGroup(ctx, groupID); err != nil {
		return nil, err
	}

	events, err := tx.Events().ListCompletedByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	processed := 0
	for _, event := range events {
		if err := o.replayEvent(ctx, tx, engine, cfg.RatingSystem, event, ratings, state); err != nil {
			if isCorrupt(err) {
				o.log.Error(err, "skipping corrupt event during recalculation",
					logging.GroupID, groupID, logging.EventID, event.ID)
				continue
			}
			return nil, err
		}
		processed++
	}

	for _, p := range state {
		p.Rating = ratings[p.ID]
		if err := tx.Players().UpdateRatingAndStats(ctx, p); err != nil {
			return nil, err
		}
	}

	return &Summary{
		EventsProcessed: processed,
		PlayersUpdated:  len(state),
		TopRatings:      topRatings(state),
	}, nil
}

// replayEvent applies one event's games to the in-memory ratings: persist
// team-ELO snapshots as of this point in history, apply the engine one
// round at a time, bump stats, then write audit records for every player
// whose rating actually moved.
func (o *Orchestrator) replayEvent(ctx context.Context, tx storage.Store, engine rating.System, system rating.SystemTag, event storage.Event, ratings map[uuid.UUID]float64, state map[uuid.UUID]*storage.GroupPlayer) error {
	games, err := tx.Games().ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}

	for _, g := range games {
		for _, id := range [4]uuid.UUID{g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1]} {
			if _, ok := ratings[id]; !ok {
				return errors.Wrapf(errCorruptEvent, "game %s references unknown player %s", g.ID, id)
			}
		}
	}

	preEvent := make(map[uuid.UUID]float64, len(ratings))
	for id, r := range ratings {
		preEvent[id] = r
	}

	rounds := make(map[int][]storage.GameRow)
	var roundIndexes []int
	for _, g := range games {
		if _, ok := rounds[g.RoundIndex]; !ok {
			roundIndexes = append(roundIndexes, g.RoundIndex)
		}
		rounds[g.RoundIndex] = append(rounds[g.RoundIndex], g)
	}
	sort.Ints(roundIndexes)

	touched := make(map[uuid.UUID]bool)
	for _, round := range roundIndexes {
		var batch []rating.Game
		for _, g := range rounds[round] {
			team1Elo := (ratings[g.Team1[0]] + ratings[g.Team1[1]]) / 2
			team2Elo := (ratings[g.Team2[0]] + ratings[g.Team2[1]]) / 2
			if err := tx.Games().UpdateTeamElos(ctx, g.ID, team1Elo, team2Elo); err != nil {
				return err
			}

			if g.Result == rating.Unset || g.Result == "" {
				continue
			}
			batch = append(batch, toRatingGame(g, ratings))
			bumpStats(g, state)
			for _, id := range [4]uuid.UUID{g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1]} {
				touched[id] = true
			}
		}

		for id, delta := range engine.CalculateDeltas(batch, ratings) {
			ratings[id] = delta.RatingAfter
		}
	}

	var updates []storage.RatingUpdate
	for id := range touched {
		if ratings[id] == preEvent[id] {
			continue
		}
		updates = append(updates, storage.RatingUpdate{
			GroupID:      event.GroupID,
			EventID:      event.ID,
			PlayerID:     id,
			RatingBefore: preEvent[id],
			RatingAfter:  ratings[id],
			Delta:        ratings[id] - preEvent[id],
			System:       system,
		})
	}
	return tx.RatingUpdates().Insert(ctx, updates)
}

func toRatingGame(g storage.GameRow, ratings map[uuid.UUID]float64) rating.Game {
	player := func(id uuid.UUID) rating.PlayerRating {
		return rating.PlayerRating{PlayerID: id, Rating: ratings[id]}
	}
	return rating.Game{
		Team1:      [2]rating.PlayerRating{player(g.Team1[0]), player(g.Team1[1])},
		Team2:      [2]rating.PlayerRating{player(g.Team2[0]), player(g.Team2[1])},
		Result:     g.Result,
		ScoreTeam1: g.ScoreTeam1,
		ScoreTeam2: g.ScoreTeam2,
	}
}

// bumpStats increments the cumulative counters for one scored game.
func bumpStats(g storage.GameRow, state map[uuid.UUID]*storage.GroupPlayer) {
	apply := func(ids [2]uuid.UUID, won, lost bool) {
		for _, id := range ids {
			p := state[id]
			p.GamesPlayed++
			switch {
			case won:
				p.Wins++
			case lost:
				p.Losses++
			default:
				p.Ties++
			}
		}
	}
	apply(g.Team1, g.Result == rating.Team1Win, g.Result == rating.Team2Win)
	apply(g.Team2, g.Result == rating.Team2Win, g.Result == rating.Team1Win)
}

func topRatings(state map[uuid.UUID]*storage.GroupPlayer) []PlayerStanding {
	standings := make([]PlayerStanding, 0, len(state))
	for id, p := range state {
		standings = append(standings, PlayerStanding{
			PlayerID:    id,
			DisplayName: p.DisplayName,
			Rating:      p.Rating,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Rating != standings[j].Rating {
			return standings[i].Rating > standings[j].Rating
		}
		return standings[i].DisplayName < standings[j].DisplayName
	})
	if len(standings) > topRatingsCount {
		standings = standings[:topRatingsCount]
	}
	return standings
}

var errCorruptEvent = errors.New("corrupt event data")

func isCorrupt(err error) bool {
	return errors.Is(err, errCorruptEvent)
}
