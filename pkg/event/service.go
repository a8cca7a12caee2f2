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

// Package event implements the event lifecycle: create a draft, generate a
// schedule, swap positions, record scores, complete, and cascade retroactive
// edits into a full recalculation.
package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/logging"
	"github.com/rallyrank/rallyrank/pkg/matchmaking"
	"github.com/rallyrank/rallyrank/pkg/metrics"
	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/replay"
	"github.com/rallyrank/rallyrank/pkg/settings"
	"github.com/rallyrank/rallyrank/pkg/storage"
	"github.com/rallyrank/rallyrank/pkg/syncutil"
)

// Invalidator drops cached reads for a group after any write.
type Invalidator interface {
	InvalidateGroup(groupID uuid.UUID)
}

// Service is the event lifecycle controller.
type Service struct {
	store       storage.Store
	locks       *syncutil.GroupLocker
	replayer    *replay.Orchestrator
	invalidator Invalidator
	log         logr.Logger
}

// NewService wires the controller. invalidator may be nil.
func NewService(store storage.Store, locks *syncutil.GroupLocker, replayer *replay.Orchestrator, invalidator Invalidator, log logr.Logger) *Service {
	return &Service{
		store:       store,
		locks:       locks,
		replayer:    replayer,
		invalidator: invalidator,
		log:         log,
	}
}

func (s *Service) invalidate(groupID uuid.UUID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateGroup(groupID)
	}
}

// CreateParams are the inputs for a new draft event.
type CreateParams struct {
	GroupID      uuid.UUID
	Name         string
	StartsAt     time.Time
	Courts       int
	Rounds       int
	Participants []uuid.UUID
}

// Create validates the roster and stores a DRAFT event.
func (s *Service) Create(ctx context.Context, params CreateParams) (*storage.Event, error) {
	if params.Courts < 1 || params.Rounds < 1 {
		return nil, validationf("courts and rounds must be at least 1")
	}
	if len(params.Participants) != params.Courts*4 {
		return nil, validationf("expected %d participants for %d courts, got %d",
			params.Courts*4, params.Courts, len(params.Participants))
	}

	if _, err := s.store.Groups().Get(ctx, params.GroupID); err != nil {
		return nil, fromStorage(err, "group")
	}

	seen := make(map[uuid.UUID]bool, len(params.Participants))
	for _, id := range params.Participants {
		if seen[id] {
			return nil, validationf("participant %s listed twice", id)
		}
		seen[id] = true

		player, err := s.store.Players().Get(ctx, id)
		if err != nil {
			return nil, fromStorage(err, "participant")
		}
		if player.GroupID != params.GroupID {
			return nil, validationf("player %s does not belong to the group", id)
		}
	}

	event := &storage.Event{
		GroupID:      params.GroupID,
		Name:         params.Name,
		StartsAt:     params.StartsAt,
		Courts:       params.Courts,
		Rounds:       params.Rounds,
		Status:       storage.EventDraft,
		Participants: params.Participants,
	}
	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, err
	}

	s.invalidate(params.GroupID)
	return event, nil
}

// Update applies a partial edit of the whitelisted event columns. Editing
// a COMPLETED event triggers a full-group recalculation, since a moved
// start date can reorder the replay stream.
func (s *Service) Update(ctx context.Context, eventID uuid.UUID, fields map[string]any) (*storage.Event, error) {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fromStorage(err, "event")
	}

	if err := s.store.Events().Update(ctx, eventID, fields); err != nil {
		return nil, fromStorage(err, "event")
	}

	if event.Status == storage.EventCompleted {
		if _, err := s.replayer.Recalculate(ctx, event.GroupID); err != nil {
			return nil, err
		}
	}

	s.invalidate(event.GroupID)
	return s.store.Events().Get(ctx, eventID)
}

// GenerateResult is a freshly generated schedule.
type GenerateResult struct {
	Event    *storage.Event
	Games    []storage.GameRow
	Metadata matchmaking.Metadata
}

// Generate builds and persists the schedule. Regenerating replaces any
// existing games; a COMPLETED event can never be regenerated. With newSeed
// false the event id seeds the generator, so regeneration without edits
// reproduces the same schedule.
func (s *Service) Generate(ctx context.Context, eventID uuid.UUID, newSeed bool) (*GenerateResult, error) {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fromStorage(err, "event")
	}
	if event.Status == storage.EventCompleted {
		return nil, conflictf("cannot regenerate a completed event")
	}

	unlock := s.locks.Lock(event.GroupID)
	defer unlock()

	group, err := s.store.Groups().Get(ctx, event.GroupID)
	if err != nil {
		return nil, fromStorage(err, "group")
	}
	cfg, err := settings.FromJSON(group.Settings)
	if err != nil {
		return nil, err
	}

	players := make([]matchmaking.Player, 0, len(event.Participants))
	ratings := make(map[uuid.UUID]float64, len(event.Participants))
	for _, id := range event.Participants {
		p, err := s.store.Players().Get(ctx, id)
		if err != nil {
			return nil, fromStorage(err, "participant")
		}
		players = append(players, matchmaking.Player{
			ID:          p.ID,
			Rating:      p.Rating,
			DisplayName: p.DisplayName,
		})
		ratings[p.ID] = p.Rating
	}

	previousPairs, err := s.previousEventPairs(ctx, event, cfg)
	if err != nil {
		return nil, err
	}

	seed := event.ID.String()
	if newSeed {
		seed = ""
	}

	gen, err := matchmaking.NewGenerator(players, event.Courts, event.Rounds, cfg.MatchmakingConfig(), previousPairs, seed)
	if err != nil {
		if errors.Is(err, matchmaking.ErrParticipantCount) {
			return nil, validationf("%v", err)
		}
		return nil, err
	}

	start := time.Now()
	result, err := gen.Generate()
	if err != nil {
		outcome := metrics.OutcomeRatingBound
		if errors.Is(err, matchmaking.ErrConstraintsInfeasible) {
			outcome = metrics.OutcomeConstraintBound
		}
		metrics.ReportGeneration(outcome, time.Since(start), result.Metadata.RelaxIterations)
		return nil, matchmakingErr("schedule generation failed", err)
	}
	metrics.ReportGeneration(metrics.OutcomeSuccess, time.Since(start), result.Metadata.RelaxIterations)

	rows := make([]storage.GameRow, 0, len(result.Games))
	for _, g := range result.Games {
		rows = append(rows, storage.GameRow{
			RoundIndex: g.RoundIndex,
			CourtIndex: g.CourtIndex,
			Team1:      g.Team1,
			Team2:      g.Team2,
			Team1Elo:   (ratings[g.Team1[0]] + ratings[g.Team1[1]]) / 2,
			Team2Elo:   (ratings[g.Team2[0]] + ratings[g.Team2[1]]) / 2,
			Result:     rating.Unset,
		})
	}
	meta, err := json.Marshal(result.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "encoding generation metadata")
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		if err := tx.Games().ReplaceForEvent(ctx, eventID, rows); err != nil {
			return err
		}
		if err := tx.Events().SetGenerationMeta(ctx, eventID, meta); err != nil {
			return err
		}
		return tx.Events().UpdateStatus(ctx, eventID, storage.EventGenerated)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("schedule generated",
		logging.EventID, eventID,
		logging.GroupID, event.GroupID,
		logging.SeedUsed, result.Metadata.SeedUsed,
		logging.EloDiff, result.Metadata.EloDiffUsed,
		logging.RelaxIters, result.Metadata.RelaxIterations)

	s.invalidate(event.GroupID)
	event, err = s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	games, err := s.store.Games().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &GenerateResult{Event: event, Games: games, Metadata: result.Metadata}, nil
}

// previousEventPairs loads the teammate pairs of the group's most recent
// completed event, when the constraint toggle wants them.
func (s *Service) previousEventPairs(ctx context.Context, event *storage.Event, cfg settings.Settings) (map[matchmaking.Pair]bool, error) {
	if !cfg.NoRepeatTeammateFromPreviousEvent {
		return nil, nil
	}
	previous, err := s.store.Events().PreviousCompleted(ctx, event.GroupID, event.ID)
	if err != nil || previous == nil {
		return nil, err
	}
	games, err := s.store.Games().ListByEvent(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	pairs := make(map[matchmaking.Pair]bool, len(games)*2)
	for _, g := range games {
		pairs[matchmaking.NewPair(g.Team1[0], g.Team1[1])] = true
		pairs[matchmaking.NewPair(g.Team2[0], g.Team2[1])] = true
	}
	return pairs, nil
}

// SwapResult reports the affected games and any constraint warnings.
type SwapResult struct {
	Games    []storage.GameRow
	Warnings []string
}

// Swap exchanges two players within one round, either across two games or
// across teams of the same game. Constraint breaches warn but never block;
// a swap moves a GENERATED event into IN_PROGRESS.
func (s *Service) Swap(ctx context.Context, eventID uuid.UUID, roundIndex int, playerA, playerB uuid.UUID) (*SwapResult, error) {
	if playerA == playerB {
		return nil, validationf("cannot swap a player with themselves")
	}

	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fromStorage(err, "event")
	}
	switch event.Status {
	case storage.EventCompleted:
		return nil, conflictf("cannot swap positions on a completed event")
	case storage.EventDraft:
		return nil, conflictf("event has no schedule yet")
	}

	unlock := s.locks.Lock(event.GroupID)
	defer unlock()

	games, err := s.store.Games().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	gameA, posA := locate(games, roundIndex, playerA)
	gameB, posB := locate(games, roundIndex, playerB)
	if gameA < 0 {
		return nil, badRequestf("player %s does not play in round %d", playerA, roundIndex+1)
	}
	if gameB < 0 {
		return nil, badRequestf("player %s does not play in round %d", playerB, roundIndex+1)
	}

	*slot(&games[gameA], posA), *slot(&games[gameB], posB) = playerB, playerA
	games[gameA].Swapped = true
	games[gameB].Swapped = true

	ratings, err := s.participantRatings(ctx, event)
	if err != nil {
		return nil, err
	}
	affected := []int{gameA}
	if gameB != gameA {
		affected = append(affected, gameB)
	}
	for _, i := range affected {
		g := &games[i]
		g.Team1Elo = (ratings[g.Team1[0]] + ratings[g.Team1[1]]) / 2
		g.Team2Elo = (ratings[g.Team2[0]] + ratings[g.Team2[1]]) / 2
	}

	group, err := s.store.Groups().Get(ctx, event.GroupID)
	if err != nil {
		return nil, fromStorage(err, "group")
	}
	cfg, err := settings.FromJSON(group.Settings)
	if err != nil {
		return nil, err
	}
	previousPairs, err := s.previousEventPairs(ctx, event, cfg)
	if err != nil {
		return nil, err
	}
	checker := matchmaking.NewChecker(cfg.MatchmakingConfig(), previousPairs)

	all := make([]matchmaking.Game, len(games))
	for i, g := range games {
		all[i] = matchmaking.Game{RoundIndex: g.RoundIndex, CourtIndex: g.CourtIndex, Team1: g.Team1, Team2: g.Team2}
	}
	var warnings []string
	for _, i := range affected {
		warnings = append(warnings, checker.SwapWarnings(all[i], all)...)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		for _, i := range affected {
			if err := tx.Games().UpdateTeams(ctx, &games[i]); err != nil {
				return err
			}
		}
		if event.Status == storage.EventGenerated {
			return tx.Events().UpdateStatus(ctx, eventID, storage.EventInProgress)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(event.GroupID)
	result := &SwapResult{Warnings: warnings}
	for _, i := range affected {
		result.Games = append(result.Games, games[i])
	}
	return result, nil
}

// locate finds the game index and slot (0..3) of a player within a round.
func locate(games []storage.GameRow, roundIndex int, player uuid.UUID) (int, int) {
	for i, g := range games {
		if g.RoundIndex != roundIndex {
			continue
		}
		for pos, id := range [4]uuid.UUID{g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1]} {
			if id == player {
				return i, pos
			}
		}
	}
	return -1, -1
}

func slot(g *storage.GameRow, pos int) *uuid.UUID {
	switch pos {
	case 0:
		return &g.Team1[0]
	case 1:
		return &g.Team1[1]
	case 2:
		return &g.Team2[0]
	default:
		return &g.Team2[1]
	}
}

func (s *Service) participantRatings(ctx context.Context, event *storage.Event) (map[uuid.UUID]float64, error) {
	ratings := make(map[uuid.UUID]float64, len(event.Participants))
	for _, id := range event.Participants {
		p, err := s.store.Players().Get(ctx, id)
		if err != nil {
			return nil, fromStorage(err, "participant")
		}
		ratings[p.ID] = p.Rating
	}
	return ratings, nil
}

// UpdateScore records a game score. The result is derived from the scores;
// clearing either score resets the game to UNSET. Scoring a game of a
// COMPLETED event rewrites history, so it cascades into a full-group
// recalculation.
func (s *Service) UpdateScore(ctx context.Context, gameID uuid.UUID, score1, score2 *float64) (*storage.GameRow, error) {
	game, err := s.store.Games().Get(ctx, gameID)
	if err != nil {
		return nil, fromStorage(err, "game")
	}
	event, err := s.store.Events().Get(ctx, game.EventID)
	if err != nil {
		return nil, fromStorage(err, "event")
	}
	if (score1 == nil) != (score2 == nil) {
		return nil, validationf("both scores must be set together")
	}
	if (score1 != nil && *score1 < 0) || (score2 != nil && *score2 < 0) {
		return nil, validationf("scores cannot be negative")
	}

	result := rating.ResultFromScores(score1, score2)
	if err := s.store.Games().UpdateScore(ctx, gameID, score1, score2, result); err != nil {
		return nil, fromStorage(err, "game")
	}

	switch event.Status {
	case storage.EventGenerated:
		if err := s.store.Events().UpdateStatus(ctx, event.ID, storage.EventInProgress); err != nil {
			return nil, err
		}
	case storage.EventCompleted:
		s.log.Info("score edited on completed event, recalculating group",
			logging.EventID, event.ID, logging.GameID, gameID, logging.GroupID, event.GroupID)
		if _, err := s.replayer.Recalculate(ctx, event.GroupID); err != nil {
			return nil, err
		}
	}

	s.invalidate(event.GroupID)
	return s.store.Games().Get(ctx, gameID)
}

// CompleteResult is the closed event plus the rating movement it caused,
// keyed by player id.
type CompleteResult struct {
	Event  *storage.Event
	Deltas map[uuid.UUID]rating.Delta
}

// Complete closes the event: one engine batch over every scored game with
// pre-event ratings, per-player rating and stat writes, one audit record
// per affected player, then COMPLETED.
func (s *Service) Complete(ctx context.Context, eventID uuid.UUID) (*CompleteResult, error) {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, fromStorage(err, "event")
	}
	switch event.Status {
	case storage.EventCompleted:
		return nil, conflictf("event is already completed")
	case storage.EventDraft:
		return nil, conflictf("event has no schedule to complete")
	}

	unlock := s.locks.Lock(event.GroupID)
	defer unlock()

	group, err := s.store.Groups().Get(ctx, event.GroupID)
	if err != nil {
		return nil, fromStorage(err, "group")
	}
	cfg, err := settings.FromJSON(group.Settings)
	if err != nil {
		return nil, err
	}
	engine := cfg.RatingSystemFor()

	games, err := s.store.Games().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	playersByID := make(map[uuid.UUID]*storage.GroupPlayer, len(event.Participants))
	ratings := make(map[uuid.UUID]float64, len(event.Participants))
	for _, id := range event.Participants {
		p, err := s.store.Players().Get(ctx, id)
		if err != nil {
			return nil, fromStorage(err, "participant")
		}
		playersByID[id] = p
		ratings[id] = p.Rating
	}

	var batch []rating.Game
	for _, g := range games {
		if g.Result == rating.Unset || g.Result == "" {
			continue
		}
		player := func(id uuid.UUID) rating.PlayerRating {
			return rating.PlayerRating{PlayerID: id, Rating: ratings[id], DisplayName: playersByID[id].DisplayName}
		}
		batch = append(batch, rating.Game{
			Team1:      [2]rating.PlayerRating{player(g.Team1[0]), player(g.Team1[1])},
			Team2:      [2]rating.PlayerRating{player(g.Team2[0]), player(g.Team2[1])},
			Result:     g.Result,
			ScoreTeam1: g.ScoreTeam1,
			ScoreTeam2: g.ScoreTeam2,
		})
	}

	deltas := engine.CalculateDeltas(batch, ratings)

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Store) error {
		var updates []storage.RatingUpdate
		for id, delta := range deltas {
			p := playersByID[id]
			p.Rating = delta.RatingAfter
			updates = append(updates, storage.RatingUpdate{
				GroupID:      event.GroupID,
				EventID:      eventID,
				PlayerID:     id,
				RatingBefore: delta.RatingBefore,
				RatingAfter:  delta.RatingAfter,
				Delta:        delta.Delta,
				System:       cfg.RatingSystem,
			})
		}
		for _, g := range games {
			if g.Result == rating.Unset || g.Result == "" {
				continue
			}
			bumpStats(g, playersByID)
		}
		for _, p := range playersByID {
			if err := tx.Players().UpdateRatingAndStats(ctx, p); err != nil {
				return err
			}
		}
		if err := tx.RatingUpdates().Insert(ctx, updates); err != nil {
			return err
		}
		return tx.Events().UpdateStatus(ctx, eventID, storage.EventCompleted)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event completed",
		logging.EventID, eventID,
		logging.GroupID, event.GroupID,
		logging.RatingSys, cfg.RatingSystem,
		"players_rated", len(deltas))

	s.invalidate(event.GroupID)
	event, err = s.store.Events().Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return &CompleteResult{Event: event, Deltas: deltas}, nil
}

// bumpStats increments the cumulative counters of the four players of one
// scored game.
func bumpStats(g storage.GameRow, players map[uuid.UUID]*storage.GroupPlayer) {
	apply := func(ids [2]uuid.UUID, won, lost bool) {
		for _, id := range ids {
			p, ok := players[id]
			if !ok {
				continue
			}
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

// Delete removes a non-completed event and its games.
func (s *Service) Delete(ctx context.Context, eventID uuid.UUID) error {
	event, err := s.store.Events().Get(ctx, eventID)
	if err != nil {
		return fromStorage(err, "event")
	}
	if event.Status == storage.EventCompleted {
		return conflictf("completed events cannot be deleted")
	}

	if err := s.store.Events().Delete(ctx, eventID); err != nil {
		return fromStorage(err, "event")
	}
	s.invalidate(event.GroupID)
	return nil
}
