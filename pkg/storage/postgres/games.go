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

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/storage"
)

type games struct {
	q querier
}

const gameColumns = `id, event_id, round_index, court_index,
	team1_player1, team1_player2, team2_player1, team2_player2,
	team1_elo, team2_elo, score_team1, score_team2, result, swapped, created_at`

func scanGame(row interface{ Scan(...any) error }, g *storage.GameRow) error {
	return row.Scan(&g.ID, &g.EventID, &g.RoundIndex, &g.CourtIndex,
		&g.Team1[0], &g.Team1[1], &g.Team2[0], &g.Team2[1],
		&g.Team1Elo, &g.Team2Elo, &g.ScoreTeam1, &g.ScoreTeam2,
		&g.Result, &g.Swapped, &g.CreatedAt)
}

func (r *games) Get(ctx context.Context, id uuid.UUID) (*storage.GameRow, error) {
	var g storage.GameRow
	if err := scanGame(r.q.QueryRow(ctx, `
		SELECT `+gameColumns+` FROM games WHERE id = $1`, id), &g); err != nil {
		return nil, notFound(err, "game")
	}
	return &g, nil
}

func (r *games) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]storage.GameRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE event_id = $1
		ORDER BY round_index, court_index`, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "listing games")
	}
	defer rows.Close()

	var out []storage.GameRow
	for rows.Next() {
		var g storage.GameRow
		if err := scanGame(rows, &g); err != nil {
			return nil, errors.Wrap(err, "scanning game")
		}
		out = append(out, g)
	}
	return out, errors.Wrap(rows.Err(), "iterating games")
}

// ReplaceForEvent deletes the event's games and batch-inserts the new set.
// Callers run it inside WithinTx so a failed insert does not leave the
// event gameless.
func (r *games) ReplaceForEvent(ctx context.Context, eventID uuid.UUID, newGames []storage.GameRow) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM games WHERE event_id = $1`, eventID); err != nil {
		return errors.Wrap(err, "deleting existing games")
	}

	batch := &pgx.Batch{}
	for i := range newGames {
		g := &newGames[i]
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now().UTC()
		}
		if g.Result == "" {
			g.Result = rating.Unset
		}
		g.EventID = eventID

		batch.Queue(`
			INSERT INTO games (`+gameColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			g.ID, g.EventID, g.RoundIndex, g.CourtIndex,
			g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1],
			g.Team1Elo, g.Team2Elo, g.ScoreTeam1, g.ScoreTeam2,
			string(g.Result), g.Swapped, g.CreatedAt)
	}

	return errors.Wrap(r.q.SendBatch(ctx, batch).Close(), "inserting games")
}

func (r *games) UpdateScore(ctx context.Context, id uuid.UUID, score1, score2 *float64, result rating.Result) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE games SET score_team1 = $2, score_team2 = $3, result = $4
		WHERE id = $1`, id, score1, score2, string(result))
	if err != nil {
		return errors.Wrap(err, "updating game score")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	return nil
}

func (r *games) UpdateTeams(ctx context.Context, game *storage.GameRow) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE games
		SET team1_player1 = $2, team1_player2 = $3,
		    team2_player1 = $4, team2_player2 = $5,
		    team1_elo = $6, team2_elo = $7, swapped = $8
		WHERE id = $1`,
		game.ID, game.Team1[0], game.Team1[1], game.Team2[0], game.Team2[1],
		game.Team1Elo, game.Team2Elo, game.Swapped)
	if err != nil {
		return errors.Wrap(err, "updating game teams")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	return nil
}

func (r *games) UpdateTeamElos(ctx context.Context, id uuid.UUID, team1Elo, team2Elo float64) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE games SET team1_elo = $2, team2_elo = $3 WHERE id = $1`,
		id, team1Elo, team2Elo)
	if err != nil {
		return errors.Wrap(err, "updating game team elos")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "game")
	}
	return nil
}

func (r *games) History(ctx context.Context, groupID uuid.UUID, filter storage.HistoryFilter) ([]storage.HistoryGame, error) {
	query := `
		SELECT g.id, g.event_id, g.round_index, g.court_index,
			g.team1_player1, g.team1_player2, g.team2_player1, g.team2_player2,
			g.team1_elo, g.team2_elo, g.score_team1, g.score_team2,
			g.result, g.swapped, g.created_at,
			e.name, e.starts_at
		FROM games g
		JOIN events e ON e.id = g.event_id
		WHERE e.group_id = $1 AND e.status = $2`
	args := []any{groupID, string(storage.EventCompleted)}

	if filter.PlayerID != nil {
		args = append(args, *filter.PlayerID)
		query += fmt.Sprintf(` AND $%d IN (g.team1_player1, g.team1_player2, g.team2_player1, g.team2_player2)`, len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND e.starts_at >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND e.starts_at <= $%d`, len(args))
	}
	query += ` ORDER BY e.starts_at DESC, g.round_index, g.court_index`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying match history")
	}
	defer rows.Close()

	var out []storage.HistoryGame
	for rows.Next() {
		var h storage.HistoryGame
		err := rows.Scan(&h.ID, &h.EventID, &h.RoundIndex, &h.CourtIndex,
			&h.Team1[0], &h.Team1[1], &h.Team2[0], &h.Team2[1],
			&h.Team1Elo, &h.Team2Elo, &h.ScoreTeam1, &h.ScoreTeam2,
			&h.Result, &h.Swapped, &h.CreatedAt,
			&h.EventName, &h.EventStartsAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning match history row")
		}
		out = append(out, h)
	}
	return out, errors.Wrap(rows.Err(), "iterating match history")
}
