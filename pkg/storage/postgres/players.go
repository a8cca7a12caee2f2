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
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

type players struct {
	q querier
}

const playerColumns = `id, group_id, display_name, membership, skill_level,
	rating, games_played, wins, losses, ties, created_at`

func scanPlayer(row interface{ Scan(...any) error }) (*storage.GroupPlayer, error) {
	var p storage.GroupPlayer
	err := row.Scan(&p.ID, &p.GroupID, &p.DisplayName, &p.Membership, &p.Skill,
		&p.Rating, &p.GamesPlayed, &p.Wins, &p.Losses, &p.Ties, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *players) Create(ctx context.Context, player *storage.GroupPlayer) error {
	if player.ID == uuid.Nil {
		player.ID = uuid.New()
	}
	if player.CreatedAt.IsZero() {
		player.CreatedAt = time.Now().UTC()
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO group_players (`+playerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		player.ID, player.GroupID, player.DisplayName, string(player.Membership),
		string(player.Skill), player.Rating, player.GamesPlayed, player.Wins,
		player.Losses, player.Ties, player.CreatedAt)
	return errors.Wrap(err, "inserting group player")
}

func (r *players) Get(ctx context.Context, id uuid.UUID) (*storage.GroupPlayer, error) {
	p, err := scanPlayer(r.q.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM group_players WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "group player")
	}
	return p, nil
}

func (r *players) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]storage.GroupPlayer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+playerColumns+` FROM group_players
		WHERE group_id = $1
		ORDER BY created_at, id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "listing group players")
	}
	defer rows.Close()

	var out []storage.GroupPlayer
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning group player")
		}
		out = append(out, *p)
	}
	return out, errors.Wrap(rows.Err(), "iterating group players")
}

func (r *players) UpdateRatingAndStats(ctx context.Context, player *storage.GroupPlayer) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE group_players
		SET rating = $2, games_played = $3, wins = $4, losses = $5, ties = $6
		WHERE id = $1`,
		player.ID, player.Rating, player.GamesPlayed, player.Wins, player.Losses, player.Ties)
	if err != nil {
		return errors.Wrap(err, "updating player rating and stats")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "group player")
	}
	return nil
}
