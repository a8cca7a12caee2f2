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
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/rating"
	"github.com/rallyrank/rallyrank/pkg/storage"
)

type ratingUpdates struct {
	q querier
}

func (r *ratingUpdates) Insert(ctx context.Context, updates []storage.RatingUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range updates {
		u := &updates[i]
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		batch.Queue(`
			INSERT INTO rating_updates
				(id, group_id, event_id, player_id, rating_before, rating_after, delta, system, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			u.ID, u.GroupID, u.EventID, u.PlayerID, u.RatingBefore, u.RatingAfter,
			u.Delta, string(u.System), u.CreatedAt)
	}

	return errors.Wrap(r.q.SendBatch(ctx, batch).Close(), "inserting rating updates")
}

func (r *ratingUpdates) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]storage.RatingUpdate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, group_id, event_id, player_id, rating_before, rating_after, delta, system, created_at
		FROM rating_updates
		WHERE player_id = $1
		ORDER BY created_at`, playerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing rating updates")
	}
	defer rows.Close()

	var out []storage.RatingUpdate
	for rows.Next() {
		var u storage.RatingUpdate
		var system string
		err := rows.Scan(&u.ID, &u.GroupID, &u.EventID, &u.PlayerID,
			&u.RatingBefore, &u.RatingAfter, &u.Delta, &system, &u.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning rating update")
		}
		u.System = rating.SystemTag(system)
		out = append(out, u)
	}
	return out, errors.Wrap(rows.Err(), "iterating rating updates")
}

func (r *ratingUpdates) LastEventRatingBefore(ctx context.Context, groupID uuid.UUID) (map[uuid.UUID]float64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT player_id, rating_before
		FROM rating_updates
		WHERE group_id = $1 AND event_id = (
			SELECT event_id FROM rating_updates
			WHERE group_id = $1
			ORDER BY created_at DESC
			LIMIT 1
		)`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "loading last-event ratings")
	}
	defer rows.Close()

	out := make(map[uuid.UUID]float64)
	for rows.Next() {
		var playerID uuid.UUID
		var before float64
		if err := rows.Scan(&playerID, &before); err != nil {
			return nil, errors.Wrap(err, "scanning last-event rating")
		}
		out[playerID] = before
	}
	return out, errors.Wrap(rows.Err(), "iterating last-event ratings")
}

func (r *ratingUpdates) DeleteByGroup(ctx context.Context, groupID uuid.UUID) error {
	_, err := r.q.Exec(ctx, `DELETE FROM rating_updates WHERE group_id = $1`, groupID)
	return errors.Wrap(err, "deleting rating updates by group")
}
