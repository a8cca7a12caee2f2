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
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

type events struct {
	q querier
}

const eventColumns = `id, group_id, name, starts_at, courts, rounds, status,
	participants, generation_meta, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*storage.Event, error) {
	var e storage.Event
	var meta []byte
	err := row.Scan(&e.ID, &e.GroupID, &e.Name, &e.StartsAt, &e.Courts, &e.Rounds,
		&e.Status, &e.Participants, &meta, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.GenerationMeta = meta
	return &e, nil
}

func (r *events) Create(ctx context.Context, event *storage.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Status == "" {
		event.Status = storage.EventDraft
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.GroupID, event.Name, event.StartsAt, event.Courts,
		event.Rounds, string(event.Status), event.Participants,
		[]byte(event.GenerationMeta), event.CreatedAt)
	return errors.Wrap(err, "inserting event")
}

func (r *events) Get(ctx context.Context, id uuid.UUID) (*storage.Event, error) {
	e, err := scanEvent(r.q.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "event")
	}
	return e, nil
}

func (r *events) list(ctx context.Context, query string, args ...any) ([]storage.Event, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing events")
	}
	defer rows.Close()

	var out []storage.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning event")
		}
		out = append(out, *e)
	}
	return out, errors.Wrap(rows.Err(), "iterating events")
}

func (r *events) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]storage.Event, error) {
	return r.list(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE group_id = $1
		ORDER BY starts_at DESC, created_at DESC`, groupID)
}

// ListCompletedByGroup orders by (starts_at, created_at) ascending: replay
// depends on this being the chronological order of play.
func (r *events) ListCompletedByGroup(ctx context.Context, groupID uuid.UUID) ([]storage.Event, error) {
	return r.list(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE group_id = $1 AND status = $2
		ORDER BY starts_at ASC, created_at ASC`, groupID, string(storage.EventCompleted))
}

func (r *events) PreviousCompleted(ctx context.Context, groupID, excludeEventID uuid.UUID) (*storage.Event, error) {
	e, err := scanEvent(r.q.QueryRow(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE group_id = $1 AND status = $2 AND id != $3
		ORDER BY starts_at DESC, created_at DESC
		LIMIT 1`, groupID, string(storage.EventCompleted), excludeEventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying previous completed event")
	}
	return e, nil
}

func (r *events) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if err := storage.CheckEventUpdateFields(fields); err != nil {
		return err
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	query := `UPDATE events SET `
	args := []any{id}
	for i, column := range columns {
		if i > 0 {
			query += ", "
		}
		args = append(args, fields[column])
		query += fmt.Sprintf("%s = $%d", column, len(args))
	}
	query += ` WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "updating event")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	return nil
}

func (r *events) UpdateStatus(ctx context.Context, id uuid.UUID, status storage.EventStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return errors.Wrap(err, "updating event status")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	return nil
}

func (r *events) SetGenerationMeta(ctx context.Context, id uuid.UUID, meta json.RawMessage) error {
	tag, err := r.q.Exec(ctx, `UPDATE events SET generation_meta = $2 WHERE id = $1`, id, []byte(meta))
	if err != nil {
		return errors.Wrap(err, "updating event generation metadata")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	return nil
}

func (r *events) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting event")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "event")
	}
	return nil
}
