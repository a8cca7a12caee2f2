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
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

type groups struct {
	q querier
}

func (r *groups) Create(ctx context.Context, group *storage.Group) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	if len(group.Settings) == 0 {
		group.Settings = json.RawMessage(`{}`)
	}

	_, err := r.q.Exec(ctx, `
		INSERT INTO groups (id, name, sport, settings, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		group.ID, group.Name, group.Sport, []byte(group.Settings), group.CreatedAt)
	return errors.Wrap(err, "inserting group")
}

func (r *groups) Get(ctx context.Context, id uuid.UUID) (*storage.Group, error) {
	var group storage.Group
	var settings []byte
	err := r.q.QueryRow(ctx, `
		SELECT id, name, sport, settings, created_at
		FROM groups WHERE id = $1`, id).
		Scan(&group.ID, &group.Name, &group.Sport, &settings, &group.CreatedAt)
	if err != nil {
		return nil, notFound(err, "group")
	}
	group.Settings = settings
	return &group, nil
}

func (r *groups) UpdateSettings(ctx context.Context, id uuid.UUID, settings json.RawMessage) error {
	tag, err := r.q.Exec(ctx, `UPDATE groups SET settings = $2 WHERE id = $1`, id, []byte(settings))
	if err != nil {
		return errors.Wrap(err, "updating group settings")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrap(storage.ErrNotFound, "group")
	}
	return nil
}
