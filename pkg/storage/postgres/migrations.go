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

	"github.com/pkg/errors"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS groups (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		sport      TEXT NOT NULL DEFAULT '',
		settings   JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS group_players (
		id           UUID PRIMARY KEY,
		group_id     UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		display_name TEXT NOT NULL,
		membership   TEXT NOT NULL DEFAULT 'PERMANENT',
		skill_level  TEXT NOT NULL DEFAULT '',
		rating       DOUBLE PRECISION NOT NULL DEFAULT 1000,
		games_played INTEGER NOT NULL DEFAULT 0,
		wins         INTEGER NOT NULL DEFAULT 0,
		losses       INTEGER NOT NULL DEFAULT 0,
		ties         INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_players_group ON group_players (group_id)`,
	`CREATE TABLE IF NOT EXISTS events (
		id              UUID PRIMARY KEY,
		group_id        UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		starts_at       TIMESTAMPTZ NOT NULL,
		courts          INTEGER NOT NULL,
		rounds          INTEGER NOT NULL,
		status          TEXT NOT NULL DEFAULT 'DRAFT',
		participants    UUID[] NOT NULL DEFAULT '{}',
		generation_meta JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_group_status ON events (group_id, status, starts_at)`,
	`CREATE TABLE IF NOT EXISTS games (
		id            UUID PRIMARY KEY,
		event_id      UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		round_index   INTEGER NOT NULL,
		court_index   INTEGER NOT NULL,
		team1_player1 UUID NOT NULL,
		team1_player2 UUID NOT NULL,
		team2_player1 UUID NOT NULL,
		team2_player2 UUID NOT NULL,
		team1_elo     DOUBLE PRECISION NOT NULL DEFAULT 0,
		team2_elo     DOUBLE PRECISION NOT NULL DEFAULT 0,
		score_team1   DOUBLE PRECISION,
		score_team2   DOUBLE PRECISION,
		result        TEXT NOT NULL DEFAULT 'UNSET',
		swapped       BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_event ON games (event_id, round_index, court_index)`,
	`CREATE TABLE IF NOT EXISTS rating_updates (
		id            UUID PRIMARY KEY,
		group_id      UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		event_id      UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		player_id     UUID NOT NULL REFERENCES group_players(id) ON DELETE CASCADE,
		rating_before DOUBLE PRECISION NOT NULL,
		rating_after  DOUBLE PRECISION NOT NULL,
		delta         DOUBLE PRECISION NOT NULL DEFAULT 0,
		system        TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rating_updates_player ON rating_updates (player_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_rating_updates_group ON rating_updates (group_id, created_at)`,
}

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent, so running on every startup is safe.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "running migration %d", i)
		}
	}
	return nil
}
