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

// Package postgres implements the storage port on PostgreSQL via pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

// querier is the subset of pgx shared by pools and transactions, so every
// repository works unchanged inside WithinTx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store is the pgx-backed storage.Store.
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

var _ storage.Store = &Store{}

// Connect opens a pool against databaseURL and verifies connectivity.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "creating connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	return New(pool), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Close releases the pool. No-op on transaction-bound stores.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Groups() storage.Groups               { return &groups{q: s.q} }
func (s *Store) Players() storage.Players             { return &players{q: s.q} }
func (s *Store) Events() storage.Events               { return &events{q: s.q} }
func (s *Store) Games() storage.Games                 { return &games{q: s.q} }
func (s *Store) RatingUpdates() storage.RatingUpdates { return &ratingUpdates{q: s.q} }

// WithinTx runs fn against a store bound to one transaction. Nested calls
// reuse the ambient transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Store) error) error {
	if s.pool == nil {
		return fn(ctx, s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &Store{q: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "committing transaction")
}

// notFound maps pgx's no-rows marker onto the port sentinel.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.Wrap(storage.ErrNotFound, what)
	}
	return errors.Wrapf(err, "querying %s", what)
}
