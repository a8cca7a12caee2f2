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

// Package rankings is the read path: current standings and match history,
// served through a short TTL cache. Concurrent misses for the same key are
// collapsed with singleflight so a cold cache costs one query.
package rankings

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/rallyrank/rallyrank/pkg/cache"
	"github.com/rallyrank/rallyrank/pkg/storage"
)

// Entry is one row of a group's standings. LastDelta is the rating change
// since the group's most recent recorded event, zero for players that did
// not move in it.
type Entry struct {
	Rank        int
	PlayerID    uuid.UUID
	DisplayName string
	Rating      float64
	GamesPlayed int
	Wins        int
	Losses      int
	Ties        int
	WinRate     float64
	LastDelta   float64
}

// Service serves rankings and history reads.
type Service struct {
	store storage.Store
	cache *cache.TTL
	group singleflight.Group
	log   logr.Logger
}

// New builds the read service. c may be nil to disable caching.
func New(store storage.Store, c *cache.TTL, log logr.Logger) *Service {
	return &Service{store: store, cache: c, log: log}
}

func groupPrefix(groupID uuid.UUID) string {
	return "group:" + groupID.String() + ":"
}

// InvalidateGroup drops every cached read of the group. Write paths call
// this after each mutation.
func (s *Service) InvalidateGroup(groupID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidatePrefix(groupPrefix(groupID))
	}
}

func (s *Service) cached(key string, load func() (any, error)) (any, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, v)
		}
		return v, nil
	})
	return v, err
}

// Rankings returns the group's standings ordered by rating descending.
// Win rate counts a tie as half a win.
func (s *Service) Rankings(ctx context.Context, groupID uuid.UUID) ([]Entry, error) {
	key := groupPrefix(groupID) + "rankings"
	v, err := s.cached(key, func() (any, error) {
		return s.loadRankings(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func (s *Service) loadRankings(ctx context.Context, groupID uuid.UUID) ([]Entry, error) {
	players, err := s.store.Players().ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	lastBefore, err := s.store.RatingUpdates().LastEventRatingBefore(ctx, groupID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(players))
	for _, p := range players {
		winRate := 0.0
		if p.GamesPlayed > 0 {
			winRate = (float64(p.Wins) + 0.5*float64(p.Ties)) / float64(p.GamesPlayed)
		}
		lastDelta := 0.0
		if before, ok := lastBefore[p.ID]; ok {
			lastDelta = p.Rating - before
		}
		entries = append(entries, Entry{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Rating:      p.Rating,
			GamesPlayed: p.GamesPlayed,
			Wins:        p.Wins,
			Losses:      p.Losses,
			Ties:        p.Ties,
			WinRate:     winRate,
			LastDelta:   lastDelta,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rating != entries[j].Rating {
			return entries[i].Rating > entries[j].Rating
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// History returns completed-event games of the group, newest event first.
func (s *Service) History(ctx context.Context, groupID uuid.UUID, filter storage.HistoryFilter) ([]storage.HistoryGame, error) {
	key := fmt.Sprintf("%shistory:%v:%v:%v:%d",
		groupPrefix(groupID), filter.PlayerID, filter.From, filter.To, filter.Limit)
	v, err := s.cached(key, func() (any, error) {
		return s.store.Games().History(ctx, groupID, filter)
	})
	if err != nil {
		return nil, err
	}
	return v.([]storage.HistoryGame), nil
}
