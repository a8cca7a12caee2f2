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

// Package settings defines the per-group configuration blob and the
// skill-tier initial-rating rules derived from it.
package settings

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/matchmaking"
	"github.com/rallyrank/rallyrank/pkg/rating"
)

// Membership classifies a group player.
type Membership string

const (
	MembershipPermanent Membership = "PERMANENT"
	MembershipSub       Membership = "SUB"
)

// Skill is the optional self-declared tier of a substitute player.
type Skill string

const (
	SkillAdvanced     Skill = "ADVANCED"
	SkillIntermediate Skill = "INTERMEDIATE"
	SkillBeginner     Skill = "BEGINNER"
)

// Settings is the group configuration record. The JSON keys are stable and
// stored verbatim in the group row, so they are part of the data contract.
type Settings struct {
	RatingSystem                      rating.SystemTag `json:"ratingSystem"`
	InitialRating                     float64          `json:"initialRating"`
	KFactor                           float64          `json:"kFactor"`
	EloConst                          *float64         `json:"eloConst,omitempty"`
	NoRepeatTeammateInEvent           bool             `json:"noRepeatTeammateInEvent"`
	NoRepeatTeammateFromPreviousEvent bool             `json:"noRepeatTeammateFromPreviousEvent"`
	NoRepeatOpponentInEvent           bool             `json:"noRepeatOpponentInEvent"`
	EloDiff                           float64          `json:"eloDiff"`
	AutoRelaxEloDiff                  bool             `json:"autoRelaxEloDiff"`
	AutoRelaxStep                     float64          `json:"autoRelaxStep"`
	AutoRelaxMaxEloDiff               float64          `json:"autoRelaxMaxEloDiff"`
}

// Default returns the settings a new group starts with.
func Default() Settings {
	return Settings{
		RatingSystem:                      rating.SystemSeriousElo,
		InitialRating:                     1000,
		KFactor:                           32,
		EloConst:                          nil,
		NoRepeatTeammateInEvent:           true,
		NoRepeatTeammateFromPreviousEvent: true,
		NoRepeatOpponentInEvent:           true,
		EloDiff:                           0.05,
		AutoRelaxEloDiff:                  true,
		AutoRelaxStep:                     0.01,
		AutoRelaxMaxEloDiff:               0.25,
	}
}

// FromJSON decodes a stored settings blob on top of the defaults, so groups
// saved before a key existed pick up its default. A nil or empty blob yields
// the defaults.
func FromJSON(data []byte) (Settings, error) {
	s := Default()
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrap(err, "decoding group settings")
	}
	return s, nil
}

// ToJSON encodes the settings for storage.
func (s Settings) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	return data, errors.Wrap(err, "encoding group settings")
}

// MatchmakingConfig maps the settings onto a generator configuration.
func (s Settings) MatchmakingConfig() matchmaking.Config {
	return matchmaking.Config{
		NoRepeatTeammateInEvent:           s.NoRepeatTeammateInEvent,
		NoRepeatTeammateFromPreviousEvent: s.NoRepeatTeammateFromPreviousEvent,
		NoRepeatOpponentInEvent:           s.NoRepeatOpponentInEvent,
		EloDiff:                           s.EloDiff,
		AutoRelaxEloDiff:                  s.AutoRelaxEloDiff,
		AutoRelaxStep:                     s.AutoRelaxStep,
		AutoRelaxMaxEloDiff:               s.AutoRelaxMaxEloDiff,
	}
}

// RatingSystemFor builds the group's configured rating engine.
func (s Settings) RatingSystemFor() rating.System {
	eloConst := 0.0
	if s.EloConst != nil {
		eloConst = *s.EloConst
	}
	return rating.New(s.RatingSystem, s.KFactor, eloConst)
}

// skillOffset is the tier adjustment, scaled linearly with the group's
// initial rating: 100 points per 1000 base.
func skillOffset(base float64, skill Skill) float64 {
	offset := float64(int(100 * base / 1000))
	switch skill {
	case SkillAdvanced:
		return offset
	case SkillBeginner:
		return -offset
	default:
		return 0
	}
}

// InitialRatingFor returns the rating a newly added player starts with.
// Only substitutes declare a skill tier at add time; permanent members
// always start at the base rating.
func (s Settings) InitialRatingFor(membership Membership, skill Skill) float64 {
	if membership != MembershipSub || skill == "" {
		return s.InitialRating
	}
	return s.InitialRating + skillOffset(s.InitialRating, skill)
}

// ResetRatingFor returns the rating a player resets to during a full
// recalculation. Unlike add time, the tier adjustment applies to any player
// that carries one.
func (s Settings) ResetRatingFor(skill Skill) float64 {
	if skill == "" {
		return s.InitialRating
	}
	return s.InitialRating + skillOffset(s.InitialRating, skill)
}
