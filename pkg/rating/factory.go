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

package rating

// SystemTag selects a rating variant.
type SystemTag string

const (
	SystemSeriousElo SystemTag = "SERIOUS_ELO"
	SystemCatchUp    SystemTag = "CATCH_UP"
	SystemRacsElo    SystemTag = "RACS_ELO"
)

// Default parameters per system. Rac's uses a very different expectation
// curve, hence the small constant, and a larger fallback K for score-less
// games.
const (
	DefaultKFactor     = 32.0
	DefaultEloConst    = 400.0
	racsDefaultK       = 100.0
	racsDefaultEloCost = 0.3
)

// New maps a system tag to a concrete engine. A zero eloConst selects the
// per-engine default (400 for the standard variants, 0.3 for Rac's); a zero
// kFactor selects the per-engine default likewise. Unknown tags fall back
// to Serious ELO.
func New(tag SystemTag, kFactor, eloConst float64) System {
	switch tag {
	case SystemCatchUp:
		if kFactor == 0 {
			kFactor = DefaultKFactor
		}
		if eloConst == 0 {
			eloConst = DefaultEloConst
		}
		return NewCatchUpElo(kFactor, eloConst)
	case SystemRacsElo:
		if kFactor == 0 {
			kFactor = racsDefaultK
		}
		if eloConst == 0 {
			eloConst = racsDefaultEloCost
		}
		return NewRacsElo(kFactor, eloConst)
	default:
		if kFactor == 0 {
			kFactor = DefaultKFactor
		}
		if eloConst == 0 {
			eloConst = DefaultEloConst
		}
		return NewSeriousElo(kFactor, eloConst)
	}
}
