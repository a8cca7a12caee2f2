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

package matchmaking

import "errors"

var (
	// ErrParticipantCount indicates the roster does not match courts * 4.
	ErrParticipantCount = errors.New("participant count must equal courts * 4")

	// ErrRatingInfeasible indicates no schedule exists within the rating
	// tolerance, even after bounded relaxation.
	ErrRatingInfeasible = errors.New("could not generate schedule within rating constraints")

	// ErrConstraintsInfeasible indicates the hard teammate/opponent rules
	// cannot be satisfied; relaxing the rating tolerance would not help.
	ErrConstraintsInfeasible = errors.New("hard teammate/opponent constraints cannot be satisfied with current settings")
)
