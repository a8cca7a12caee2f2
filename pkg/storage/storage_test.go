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

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEventUpdateFields(t *testing.T) {
	err := CheckEventUpdateFields(map[string]any{
		"name":      "Week 2",
		"starts_at": time.Now(),
		"courts":    3,
		"rounds":    5,
	})
	assert.NoError(t, err)

	err = CheckEventUpdateFields(map[string]any{"status": "COMPLETED"})
	require.ErrorIs(t, err, ErrInvalidColumn)

	err = CheckEventUpdateFields(map[string]any{"name": "x", "settings": "{}"})
	require.ErrorIs(t, err, ErrInvalidColumn)

	err = CheckEventUpdateFields(nil)
	require.ErrorIs(t, err, ErrInvalidColumn)
}
