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

package event

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rallyrank/rallyrank/pkg/storage"
)

// Kind classifies service errors so transports can map them to codes
// without string matching.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindForbidden   Kind = "forbidden"
	KindConflict    Kind = "conflict"
	KindBadRequest  Kind = "bad_request"
	KindValidation  Kind = "validation"
	KindMatchmaking Kind = "matchmaking"
)

// StatusError is a kind-tagged error. Cause, when set, is reachable via
// errors.Is/As through Unwrap.
type StatusError struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *StatusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

func (e *StatusError) Unwrap() error { return e.Cause }

// KindOf extracts the kind of a service error, or "" for foreign errors.
func KindOf(err error) Kind {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func conflictf(format string, args ...any) error {
	return &StatusError{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func badRequestf(format string, args ...any) error {
	return &StatusError{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return &StatusError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func matchmakingErr(msg string, cause error) error {
	return &StatusError{Kind: KindMatchmaking, Msg: msg, Cause: cause}
}

// fromStorage maps port errors onto the taxonomy: missing records become
// NotFound, whitelist breaches become BadRequest, anything else passes
// through untouched.
func fromStorage(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return &StatusError{Kind: KindNotFound, Msg: what + " not found", Cause: err}
	case errors.Is(err, storage.ErrInvalidColumn):
		return &StatusError{Kind: KindBadRequest, Msg: "invalid update field", Cause: err}
	default:
		return err
	}
}
