// Package launchererr defines the engine's error-kind taxonomy.
//
// Every fallible operation in the engine returns an error that, when
// unwrapped far enough, exposes one of the Kind values below along with
// the identifier it concerns (a task destination, version id, or
// coordinate) and the underlying cause. Callers that need to branch on
// kind (to decide retry vs. fatal, or to pick an exit code) use Is/As
// or KindOf rather than string matching.
package launchererr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the error categories from the specification's error
// handling design.
type Kind string

const (
	KindBadManifest      Kind = "bad_manifest"
	KindNetwork          Kind = "network"
	KindHTTPStatus       Kind = "http_status"
	KindChecksumMismatch Kind = "checksum_mismatch"
	KindIO               Kind = "io"
	KindBadCoordinate    Kind = "bad_coordinate"
	KindBadRule          Kind = "bad_rule"
	KindBadArgument      Kind = "bad_argument"
	KindNoRuntime        Kind = "no_runtime"
	KindSpawnFailed      Kind = "spawn_failed"
	KindCancelled        Kind = "cancelled"
)

// Error is the engine's structured error type. It always carries a
// Kind and an Ident (the offending task dest / version id /
// coordinate); Cause may be nil for errors that originate inside the
// engine itself (e.g. BadCoordinate).
type Error struct {
	Kind   Kind
	Ident  string
	Status int // populated for KindHTTPStatus
	cause  error
}

func (e *Error) Error() string {
	if e.Ident == "" {
		return fmt.Sprintf("%s", e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Ident)
}

func (e *Error) Unwrap() error { return e.cause }

// Underlying returns the deepest non-Error cause, matching the
// github.com/pkg/errors convention used elsewhere in the engine.
func (e *Error) Underlying() error { return errors.Cause(e.cause) }

// New constructs an *Error with no underlying cause.
func New(kind Kind, ident string) *Error {
	return &Error{Kind: kind, Ident: ident}
}

// Wrap constructs an *Error that wraps cause, annotating it with a
// cause-chain via github.com/pkg/errors so that %+v printing retains a
// stack trace from the wrap site.
func Wrap(kind Kind, ident string, cause error) *Error {
	if cause == nil {
		return New(kind, ident)
	}
	return &Error{Kind: kind, Ident: ident, cause: errors.Wrap(cause, string(kind))}
}

// HTTPStatus constructs a KindHTTPStatus error carrying the response
// status code, used by the retry policy to decide retryability.
func HTTPStatus(ident string, status int) *Error {
	return &Error{Kind: KindHTTPStatus, Ident: ident, Status: status}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Retryable reports whether an error of this kind is eligible for the
// retry policy in §4.5.1/§7: transient network errors, 5xx/408/429
// HTTP statuses, and a single checksum mismatch retry. The caller
// tracks the "only once" checksum rule itself (retry.Policy.Do does).
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindNetwork, KindChecksumMismatch:
		return true
	case KindHTTPStatus:
		switch e.Status {
		case 408, 429:
			return true
		default:
			return e.Status >= 500 && e.Status < 600
		}
	default:
		return false
	}
}

// ExitCode maps an error's Kind to the CLI exit codes from §6.8. A nil
// error maps to 0; an error that is not an *Error, or has an
// unrecognized kind, maps to 1 (generic failure).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case KindBadArgument, KindBadCoordinate, KindBadRule:
		return 2
	case KindNetwork, KindHTTPStatus:
		return 3
	case KindChecksumMismatch:
		return 4
	case KindNoRuntime:
		return 5
	case KindSpawnFailed:
		return 6
	case KindCancelled:
		return 7
	default:
		return 1
	}
}
