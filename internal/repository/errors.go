// Package repository defines error types that are reused across multiple
// repositories. These sentinel values let handlers distinguish failure
// scenarios without inspecting SQL errors: ErrNotFound maps to HTTP 404,
// ErrForbidden to 403, ErrConflict to 400/409 and ErrRateLimited to 429.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own or lack the role for.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// existing state, such as requesting a friendship that is already accepted.
var ErrConflict = errors.New("conflict")

// ErrRateLimited is returned when a write-time rate check fails, such as a
// group join re-apply inside the 24h cooldown.
var ErrRateLimited = errors.New("rate limited")
