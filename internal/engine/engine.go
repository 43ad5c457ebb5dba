// Package engine holds the mesh comparison engine's subsystems: the asset
// registry, region classification, alignment, difference coloring and the
// auxiliary reference extraction.
package engine

import "errors"

// ErrInvalidTransition is returned when a toggle is attempted while its
// precondition does not hold. Callers treat it as a no-op: no registry or
// state change has happened.
var ErrInvalidTransition = errors.New("invalid state transition")
