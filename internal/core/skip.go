package core

import (
	"time"

	"github.com/stagedive/deckqueue/internal/domain"
)

// WasSkipped reports whether a performance ended implausibly fast.
// floor is the fixed minimum; when the expected duration is known, the
// detection window widens to a quarter of it if that is larger.
func WasSkipped(elapsed, floor, expected time.Duration) bool {
	threshold := floor
	if expected > 0 {
		if quarter := expected / 4; quarter > threshold {
			threshold = quarter
		}
	}
	return elapsed < threshold
}

// SkipIntentPolicy decides what to assume about a detected skip.
// It is a product-level judgment call, so it stays pluggable.
type SkipIntentPolicy func(adminPresent bool) domain.SkipClass

// DefaultSkipIntent is the documented asymmetric default: with an
// administrator in the room, assume the admin meant to move things
// along; without one, assume a glitch and protect the performer.
func DefaultSkipIntent(adminPresent bool) domain.SkipClass {
	if adminPresent {
		return domain.SkipModerator
	}
	return domain.SkipAmbiguous
}
