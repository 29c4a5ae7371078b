package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/stagedive/deckqueue/internal/domain"
)

// reservation is the fair-turn claim on a freed slot. At most one
// exists at a time; the engine owns it and its timer.
type reservation struct {
	holder    domain.Identity
	token     string
	startedAt time.Time
	timeout   time.Duration
	timer     *time.Timer
}

func newReservation(holder domain.Identity, timeout time.Duration, startedAt time.Time) *reservation {
	return &reservation{
		holder:    holder,
		token:     uuid.NewString(),
		startedAt: startedAt,
		timeout:   timeout,
	}
}

// remaining is the time left before the claim lapses.
func (r *reservation) remaining(now time.Time) time.Duration {
	left := r.startedAt.Add(r.timeout).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// stop cancels the pending expiry timer, if armed.
func (r *reservation) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
