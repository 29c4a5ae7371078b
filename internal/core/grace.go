package core

import (
	"time"

	"github.com/stagedive/deckqueue/internal/domain"
)

type graceEntry struct {
	departedAt time.Time
	timer      *time.Timer
}

// GraceTracker holds a departure open for a fixed window so a page
// refresh does not cost anyone their place in line. A rejoin inside
// the window cancels the pending removal.
type GraceTracker struct {
	window  time.Duration
	pending map[domain.Identity]*graceEntry
}

func NewGraceTracker(window time.Duration) *GraceTracker {
	return &GraceTracker{
		window:  window,
		pending: make(map[domain.Identity]*graceEntry),
	}
}

// Depart records a departure and arms onExpire to fire after the
// window. onExpire runs on a timer goroutine; it must re-validate
// everything under the engine lock before acting.
func (g *GraceTracker) Depart(id domain.Identity, departedAt time.Time, onExpire func()) {
	if e, ok := g.pending[id]; ok {
		e.timer.Stop()
	}
	g.pending[id] = &graceEntry{
		departedAt: departedAt,
		timer:      time.AfterFunc(g.window, onExpire),
	}
}

// Rejoin cancels a pending departure. Reports whether one was pending,
// so the caller can send the abbreviated welcome-back notice.
func (g *GraceTracker) Rejoin(id domain.Identity) bool {
	e, ok := g.pending[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(g.pending, id)
	return true
}

// Expired confirms that id's window has lapsed and removes the entry.
// Returns false when the departure was already canceled, which is the
// re-validation a fired timer must perform.
func (g *GraceTracker) Expired(id domain.Identity) bool {
	if _, ok := g.pending[id]; !ok {
		return false
	}
	delete(g.pending, id)
	return true
}

func (g *GraceTracker) Pending(id domain.Identity) bool {
	_, ok := g.pending[id]
	return ok
}

// Reset stops every timer and forgets all pending departures.
func (g *GraceTracker) Reset() {
	for _, e := range g.pending {
		e.timer.Stop()
	}
	g.pending = make(map[domain.Identity]*graceEntry)
}
