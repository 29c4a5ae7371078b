// Package core holds the queue/turn state machine: the waitlist, the
// per-participant turn ledger, mode policy, and the occupancy reconciler.
// Nothing in here touches a socket; external effects go through the
// interfaces in ports.go.
package core

import "github.com/stagedive/deckqueue/internal/domain"

// Waitlist is the ordered fairness queue. Front is next to be served.
// Not safe for concurrent use; the engine serializes access.
type Waitlist struct {
	members []domain.Identity
}

func NewWaitlist() *Waitlist {
	return &Waitlist{}
}

// Append adds id to the back. Duplicate adds are a no-op.
func (w *Waitlist) Append(id domain.Identity) {
	if w.Contains(id) {
		return
	}
	w.members = append(w.members, id)
}

// Remove drops id wherever it sits. Absence is a no-op.
func (w *Waitlist) Remove(id domain.Identity) {
	for i, m := range w.members {
		if m == id {
			w.members = append(w.members[:i], w.members[i+1:]...)
			return
		}
	}
}

// RotateToBack is remove-then-append: a participant who just performed
// moves behind everyone who has not.
func (w *Waitlist) RotateToBack(id domain.Identity) {
	w.Remove(id)
	w.members = append(w.members, id)
}

func (w *Waitlist) Contains(id domain.Identity) bool {
	for _, m := range w.members {
		if m == id {
			return true
		}
	}
	return false
}

func (w *Waitlist) Size() int {
	return len(w.members)
}

func (w *Waitlist) Clear() {
	w.members = nil
}

// Head returns the front of the queue.
func (w *Waitlist) Head() (domain.Identity, bool) {
	if len(w.members) == 0 {
		return "", false
	}
	return w.members[0], true
}

// Members returns a copy of the queue in priority order.
func (w *Waitlist) Members() []domain.Identity {
	out := make([]domain.Identity, len(w.members))
	copy(out, w.members)
	return out
}

// Replace swaps the whole ordering in one step. Used by the drift
// rebuild and the admin occupancy sync.
func (w *Waitlist) Replace(members []domain.Identity) {
	w.members = w.members[:0]
	for _, id := range members {
		w.Append(id)
	}
}
