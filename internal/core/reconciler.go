package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/domain"
	"github.com/stagedive/deckqueue/internal/monitoring"
)

// Occupancy reconciliation: keep the logical waitlist and the physical
// deck mutually consistent without yanking anyone mid-performance.
// Deferred evictions execute only when a performance starts at the
// anchor slot, in one predictable batch.

// reconcileLocked runs on every performance start while strict mode is
// active. Lock held; snap was fetched before locking.
func (e *Engine) reconcileLocked(snap domain.Occupancy) {
	anchor, ok := snap.Anchor()
	if !ok {
		return
	}

	// Drifted: the deck says someone else is up front. Rebuild the
	// waitlist around physical reality; ledger state rides along
	// untouched because it is keyed by identity, not position.
	if head, hok := e.waitlist.Head(); hok && head != anchor {
		e.rebuildFromOccupancyLocked(snap)
		e.publishQueueLocked()
		log.Info().Str("module", "core.reconcile").Str("anchor", string(anchor)).Msg("waitlist rebuilt after drift")
	}

	// Executing: fires only when the performance is at the anchor.
	if e.current == nil || e.current.performer != anchor {
		return
	}
	for _, id := range snap.Ordered() {
		reason, pending := e.ledger.PendingEviction(id)
		if !pending {
			continue
		}
		e.ledger.ClearEviction(id)
		if id == anchor {
			// Graduated to the front; they are serving their turn
			// legitimately now.
			continue
		}
		e.room.EvictFromSlot(id)
		e.room.SendRoomMessage(fmt.Sprintf("%s, thanks for playing — hopping you off so the next in line can step up.", id))
		monitoring.IncEviction(reason.String())
		log.Info().Str("module", "core.reconcile").Str("who", string(id)).Str("reason", reason.String()).Msg("executed deferred eviction")
	}
}

// rebuildFromOccupancyLocked makes the anchor occupant the head,
// followed by the remaining occupants in deck order, followed by
// waitlisted non-occupants in their prior relative order.
func (e *Engine) rebuildFromOccupancyLocked(snap domain.Occupancy) {
	rebuilt := snap.Ordered()
	for _, id := range e.waitlist.Members() {
		if !snap.Contains(id) {
			rebuilt = append(rebuilt, id)
		}
	}
	e.waitlist.Replace(rebuilt)
}

// completeTurnLocked applies the turn completion policy on every
// performance end, natural or skipped.
func (e *Engine) completeTurnLocked(performer domain.Identity, skipped bool) {
	// Everyone who performs moves behind everyone who has not,
	// regardless of how the performance ended.
	e.waitlist.RotateToBack(performer)

	if e.mode.Current() != domain.ModeStrict {
		return
	}

	if !skipped {
		n := e.ledger.IncrementTurns(performer)
		if n >= e.policy.TurnsPerVisit {
			e.finishVisitLocked(performer, domain.EvictTurnComplete)
		}
		return
	}

	class := e.skipIntent(e.adminPresentLocked())
	e.ledger.MarkSkip(performer, class)
	monitoring.IncSkip(class.String())
	log.Info().Str("module", "core.reconcile").Str("performer", string(performer)).Str("class", class.String()).Msg("premature ending classified")

	switch class {
	case domain.SkipModerator:
		// An admin presumably meant to move things along; the turn
		// still counts.
		n := e.ledger.IncrementTurns(performer)
		if n >= e.policy.TurnsPerVisit {
			e.finishVisitLocked(performer, domain.EvictModeratorSkip)
		}
	case domain.SkipSelf:
		n := e.ledger.IncrementTurns(performer)
		if n >= e.policy.TurnsPerVisit {
			e.finishVisitLocked(performer, domain.EvictSelfSkip)
		}
	default:
		// Ambiguous or forced: count the turn for rotation purposes
		// but never punish a likely glitch.
		e.ledger.IncrementTurns(performer)
	}
}

// finishVisitLocked is the end of a participant's visit in strict mode:
// reset the count, start the cooldown, and schedule — not execute — the
// eviction. The deck is only cleared at the next anchor start.
func (e *Engine) finishVisitLocked(performer domain.Identity, reason domain.EvictReason) {
	e.ledger.ResetTurns(performer)
	e.startCooldownLocked(performer)
	e.ledger.ScheduleEviction(performer, reason)
	e.room.SendDirectMessage(performer, fmt.Sprintf(
		"that was your turn for this visit — you can line up again in %s.",
		e.policy.Cooldown.Round(time.Minute)))
}

// fillOpenSlotsLocked runs whenever a slot frees while the queue is on.
func (e *Engine) fillOpenSlotsLocked(snap domain.Occupancy) {
	capacity := e.policy.SlotCount - len(snap.Slots)
	if capacity <= 0 || e.resv != nil {
		return
	}

	for _, id := range e.waitlist.Members() {
		if snap.Contains(id) {
			continue
		}
		if _, cooling := e.ledger.CooldownRemaining(id); cooling {
			continue
		}
		r := newReservation(id, e.policy.ReservationTimeout, e.now())
		token := r.token
		r.timer = time.AfterFunc(r.timeout, func() { e.reservationExpired(token) })
		e.resv = r
		monitoring.IncReservation("granted")
		e.room.SendRoomMessage(fmt.Sprintf("a slot is open! it's yours for the next %s, %s.", r.timeout.Round(time.Second), id))
		e.room.SendDirectMessage(id, "your slot is ready — hop on the deck before your window closes.")
		log.Info().Str("module", "core.reconcile").Str("holder", string(id)).Msg("fair-turn reservation granted")
		return
	}

	e.room.SendRoomMessage("a slot is open — anyone may take it.")
	log.Info().Str("module", "core.reconcile").Msg("no eligible candidate, slot is free-for-all")
}

// releaseReservationLocked clears the claim when id holds it, so a
// departed participant cannot keep a slot reserved. Reports whether a
// slot was freed back up; the caller re-runs the fill policy.
func (e *Engine) releaseReservationLocked(id domain.Identity) bool {
	if e.resv == nil || e.resv.holder != id {
		return false
	}
	e.resv.stop()
	e.resv = nil
	monitoring.IncReservation("released")
	log.Info().Str("module", "core.reconcile").Str("holder", string(id)).Msg("reservation released, holder gone")
	return true
}

// reservationExpired runs on a timer goroutine when a holder never
// showed up.
func (e *Engine) reservationExpired(token string) {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.reconcile").Msg("occupancy fetch on reservation expiry")
		snap = domain.Occupancy{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Claimed or cleared while the timer slept.
	if e.resv == nil || e.resv.token != token {
		return
	}
	holder := e.resv.holder
	e.resv = nil
	monitoring.IncReservation("expired")

	// Reordering penalty only; no cooldown for not showing up. A
	// holder who already left the waitlist is not re-enrolled.
	if e.waitlist.Contains(holder) {
		e.waitlist.RotateToBack(holder)
		e.room.SendRoomMessage(fmt.Sprintf("%s missed their window and moved to the back of the queue.", holder))
		e.publishQueueLocked()
	}
	log.Info().Str("module", "core.reconcile").Str("holder", string(holder)).Msg("reservation lapsed")

	if e.enabled {
		e.fillOpenSlotsLocked(snap)
	}
}
