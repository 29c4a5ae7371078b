package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/domain"
)

// Chat command handlers. Authorization happens in the dispatcher; by
// the time an admin command lands here it is already allow-listed.

func (e *Engine) JoinQueue(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		e.room.SendDirectMessage(id, "the queue is off right now.")
		return
	}
	if e.locked {
		e.room.SendDirectMessage(id, "the queue is locked — no new sign-ups for the moment.")
		return
	}
	if left, cooling := e.ledger.CooldownRemaining(id); cooling {
		e.room.SendDirectMessage(id, fmt.Sprintf("you're on cooldown for another %s.", left.Round(time.Second)))
		return
	}
	if e.waitlist.Contains(id) {
		e.room.SendDirectMessage(id, fmt.Sprintf("you're already in line at position %d.", e.positionLocked(id)))
		return
	}
	e.waitlist.Append(id)
	e.room.SendDirectMessage(id, fmt.Sprintf("you're in! position %d of %d.", e.waitlist.Size(), e.waitlist.Size()))
	e.publishQueueLocked()
	e.updateModeLocked()
}

func (e *Engine) LeaveQueue(id domain.Identity) {
	snap, snapErr := e.fetchOccupancy()
	if snapErr != nil {
		log.Error().Err(snapErr).Str("module", "core.engine").Msg("occupancy fetch on queue leave")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || !e.waitlist.Contains(id) {
		e.room.SendDirectMessage(id, "you're not in the queue.")
		return
	}
	e.waitlist.Remove(id)
	e.ledger.Forget(id)
	if e.releaseReservationLocked(id) && snapErr == nil {
		e.fillOpenSlotsLocked(snap)
	}
	e.room.SendDirectMessage(id, "you're out of the queue. come back any time.")
	e.publishQueueLocked()
	e.updateModeLocked()
}

func (e *Engine) ViewQueue(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		e.room.SendRoomMessage("the queue is off right now.")
		return
	}
	members := e.waitlist.Members()
	if len(members) == 0 {
		e.room.SendRoomMessage("the queue is empty — the deck is all yours.")
		return
	}
	parts := make([]string, 0, len(members))
	for i, m := range members {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, m))
	}
	e.room.SendRoomMessage("up next: " + strings.Join(parts, " "))
}

func (e *Engine) Status(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		e.room.SendDirectMessage(id, "the queue is off right now.")
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s | queue: %d", e.mode.Current(), e.waitlist.Size())
	if pos := e.positionLocked(id); pos > 0 {
		fmt.Fprintf(&b, " | your position: %d", pos)
	}
	if turns := e.ledger.Turns(id); turns > 0 {
		fmt.Fprintf(&b, " | turns this visit: %d", turns)
	}
	if left, cooling := e.ledger.CooldownRemaining(id); cooling {
		fmt.Fprintf(&b, " | cooldown: %s left", left.Round(time.Second))
	}
	e.room.SendDirectMessage(id, b.String())
}

func (e *Engine) Help(id domain.Identity) {
	e.room.SendDirectMessage(id, fmt.Sprintf(
		"commands: %s, %s, %s, %s, %s",
		domain.CmdJoinQueue, domain.CmdLeaveQueue, domain.CmdViewQueue, domain.CmdStatus, domain.CmdHelp))
}

// --- admin commands --------------------------------------------------

func (e *Engine) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		return
	}
	e.resetStateLocked()
	e.enabled = true
	e.room.SendRoomMessage(fmt.Sprintf("the deck queue is ON — say %s to line up.", domain.CmdJoinQueue))
	e.publishQueueLocked()
	log.Info().Str("module", "core.engine").Msg("queue enabled")
}

func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}
	e.enabled = false
	e.resetStateLocked()
	e.room.SendRoomMessage("the deck queue is now off.")
	e.publishQueueLocked()
	log.Info().Str("module", "core.engine").Msg("queue disabled")
}

func (e *Engine) ToggleLock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = !e.locked
	if e.locked {
		e.room.SendRoomMessage("the queue is locked: current members keep their spots, no new sign-ups.")
	} else {
		e.room.SendRoomMessage("the queue is unlocked — sign-ups are open again.")
	}
	e.publishQueueLocked()
}

func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.waitlist.Clear()
	e.ledger.Reset()
	e.stopTimersLocked()
	e.room.SendRoomMessage("the queue was cleared by an admin.")
	e.publishQueueLocked()
	e.updateModeLocked()
}

// SyncFromOccupancy rebuilds the waitlist to match the deck, an admin
// escape hatch for when drift correction has not caught up.
func (e *Engine) SyncFromOccupancy() {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.engine").Msg("occupancy fetch on sync")
		e.room.SendRoomMessage("couldn't read the deck just now — try again in a moment.")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rememberOccupantsLocked(snap)
	e.rebuildFromOccupancyLocked(snap)
	e.room.SendRoomMessage("queue synced to the current deck order.")
	e.publishQueueLocked()
	e.updateModeLocked()
}

func (e *Engine) ResetCooldowns() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.ClearCooldowns()
	for id, t := range e.cooldownTimers {
		t.Stop()
		delete(e.cooldownTimers, id)
	}
	e.room.SendRoomMessage("all cooldowns were reset by an admin.")
}

// OverrideSkip retroactively reclassifies a premature ending and
// updates the same scheduling decision the automatic classifier made.
func (e *Engine) OverrideSkip(target domain.Identity, class domain.SkipClass) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.MarkSkip(target, class)
	switch class {
	case domain.SkipSelf:
		e.ledger.ResetTurns(target)
		e.startCooldownLocked(target)
		e.ledger.ScheduleEviction(target, domain.EvictSelfSkip)
		e.room.SendDirectMessage(target, "an admin marked your last skip as self-initiated — that counts as your turn.")
	case domain.SkipModerator:
		e.ledger.ResetTurns(target)
		e.startCooldownLocked(target)
		e.ledger.ScheduleEviction(target, domain.EvictModeratorSkip)
		e.room.SendDirectMessage(target, "an admin confirmed your last turn as complete.")
	case domain.SkipForced:
		e.ledger.ClearEviction(target)
		e.clearCooldownLocked(target)
		e.room.SendDirectMessage(target, "an admin cleared your last skip — it won't count against you.")
	}
	log.Info().Str("module", "core.engine").Str("target", string(target)).Str("class", class.String()).Msg("skip classification overridden")
}

func (e *Engine) AdminAdd(target domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || e.waitlist.Contains(target) {
		return
	}
	e.waitlist.Append(target)
	e.room.SendRoomMessage(fmt.Sprintf("%s was added to the queue by an admin.", target))
	e.publishQueueLocked()
	e.updateModeLocked()
}

func (e *Engine) AdminRemove(target domain.Identity) {
	snap, snapErr := e.fetchOccupancy()
	if snapErr != nil {
		log.Error().Err(snapErr).Str("module", "core.engine").Msg("occupancy fetch on admin remove")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.waitlist.Contains(target) {
		return
	}
	e.waitlist.Remove(target)
	e.ledger.ClearEviction(target)
	e.ledger.Forget(target)
	if e.releaseReservationLocked(target) && snapErr == nil {
		e.fillOpenSlotsLocked(snap)
	}
	e.room.SendRoomMessage(fmt.Sprintf("%s was removed from the queue by an admin.", target))
	e.publishQueueLocked()
	e.updateModeLocked()
}

// --- helpers ---------------------------------------------------------

func (e *Engine) positionLocked(id domain.Identity) int {
	for i, m := range e.waitlist.Members() {
		if m == id {
			return i + 1
		}
	}
	return 0
}

func (e *Engine) resetStateLocked() {
	e.stopTimersLocked()
	e.waitlist.Clear()
	e.ledger.Reset()
	e.mode.Reset()
	e.locked = false
	e.current = nil
}

func (e *Engine) clearCooldownLocked(id domain.Identity) {
	if t, ok := e.cooldownTimers[id]; ok {
		t.Stop()
		delete(e.cooldownTimers, id)
	}
	e.ledger.ClearCooldown(id)
}
