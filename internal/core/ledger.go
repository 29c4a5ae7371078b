package core

import (
	"time"

	"github.com/stagedive/deckqueue/internal/domain"
)

// ledgerEntry consolidates everything tracked per participant. One map,
// one record; no parallel maps to keep in sync.
type ledgerEntry struct {
	turns         int
	cooldownUntil time.Time // zero = not cooling down
	lastSkip      domain.SkipClass
	pendingEvict  bool
	evictReason   domain.EvictReason
}

// Ledger is the per-participant turn bookkeeping. Entries outlive
// waitlist membership while a cooldown runs, so nobody dodges a
// cooldown by leaving and rejoining.
type Ledger struct {
	entries map[domain.Identity]*ledgerEntry
	now     func() time.Time
}

func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		entries: make(map[domain.Identity]*ledgerEntry),
		now:     now,
	}
}

func (l *Ledger) entry(id domain.Identity) *ledgerEntry {
	e, ok := l.entries[id]
	if !ok {
		e = &ledgerEntry{}
		l.entries[id] = e
	}
	return e
}

func (l *Ledger) ResetTurns(id domain.Identity) {
	l.entry(id).turns = 0
}

func (l *Ledger) IncrementTurns(id domain.Identity) int {
	e := l.entry(id)
	e.turns++
	return e.turns
}

func (l *Ledger) Turns(id domain.Identity) int {
	if e, ok := l.entries[id]; ok {
		return e.turns
	}
	return 0
}

func (l *Ledger) StartCooldown(id domain.Identity, d time.Duration) {
	l.entry(id).cooldownUntil = l.now().Add(d)
}

// CooldownRemaining reports how long id must still wait. An expired
// cooldown is cleared as a side effect of the query; no background
// timer is needed to notice expiry, only to announce it.
func (l *Ledger) CooldownRemaining(id domain.Identity) (time.Duration, bool) {
	e, ok := l.entries[id]
	if !ok || e.cooldownUntil.IsZero() {
		return 0, false
	}
	left := e.cooldownUntil.Sub(l.now())
	if left <= 0 {
		e.cooldownUntil = time.Time{}
		l.prune(id)
		return 0, false
	}
	return left, true
}

func (l *Ledger) MarkSkip(id domain.Identity, class domain.SkipClass) {
	l.entry(id).lastSkip = class
}

func (l *Ledger) LastSkip(id domain.Identity) domain.SkipClass {
	if e, ok := l.entries[id]; ok {
		return e.lastSkip
	}
	return domain.SkipNone
}

func (l *Ledger) ScheduleEviction(id domain.Identity, reason domain.EvictReason) {
	e := l.entry(id)
	e.pendingEvict = true
	e.evictReason = reason
}

func (l *Ledger) ClearEviction(id domain.Identity) {
	if e, ok := l.entries[id]; ok {
		e.pendingEvict = false
		e.evictReason = domain.EvictNone
	}
}

func (l *Ledger) PendingEviction(id domain.Identity) (domain.EvictReason, bool) {
	if e, ok := l.entries[id]; ok && e.pendingEvict {
		return e.evictReason, true
	}
	return domain.EvictNone, false
}

// ClearCooldown wipes a single cooldown (admin override).
func (l *Ledger) ClearCooldown(id domain.Identity) {
	if e, ok := l.entries[id]; ok {
		e.cooldownUntil = time.Time{}
		l.prune(id)
	}
}

// ClearCooldowns wipes every running cooldown (admin reset).
func (l *Ledger) ClearCooldowns() {
	for id, e := range l.entries {
		e.cooldownUntil = time.Time{}
		l.prune(id)
	}
}

// Forget drops id's entry unless a cooldown is still running.
// Called when a participant leaves the waitlist for good.
func (l *Ledger) Forget(id domain.Identity) {
	e, ok := l.entries[id]
	if !ok {
		return
	}
	if !e.cooldownUntil.IsZero() && e.cooldownUntil.After(l.now()) {
		// Keep the record so the cooldown survives a rejoin.
		e.turns = 0
		e.pendingEvict = false
		e.evictReason = domain.EvictNone
		return
	}
	delete(l.entries, id)
}

// Reset clears the whole ledger (admin clear, queue disable).
func (l *Ledger) Reset() {
	l.entries = make(map[domain.Identity]*ledgerEntry)
}

// prune removes entries that carry no information anymore.
func (l *Ledger) prune(id domain.Identity) {
	e, ok := l.entries[id]
	if !ok {
		return
	}
	if e.turns == 0 && e.cooldownUntil.IsZero() && !e.pendingEvict && e.lastSkip == domain.SkipNone {
		delete(l.entries, id)
	}
}
