package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/domain"
	"github.com/stagedive/deckqueue/internal/monitoring"
)

// Policy carries the queue knobs from config. Plain data, no behavior.
type Policy struct {
	RoomLabel          string
	SlotCount          int
	StrictThreshold    int
	TurnsPerVisit      int
	Cooldown           time.Duration
	GracePeriod        time.Duration
	ReservationTimeout time.Duration
	MinPerformance     time.Duration
	OccupancyTimeout   time.Duration
}

type performance struct {
	performer domain.Identity
	song      domain.Song
	startedAt time.Time
}

// Engine is the queue/turn state machine. All shared state lives here
// and every public method serializes on one mutex. Methods that need
// the occupancy snapshot fetch it BEFORE taking the lock and
// re-validate afterwards, so the round trip never stalls other events.
type Engine struct {
	mu     sync.Mutex
	policy Policy
	room   RoomActions
	pub    Publisher

	skipIntent SkipIntentPolicy
	now        func() time.Time

	enabled bool
	locked  bool
	admins  map[domain.Identity]struct{}

	waitlist *Waitlist
	ledger   *Ledger
	mode     *ModeController
	grace    *GraceTracker
	resv     *reservation

	cooldownTimers map[domain.Identity]*time.Timer

	// presence is everyone currently in the room, occupants included.
	presence map[domain.Identity]struct{}
	current  *performance
	// lastOccupants caches the most recent snapshot purely for the
	// performance publication shape; it is never consulted for queue
	// decisions.
	lastOccupants []domain.Identity
}

func NewEngine(p Policy, room RoomActions, pub Publisher, admins []domain.Identity) *Engine {
	set := make(map[domain.Identity]struct{}, len(admins))
	for _, a := range admins {
		set[a] = struct{}{}
	}
	return &Engine{
		policy:         p,
		room:           room,
		pub:            pub,
		skipIntent:     DefaultSkipIntent,
		now:            time.Now,
		admins:         set,
		waitlist:       NewWaitlist(),
		ledger:         NewLedger(time.Now),
		mode:           NewModeController(p.StrictThreshold),
		grace:          NewGraceTracker(p.GracePeriod),
		cooldownTimers: make(map[domain.Identity]*time.Timer),
		presence:       make(map[domain.Identity]struct{}),
	}
}

func (e *Engine) IsAdmin(id domain.Identity) bool {
	_, ok := e.admins[id]
	return ok
}

// --- room events -----------------------------------------------------

func (e *Engine) OnRoomEntered(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presence[id] = struct{}{}
	if e.grace.Rejoin(id) {
		log.Info().Str("module", "core.engine").Str("who", string(id)).Msg("reconnect inside grace window")
		e.room.SendDirectMessage(id, "welcome back! you kept your spot in the queue.")
		return
	}
	e.room.SendDirectMessage(id, fmt.Sprintf("welcome to %s! say %s to line up for the deck.", e.policy.RoomLabel, domain.CmdJoinQueue))
}

func (e *Engine) OnRoomLeft(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.presence, id)
	if !e.waitlist.Contains(id) {
		return
	}
	departedAt := e.now()
	e.grace.Depart(id, departedAt, func() { e.graceExpired(id) })
	log.Info().Str("module", "core.engine").Str("who", string(id)).Msg("departure held open for grace window")
}

// graceExpired runs on a timer goroutine after the grace window.
func (e *Engine) graceExpired(id domain.Identity) {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.engine").Msg("occupancy fetch for grace expiry")
		snap = domain.Occupancy{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// The world may have moved on while the timer slept.
	if !e.grace.Expired(id) {
		return
	}
	if _, back := e.presence[id]; back {
		return
	}
	if e.audienceCountLocked(snap) < 1 {
		// Nobody is left to move up anyway. Known soft edge: the
		// removal is abandoned, not retried.
		log.Warn().Str("module", "core.engine").Str("who", string(id)).Msg("room empty, deferred removal abandoned")
		return
	}
	e.waitlist.Remove(id)
	e.ledger.Forget(id)
	if e.releaseReservationLocked(id) {
		e.fillOpenSlotsLocked(snap)
	}
	e.room.SendRoomMessage(fmt.Sprintf("%s left the room and was removed from the queue.", id))
	e.publishQueueLocked()
	e.updateModeLocked()
}

func (e *Engine) OnSlotJoined(id domain.Identity) {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.engine").Msg("occupancy fetch on slot join")
		snap = domain.Occupancy{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.presence[id] = struct{}{}
	e.rememberOccupantsLocked(snap)
	if !e.enabled {
		return
	}
	if e.resv == nil {
		return
	}
	if id == e.resv.holder {
		e.resv.stop()
		e.resv = nil
		monitoring.IncReservation("claimed")
		e.room.SendRoomMessage(fmt.Sprintf("%s took their reserved slot. 🎶", id))
		e.fillOpenSlotsLocked(snap)
		return
	}
	// Queue-cutting, whether by another waitlisted member or an
	// outsider: revert the claim and restate the reservation.
	left := e.resv.remaining(e.now()).Round(time.Second)
	e.room.EvictFromSlot(id)
	e.room.SendRoomMessage(fmt.Sprintf("that slot is reserved for %s (%s left to claim it).", e.resv.holder, left))
	monitoring.IncReservation("reverted")
	log.Info().Str("module", "core.engine").Str("who", string(id)).Str("holder", string(e.resv.holder)).Msg("reverted slot claim")
}

func (e *Engine) OnSlotLeft(id domain.Identity) {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.engine").Msg("occupancy fetch on slot leave")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rememberOccupantsLocked(snap)
	// Off the deck means any deferred eviction is moot.
	e.ledger.ClearEviction(id)
	if !e.enabled {
		return
	}
	e.fillOpenSlotsLocked(snap)
}

func (e *Engine) OnPerformanceStarted(performer domain.Identity, song domain.Song) {
	snap, err := e.fetchOccupancy()
	if err != nil {
		log.Error().Err(err).Str("module", "core.engine").Msg("occupancy fetch on performance start")
		snap = domain.Occupancy{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = &performance{performer: performer, song: song, startedAt: e.now()}
	e.rememberOccupantsLocked(snap)
	e.publishPerformanceLocked()
	log.Info().Str("module", "core.engine").Str("performer", string(performer)).Str("title", song.Title).Msg("performance started")

	if e.enabled && e.mode.Current() == domain.ModeStrict {
		e.reconcileLocked(snap)
	}
}

func (e *Engine) OnPerformanceEnded(performer domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	skipped := false
	if e.current != nil && e.current.performer == performer {
		elapsed := e.now().Sub(e.current.startedAt)
		expected := time.Duration(e.current.song.DurationSec) * time.Second
		skipped = WasSkipped(elapsed, e.policy.MinPerformance, expected)
	}
	e.current = nil
	e.publishPerformanceLocked()

	if !e.enabled {
		return
	}
	e.completeTurnLocked(performer, skipped)
	e.publishQueueLocked()
	e.updateModeLocked()
}

// --- timers ----------------------------------------------------------

func (e *Engine) startCooldownLocked(id domain.Identity) {
	e.ledger.StartCooldown(id, e.policy.Cooldown)
	if t, ok := e.cooldownTimers[id]; ok {
		t.Stop()
	}
	e.cooldownTimers[id] = time.AfterFunc(e.policy.Cooldown, func() { e.cooldownLapsed(id) })
}

// cooldownLapsed only announces expiry; the ledger clears expired
// cooldowns lazily on its own.
func (e *Engine) cooldownLapsed(id domain.Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cooldownTimers, id)
	if _, active := e.ledger.CooldownRemaining(id); active {
		// Restarted while the timer slept; the new timer will speak.
		return
	}
	e.room.SendDirectMessage(id, "your cooldown is over — you may rejoin the queue.")
}

func (e *Engine) stopTimersLocked() {
	if e.resv != nil {
		e.resv.stop()
		e.resv = nil
	}
	for id, t := range e.cooldownTimers {
		t.Stop()
		delete(e.cooldownTimers, id)
	}
	e.grace.Reset()
}

// --- shared helpers --------------------------------------------------

func (e *Engine) fetchOccupancy() (domain.Occupancy, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.policy.OccupancyTimeout)
	defer cancel()
	return e.room.CurrentOccupancy(ctx)
}

func (e *Engine) adminPresentLocked() bool {
	for a := range e.admins {
		if _, ok := e.presence[a]; ok {
			return true
		}
	}
	return false
}

func (e *Engine) audienceCountLocked(snap domain.Occupancy) int {
	n := 0
	for id := range e.presence {
		if !snap.Contains(id) {
			n++
		}
	}
	return n
}

func (e *Engine) rememberOccupantsLocked(snap domain.Occupancy) {
	if len(snap.Slots) == 0 && snap.Performer == "" {
		return
	}
	e.lastOccupants = snap.Ordered()
}

func (e *Engine) updateModeLocked() {
	mode, changed := e.mode.Update(e.waitlist.Size())
	monitoring.SetStrictMode(mode == domain.ModeStrict)
	if !changed {
		return
	}
	switch mode {
	case domain.ModeStrict:
		e.room.SendRoomMessage(fmt.Sprintf(
			"the queue is filling up! one turn per visit from now on, then a %s cooldown.",
			e.policy.Cooldown.Round(time.Minute)))
	case domain.ModeRelaxed:
		e.room.SendRoomMessage("the queue has thinned out — turn limits are off.")
	}
	log.Info().Str("module", "core.engine").Str("mode", mode.String()).Int("size", e.waitlist.Size()).Msg("mode flipped")
}

func (e *Engine) publishQueueLocked() {
	upd := domain.QueueUpdate{Type: domain.UpdateQueue, Locked: e.locked, Members: []string{}}
	if !e.enabled {
		upd.Disabled = true
	} else {
		for _, id := range e.waitlist.Members() {
			upd.Members = append(upd.Members, string(id))
		}
	}
	monitoring.SetWaitlistLength(e.waitlist.Size())
	e.pub.PublishQueue(upd)
}

func (e *Engine) publishPerformanceLocked() {
	upd := domain.PerformanceUpdate{
		Type:      domain.UpdatePerformance,
		RoomLabel: e.policy.RoomLabel,
		Audience:  []string{},
		Occupants: []string{},
	}
	occupied := make(map[domain.Identity]struct{}, len(e.lastOccupants))
	for _, id := range e.lastOccupants {
		upd.Occupants = append(upd.Occupants, string(id))
		occupied[id] = struct{}{}
	}
	for id := range e.presence {
		if _, ok := occupied[id]; !ok {
			upd.Audience = append(upd.Audience, string(id))
		}
	}
	if e.current != nil {
		upd.Title = e.current.song.Title
		upd.Performer = e.current.performer
		upd.StartedAt = e.current.startedAt
	}
	e.pub.PublishPerformance(upd)
}
