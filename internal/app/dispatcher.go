// Package app wires the room event feed into the queue engine: one
// cooperative loop, events handled strictly in arrival order.
package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/stagedive/deckqueue/internal/core"
	"github.com/stagedive/deckqueue/internal/domain"
	"github.com/stagedive/deckqueue/internal/monitoring"
)

type Dispatcher struct {
	Engine *core.Engine
	Room   core.RoomActions
	Events <-chan domain.Event
	// Shutdown tears the process down; bound to the admin shut-down
	// command.
	Shutdown context.CancelFunc
}

// Run drains the event channel until the context ends. Single
// goroutine; this is the serialization point the engine relies on for
// arrival ordering.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.dispatcher").Msg("dispatcher stopped")
			return
		case ev, ok := <-d.Events:
			if !ok {
				log.Warn().Str("module", "app.dispatcher").Msg("event feed closed")
				return
			}
			d.dispatch(ev)
		}
	}
}

// dispatch contains each event in its own failure boundary so one bad
// event cannot take the loop down with it.
func (d *Dispatcher) dispatch(ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "app.dispatcher").Any("panic", r).Msg("event handler panicked")
		}
	}()

	switch ev := ev.(type) {
	case domain.SlotJoined:
		monitoring.IncRoomEvent("slot_joined")
		d.Engine.OnSlotJoined(ev.Who)
	case domain.SlotLeft:
		monitoring.IncRoomEvent("slot_left")
		d.Engine.OnSlotLeft(ev.Who)
	case domain.PerformanceStarted:
		monitoring.IncRoomEvent("performance_started")
		d.Engine.OnPerformanceStarted(ev.Performer, ev.Song)
	case domain.PerformanceEnded:
		monitoring.IncRoomEvent("performance_ended")
		d.Engine.OnPerformanceEnded(ev.Performer)
	case domain.RoomEntered:
		monitoring.IncRoomEvent("room_entered")
		d.Engine.OnRoomEntered(ev.Who)
	case domain.RoomLeft:
		monitoring.IncRoomEvent("room_left")
		d.Engine.OnRoomLeft(ev.Who)
	case domain.ChatIntent:
		monitoring.IncRoomEvent("chat_intent")
		d.handleIntent(ev)
	default:
		log.Warn().Str("module", "app.dispatcher").Msg("unknown event type")
	}
}

func (d *Dispatcher) handleIntent(in domain.ChatIntent) {
	if in.Command.AdminOnly() && !d.Engine.IsAdmin(in.Issuer) {
		monitoring.IncCommand(string(in.Command), "unauthorized")
		d.Room.SendDirectMessage(in.Issuer, "sorry, that command is admin-only.")
		log.Warn().Str("module", "app.dispatcher").Str("who", string(in.Issuer)).Str("command", string(in.Command)).Msg("unauthorized admin command")
		return
	}

	switch in.Command {
	case domain.CmdViewQueue:
		d.Engine.ViewQueue(in.Issuer)
	case domain.CmdJoinQueue:
		d.Engine.JoinQueue(in.Issuer)
	case domain.CmdLeaveQueue:
		d.Engine.LeaveQueue(in.Issuer)
	case domain.CmdStatus:
		d.Engine.Status(in.Issuer)
	case domain.CmdHelp:
		d.Engine.Help(in.Issuer)

	case domain.CmdEnable:
		d.Engine.Enable()
	case domain.CmdDisable:
		d.Engine.Disable()
	case domain.CmdToggleLock:
		d.Engine.ToggleLock()
	case domain.CmdClearQueue:
		d.Engine.ClearQueue()
	case domain.CmdSyncQueue:
		d.Engine.SyncFromOccupancy()
	case domain.CmdResetCooldowns:
		d.Engine.ResetCooldowns()
	case domain.CmdShutDown:
		log.Info().Str("module", "app.dispatcher").Str("who", string(in.Issuer)).Msg("shutdown requested")
		if d.Shutdown != nil {
			d.Shutdown()
		}
	case domain.CmdOverrideSkip:
		d.overrideSkip(in)
	case domain.CmdAdminAdd:
		if target, ok := d.requireTarget(in); ok {
			d.Engine.AdminAdd(target)
		}
	case domain.CmdAdminRemove:
		if target, ok := d.requireTarget(in); ok {
			d.Engine.AdminRemove(target)
		}

	default:
		monitoring.IncCommand(string(in.Command), "unknown")
		log.Warn().Str("module", "app.dispatcher").Str("command", string(in.Command)).Msg("unknown command")
		return
	}
	monitoring.IncCommand(string(in.Command), "ok")
}

// overrideSkip expects "<target> <self|moderator|forced>".
func (d *Dispatcher) overrideSkip(in domain.ChatIntent) {
	fields := strings.Fields(in.Arg)
	if len(fields) != 2 {
		monitoring.IncCommand(string(in.Command), "bad_usage")
		d.Room.SendDirectMessage(in.Issuer, "usage: override-skip-classification <name> <self|moderator|forced>")
		return
	}
	target, err := domain.NewIdentity(fields[0])
	if err != nil {
		d.Room.SendDirectMessage(in.Issuer, "I don't know who that is.")
		return
	}
	class, err := domain.ParseSkipClass(fields[1])
	if err != nil {
		d.Room.SendDirectMessage(in.Issuer, "usage: override-skip-classification <name> <self|moderator|forced>")
		return
	}
	d.Engine.OverrideSkip(target, class)
}

func (d *Dispatcher) requireTarget(in domain.ChatIntent) (domain.Identity, bool) {
	target, err := domain.NewIdentity(strings.TrimSpace(in.Arg))
	if err != nil {
		monitoring.IncCommand(string(in.Command), "bad_usage")
		d.Room.SendDirectMessage(in.Issuer, "that command needs a name, e.g. admin-add <name>.")
		return "", false
	}
	return target, true
}
