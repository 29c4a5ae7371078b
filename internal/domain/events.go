package domain

// Room events, as decoded from the platform feed. One concrete type per
// event; the dispatcher type-switches over Event.

type Event interface{ event() }

type SlotJoined struct{ Who Identity }

type SlotLeft struct{ Who Identity }

type PerformanceStarted struct {
	Performer Identity
	Song      Song
}

type PerformanceEnded struct{ Performer Identity }

type RoomEntered struct{ Who Identity }

type RoomLeft struct{ Who Identity }

// ChatIntent is a chat line already parsed upstream into a symbolic
// command plus optional argument.
type ChatIntent struct {
	Command Command
	Issuer  Identity
	Arg     string
}

func (SlotJoined) event()         {}
func (SlotLeft) event()           {}
func (PerformanceStarted) event() {}
func (PerformanceEnded) event()   {}
func (RoomEntered) event()        {}
func (RoomLeft) event()           {}
func (ChatIntent) event()         {}

// Command is a recognized chat intent. Case-sensitive; parsing happens
// outside this system.
type Command string

const (
	CmdViewQueue  Command = "view-queue"
	CmdJoinQueue  Command = "join-queue"
	CmdLeaveQueue Command = "leave-queue"
	CmdStatus     Command = "show-status"
	CmdHelp       Command = "show-help"

	CmdEnable         Command = "enable-queue"
	CmdDisable        Command = "disable-queue"
	CmdToggleLock     Command = "toggle-lock"
	CmdClearQueue     Command = "clear-queue"
	CmdSyncQueue      Command = "sync-queue-from-occupancy"
	CmdResetCooldowns Command = "reset-all-cooldowns"
	CmdShutDown       Command = "shut-down"
	CmdOverrideSkip   Command = "override-skip-classification"
	CmdAdminAdd       Command = "admin-add"
	CmdAdminRemove    Command = "admin-remove"
)

// AdminOnly reports whether a command requires an allow-listed issuer.
func (c Command) AdminOnly() bool {
	switch c {
	case CmdEnable, CmdDisable, CmdToggleLock, CmdClearQueue, CmdSyncQueue,
		CmdResetCooldowns, CmdShutDown, CmdOverrideSkip, CmdAdminAdd, CmdAdminRemove:
		return true
	}
	return false
}
