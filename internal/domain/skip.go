package domain

import "errors"

var ErrUnknownSkipClass = errors.New("unknown skip class")

// SkipClass is the assumed intent behind a prematurely ended performance.
type SkipClass int

const (
	SkipNone SkipClass = iota
	// SkipSelf: the performer cut their own turn short.
	SkipSelf
	// SkipModerator: an administrator ended the turn deliberately.
	SkipModerator
	// SkipAmbiguous: nobody plausibly initiated it; likely a glitch.
	SkipAmbiguous
	// SkipForced: an administrator ended the turn against the
	// performer's will; the performer is held blameless.
	SkipForced
)

func (s SkipClass) String() string {
	switch s {
	case SkipNone:
		return "none"
	case SkipSelf:
		return "self"
	case SkipModerator:
		return "moderator"
	case SkipAmbiguous:
		return "ambiguous"
	case SkipForced:
		return "forced"
	default:
		return "unknown"
	}
}

// ParseSkipClass maps an admin override argument to a class.
func ParseSkipClass(raw string) (SkipClass, error) {
	switch raw {
	case "self":
		return SkipSelf, nil
	case "moderator", "mod":
		return SkipModerator, nil
	case "forced", "force":
		return SkipForced, nil
	default:
		return SkipNone, ErrUnknownSkipClass
	}
}

// EvictReason tags a scheduled eviction so announcements and metrics
// can tell a completed turn from a penalty.
type EvictReason int

const (
	EvictNone EvictReason = iota
	EvictTurnComplete
	EvictSelfSkip
	EvictModeratorSkip
	EvictAdminOverride
)

func (r EvictReason) String() string {
	switch r {
	case EvictNone:
		return "none"
	case EvictTurnComplete:
		return "turn_complete"
	case EvictSelfSkip:
		return "self_skip"
	case EvictModeratorSkip:
		return "moderator_skip"
	case EvictAdminOverride:
		return "admin_override"
	default:
		return "unknown"
	}
}
