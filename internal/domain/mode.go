package domain

// Mode is the queue policy state, derived from waitlist size.
type Mode int

const (
	// ModeRelaxed places no limit on consecutive turns.
	ModeRelaxed Mode = iota
	// ModeStrict limits each participant to a fixed number of turns
	// per visit, followed by a mandatory cooldown.
	ModeStrict
)

func (m Mode) String() string {
	switch m {
	case ModeRelaxed:
		return "relaxed"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}
