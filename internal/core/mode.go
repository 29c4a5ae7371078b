package core

import "github.com/stagedive/deckqueue/internal/domain"

// ComputeMode is the pure policy function: strict iff the waitlist has
// reached the threshold.
func ComputeMode(waitlistSize, threshold int) domain.Mode {
	if threshold > 0 && waitlistSize >= threshold {
		return domain.ModeStrict
	}
	return domain.ModeRelaxed
}

// ModeController tracks the current mode and reports flips exactly once.
type ModeController struct {
	threshold int
	current   domain.Mode
}

func NewModeController(threshold int) *ModeController {
	return &ModeController{threshold: threshold, current: domain.ModeRelaxed}
}

func (m *ModeController) Current() domain.Mode {
	return m.current
}

// Update recomputes the mode for the given waitlist size. The changed
// flag is true only when the mode actually flipped, so a caller can
// announce each transition exactly once. Idempotent for a stable size.
func (m *ModeController) Update(waitlistSize int) (mode domain.Mode, changed bool) {
	next := ComputeMode(waitlistSize, m.threshold)
	if next == m.current {
		return m.current, false
	}
	m.current = next
	return m.current, true
}

// Reset forces relaxed without reporting a flip. Used on queue enable.
func (m *ModeController) Reset() {
	m.current = domain.ModeRelaxed
}
