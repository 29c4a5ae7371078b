package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stagedive/deckqueue/internal/domain"
)

func TestComputeMode(t *testing.T) {
	cases := []struct {
		name      string
		size      int
		threshold int
		want      domain.Mode
	}{
		{"empty", 0, 6, domain.ModeRelaxed},
		{"below threshold", 5, 6, domain.ModeRelaxed},
		{"at threshold", 6, 6, domain.ModeStrict},
		{"above threshold", 9, 6, domain.ModeStrict},
		{"zero threshold disables strict", 100, 0, domain.ModeRelaxed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ComputeMode(tc.size, tc.threshold))
		})
	}
}

func TestModeController_FlipReportedOnce(t *testing.T) {
	m := NewModeController(6)
	assert.Equal(t, domain.ModeRelaxed, m.Current())

	for size := 1; size <= 5; size++ {
		_, changed := m.Update(size)
		assert.False(t, changed, "size %d should not flip", size)
	}

	mode, changed := m.Update(6)
	assert.True(t, changed)
	assert.Equal(t, domain.ModeStrict, mode)

	// Idempotent: same size, no further report.
	_, changed = m.Update(6)
	assert.False(t, changed)
	_, changed = m.Update(7)
	assert.False(t, changed)

	mode, changed = m.Update(5)
	assert.True(t, changed)
	assert.Equal(t, domain.ModeRelaxed, mode)
}
