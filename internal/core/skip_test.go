package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stagedive/deckqueue/internal/domain"
)

func TestWasSkipped(t *testing.T) {
	floor := 15 * time.Second

	assert.True(t, WasSkipped(5*time.Second, floor, 0))
	assert.False(t, WasSkipped(15*time.Second, floor, 0))
	assert.False(t, WasSkipped(3*time.Minute, floor, 0))

	// A known expected duration widens the window to a quarter of it.
	assert.True(t, WasSkipped(30*time.Second, floor, 4*time.Minute))
	assert.False(t, WasSkipped(70*time.Second, floor, 4*time.Minute))

	// A short expected duration never narrows below the floor.
	assert.True(t, WasSkipped(10*time.Second, floor, 20*time.Second))
}

func TestDefaultSkipIntent(t *testing.T) {
	// With an admin in the room, assume the admin moved things along.
	assert.Equal(t, domain.SkipModerator, DefaultSkipIntent(true))
	// Without one, assume a glitch and protect the performer.
	assert.Equal(t, domain.SkipAmbiguous, DefaultSkipIntent(false))
}
