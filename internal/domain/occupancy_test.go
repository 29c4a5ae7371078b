package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccupancy_AnchorAndOrder(t *testing.T) {
	snap := Occupancy{Slots: []Slot{
		{Position: 3, Occupant: "carol"},
		{Position: 1, Occupant: "alice"},
		{Position: 2, Occupant: "bob"},
	}}

	anchor, ok := snap.Anchor()
	require.True(t, ok)
	assert.Equal(t, Identity("alice"), anchor)
	assert.Equal(t, []Identity{"alice", "bob", "carol"}, snap.Ordered())
	assert.True(t, snap.Contains("bob"))
	assert.False(t, snap.Contains("dave"))
}

func TestOccupancy_Empty(t *testing.T) {
	var snap Occupancy
	_, ok := snap.Anchor()
	assert.False(t, ok)
	assert.Empty(t, snap.Ordered())
}

func TestNewIdentity(t *testing.T) {
	_, err := NewIdentity("")
	assert.ErrorIs(t, err, ErrIdentityEmpty)

	id, err := NewIdentity("alice")
	require.NoError(t, err)
	assert.Equal(t, Identity("alice"), id)

	long, err := NewIdentity("0123456789012345678901234567890123456789")
	require.NoError(t, err)
	assert.Len(t, string(long), MaxIdentityLen)

	// Truncation never splits a multi-byte rune.
	mixed, err := NewIdentity(strings.Repeat("a", MaxIdentityLen-1) + "é")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(string(mixed)))
	assert.Len(t, string(mixed), MaxIdentityLen-1)

	runes, err := NewIdentity(strings.Repeat("é", MaxIdentityLen))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(string(runes)))
	assert.Equal(t, MaxIdentityLen, len(string(runes)))
}

func TestParseSkipClass(t *testing.T) {
	cases := map[string]SkipClass{
		"self":      SkipSelf,
		"moderator": SkipModerator,
		"mod":       SkipModerator,
		"forced":    SkipForced,
		"force":     SkipForced,
	}
	for raw, want := range cases {
		got, err := ParseSkipClass(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseSkipClass("banana")
	assert.ErrorIs(t, err, ErrUnknownSkipClass)
}
