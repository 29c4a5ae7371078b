// Package domain contains entity types without logic, just meta-data.
package domain

import (
	"errors"
	"unicode/utf8"
)

const MaxIdentityLen = 36

var ErrIdentityEmpty = errors.New("identity empty")

// Identity is the room-assigned display name of a participant.
// Unique within the room at any instant, but not globally stable:
// a name can be reused after its owner leaves.
type Identity string

// NewIdentity is a tiny helper to avoid ad-hoc casts in adapters.
func NewIdentity(raw string) (Identity, error) {
	if len(raw) == 0 {
		return "", ErrIdentityEmpty
	}
	if len(raw) > MaxIdentityLen {
		// Truncate on a rune boundary so a multi-byte name stays
		// valid UTF-8.
		cut := MaxIdentityLen
		for cut > 0 && !utf8.RuneStart(raw[cut]) {
			cut--
		}
		raw = raw[:cut]
	}
	return Identity(raw), nil
}

// Song is the metadata the room reports with a performance.
type Song struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	// Expected length, in seconds. Zero when the room does not report one.
	DurationSec int `json:"duration_sec,omitempty"`
}
