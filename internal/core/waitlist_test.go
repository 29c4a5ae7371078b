package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stagedive/deckqueue/internal/domain"
)

func TestWaitlist_NoDuplicates(t *testing.T) {
	w := NewWaitlist()
	w.Append("alice")
	w.Append("alice")
	w.Append("alice")

	assert.Equal(t, 1, w.Size())
	assert.Equal(t, []domain.Identity{"alice"}, w.Members())
}

func TestWaitlist_OrderEncodesPriority(t *testing.T) {
	w := NewWaitlist()
	w.Append("alice")
	w.Append("bob")
	w.Append("carol")

	head, ok := w.Head()
	assert.True(t, ok)
	assert.Equal(t, domain.Identity("alice"), head)
	assert.Equal(t, []domain.Identity{"alice", "bob", "carol"}, w.Members())
}

func TestWaitlist_RemoveAbsentIsNoOp(t *testing.T) {
	w := NewWaitlist()
	w.Append("alice")
	w.Remove("ghost")

	assert.Equal(t, []domain.Identity{"alice"}, w.Members())
}

func TestWaitlist_RotateToBack(t *testing.T) {
	w := NewWaitlist()
	w.Append("alice")
	w.Append("bob")
	w.Append("carol")

	w.RotateToBack("alice")
	assert.Equal(t, []domain.Identity{"bob", "carol", "alice"}, w.Members())

	// Rotating an absent identity appends it: whoever performs moves
	// behind everyone who has not.
	w.RotateToBack("dave")
	assert.Equal(t, []domain.Identity{"bob", "carol", "alice", "dave"}, w.Members())
}

func TestWaitlist_ClearAndReplace(t *testing.T) {
	w := NewWaitlist()
	w.Append("alice")
	w.Append("bob")

	w.Clear()
	assert.Equal(t, 0, w.Size())
	_, ok := w.Head()
	assert.False(t, ok)

	w.Replace([]domain.Identity{"carol", "dave", "carol"})
	assert.Equal(t, []domain.Identity{"carol", "dave"}, w.Members())
}
