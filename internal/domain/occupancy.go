package domain

// Slot is one physical performance position as the room reports it.
type Slot struct {
	Position int      `json:"position"`
	Occupant Identity `json:"occupant"`
}

// Occupancy is the room's authoritative answer to "who is on the deck
// right now". It is fetched on demand and never stored; the room owns it.
type Occupancy struct {
	Slots     []Slot   `json:"slots"`
	Performer Identity `json:"performer,omitempty"`
}

// Anchor returns the occupant of the lowest-numbered slot, the position
// used as the trigger point for deferred evictions.
func (o Occupancy) Anchor() (Identity, bool) {
	if len(o.Slots) == 0 {
		return "", false
	}
	best := o.Slots[0]
	for _, s := range o.Slots[1:] {
		if s.Position < best.Position {
			best = s
		}
	}
	return best.Occupant, true
}

// Ordered returns occupant identities in slot-position order, anchor
// first.
func (o Occupancy) Ordered() []Identity {
	slots := make([]Slot, len(o.Slots))
	copy(slots, o.Slots)
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j].Position < slots[j-1].Position; j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}
	out := make([]Identity, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Occupant)
	}
	return out
}

// Contains reports whether id currently occupies any slot.
func (o Occupancy) Contains(id Identity) bool {
	for _, s := range o.Slots {
		if s.Occupant == id {
			return true
		}
	}
	return false
}
