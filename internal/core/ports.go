package core

import (
	"context"

	"github.com/stagedive/deckqueue/internal/domain"
)

// RoomActions is the outbound contract with the room platform.
// Owned by the adapter; the adapter must keep sends non-blocking so
// the engine can fire them while holding its lock. CurrentOccupancy is
// a round trip and must only be called with the lock released.
type RoomActions interface {
	CurrentOccupancy(ctx context.Context) (domain.Occupancy, error)
	EvictFromSlot(id domain.Identity)
	SendRoomMessage(text string)
	SendDirectMessage(id domain.Identity, text string)
}

// Publisher fans state changes out to the notification/dashboard
// collaborator. Fire-and-forget: delivery failures never roll back a
// committed state change.
type Publisher interface {
	PublishQueue(domain.QueueUpdate)
	PublishPerformance(domain.PerformanceUpdate)
}
