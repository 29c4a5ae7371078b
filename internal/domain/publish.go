package domain

import "time"

// Publication shapes sent to the notification/dashboard collaborator.
// Emitted on every change to the published state, never on a poll.

// QueueUpdate mirrors the waitlist. When Disabled is set, Members is
// empty and the dashboard shows the queue as off.
type QueueUpdate struct {
	Type     string   `json:"type"`
	Members  []string `json:"members"`
	Locked   bool     `json:"locked"`
	Disabled bool     `json:"disabled,omitempty"`
}

// PerformanceUpdate mirrors the active performance. A zero Performer
// means nothing is playing.
type PerformanceUpdate struct {
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	Performer Identity  `json:"performer,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	RoomLabel string    `json:"room_label"`
	Audience  []string  `json:"audience"`
	Occupants []string  `json:"occupants"`
}

const (
	UpdateQueue       = "queue_changed"
	UpdatePerformance = "performance_changed"
)
