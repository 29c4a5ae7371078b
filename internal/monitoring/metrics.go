package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	waitlistLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckqueue_waitlist_length",
			Help: "Current number of participants in the waitlist",
		},
	)

	strictMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckqueue_strict_mode",
			Help: "1 while strict mode is active, 0 otherwise",
		},
	)

	evictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckqueue_evictions_total",
			Help: "Deferred evictions executed, by reason",
		},
		[]string{"reason"},
	)

	skips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckqueue_skips_total",
			Help: "Premature performance endings, by classification",
		},
		[]string{"class"},
	)

	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckqueue_reservations_total",
			Help: "Fair-turn reservations, by outcome",
		},
		[]string{"outcome"},
	)

	commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckqueue_commands_total",
			Help: "Chat commands handled, by command and status",
		},
		[]string{"command", "status"},
	)

	roomEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deckqueue_room_events_total",
			Help: "Room platform events received, by type",
		},
		[]string{"type"},
	)

	feedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deckqueue_feed_clients",
			Help: "Connected dashboard feed clients",
		},
	)
)

func SetWaitlistLength(n int) {
	waitlistLength.Set(float64(n))
}

func SetStrictMode(on bool) {
	if on {
		strictMode.Set(1)
	} else {
		strictMode.Set(0)
	}
}

func IncEviction(reason string) {
	evictions.WithLabelValues(reason).Inc()
}

func IncSkip(class string) {
	skips.WithLabelValues(class).Inc()
}

func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

func IncCommand(command, status string) {
	commands.WithLabelValues(command, status).Inc()
}

func IncRoomEvent(eventType string) {
	roomEvents.WithLabelValues(eventType).Inc()
}

func AddFeedClient(delta int) {
	feedClients.Add(float64(delta))
}
