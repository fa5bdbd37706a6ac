// Package metrics holds the process-wide Prometheus instruments. Each
// service registers them on the default registry and serves them at
// /metrics on its RPC listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "rpc_requests_total",
		Help:      "RPC commands handled, by command and outcome kind.",
	}, []string{"command", "outcome"})

	SeatsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "seats_reserved_total",
		Help:      "Seats successfully moved to reserved.",
	})

	ReserveConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "seat_reserve_conflicts_total",
		Help:      "Reservation attempts lost to an optimistic-lock race or unavailable seat.",
	})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "bookings_created_total",
		Help:      "Bookings persisted in pending state.",
	})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "bookings_confirmed_total",
		Help:      "Bookings that reached confirmed.",
	})

	BookingsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "bookings_cancelled_total",
		Help:      "Bookings that reached cancelled, by origin.",
	}, []string{"origin"})

	CompensationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "compensation_failures_total",
		Help:      "Seat releases that failed after a saga step failed; inventory may be stuck until the reaper retries.",
	})

	OutboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "outbox_published_total",
		Help:      "Outbox rows successfully published to the event stream.",
	})

	OutboxFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "outbox_failed_total",
		Help:      "Outbox rows parked as failed after exhausting retries.",
	})

	ReaperCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "reaper_cancelled_total",
		Help:      "Expired pending bookings cancelled by the sweep.",
	})

	ReaperFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ticketing",
		Name:      "reaper_failures_total",
		Help:      "Expired bookings the sweep failed to cancel this pass.",
	})
)
