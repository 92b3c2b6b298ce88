// Package metrics exposes the Prometheus collectors for availability lookups,
// booking creation, and the reminder scheduler. They are registered on the
// default registry and served by promhttp at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AvailabilityRequests counts availability computations by cache outcome
	// (hit, miss, bypass).
	AvailabilityRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_availability_requests_total",
			Help: "Availability lookups by cache outcome",
		},
		[]string{"cache"},
	)

	AvailabilityDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barbershop_availability_duration_seconds",
			Help:    "Time spent computing availability",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_bookings_created_total",
			Help: "Booking creation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RemindersDispatched counts reminder attempts by channel and status
	// (sent, failed).
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_reminders_dispatched_total",
			Help: "Reminder dispatch attempts by channel and status",
		},
		[]string{"type", "status"},
	)

	ReminderCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_reminder_cycles_total",
			Help: "Reminder check cycles by result",
		},
		[]string{"result"},
	)

	ReminderCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "barbershop_reminder_cycle_duration_seconds",
			Help:    "Duration of a reminder check cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "barbershop_reminder_scheduler_running",
			Help: "1 while the reminder scheduler loop is running",
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "barbershop_notify_breaker_state",
			Help: "Circuit breaker state per notification provider",
		},
		[]string{"name"},
	)

	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barbershop_notify_breaker_rejections_total",
			Help: "Sends rejected while a provider breaker was open",
		},
		[]string{"name"},
	)
)

func RecordAvailability(cacheOutcome string, d time.Duration) {
	AvailabilityRequests.WithLabelValues(cacheOutcome).Inc()
	AvailabilityDuration.Observe(d.Seconds())
}

func RecordBooking(outcome string) {
	BookingsCreated.WithLabelValues(outcome).Inc()
}

func RecordReminder(channel, status string) {
	RemindersDispatched.WithLabelValues(channel, status).Inc()
}

func RecordCycle(result string, d time.Duration) {
	ReminderCycles.WithLabelValues(result).Inc()
	ReminderCycleDuration.Observe(d.Seconds())
}

func SetSchedulerRunning(running bool) {
	if running {
		SchedulerRunning.Set(1)
		return
	}
	SchedulerRunning.Set(0)
}

func SetBreakerState(name string, state float64) {
	BreakerState.WithLabelValues(name).Set(state)
}

func RecordBreakerRejection(name string) {
	BreakerRejections.WithLabelValues(name).Inc()
}
