// Package metrics collects and exposes Prometheus counters for the
// reservation lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is what the service layer uses to count lifecycle events.
type Recorder interface {
	ReservationCreated()
	CheckedIn()
	Cancelled()
	NoShow()
	ReminderFired()
}

type Collector struct {
	created   prometheus.Counter
	checkedIn prometheus.Counter
	cancelled prometheus.Counter
	noShows   prometheus.Counter
	reminders prometheus.Counter
}

// NewCollector registers the lifecycle counters on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomreserve_reservations_created_total",
			Help: "Reservations admitted by the booking policy.",
		}),
		checkedIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomreserve_checkins_total",
			Help: "Successful check-ins.",
		}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomreserve_cancellations_total",
			Help: "Owner-initiated cancellations.",
		}),
		noShows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomreserve_no_shows_total",
			Help: "Reservations converted to no-show.",
		}),
		reminders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roomreserve_reminders_fired_total",
			Help: "Reminder notifications dispatched.",
		}),
	}
	reg.MustRegister(c.created, c.checkedIn, c.cancelled, c.noShows, c.reminders)
	return c
}

func (c *Collector) ReservationCreated() { c.created.Inc() }
func (c *Collector) CheckedIn()          { c.checkedIn.Inc() }
func (c *Collector) Cancelled()          { c.cancelled.Inc() }
func (c *Collector) NoShow()             { c.noShows.Inc() }
func (c *Collector) ReminderFired()      { c.reminders.Inc() }

type nopRecorder struct{}

func (nopRecorder) ReservationCreated() {}
func (nopRecorder) CheckedIn()          {}
func (nopRecorder) Cancelled()          {}
func (nopRecorder) NoShow()             {}
func (nopRecorder) ReminderFired()      {}

// NewNop returns a Recorder that discards everything. Used in tests.
func NewNop() Recorder { return nopRecorder{} }
