// Package scheduler owns the process-local timer registry for reservation
// side effects: the pre-start reminder and the check-in deadline task. Timers
// live only for the lifetime of the process; reservation state in the
// database stays the source of truth and pending timers are rebuilt from it
// on startup.
package scheduler

import (
	"sync"
	"time"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/models"
	"github.com/campuslabs/roomreserve/internal/timeutil"
	"github.com/rs/zerolog"
)

// ReminderLead is how long before the reservation start the reminder fires.
const ReminderLead = 5 * time.Minute

// FireFunc receives the reservation ID of a fired task.
type FireFunc func(reservationID string)

type Scheduler struct {
	clk        clock.Clock
	log        zerolog.Logger
	onReminder FireFunc
	onDeadline FireFunc

	mu        sync.Mutex
	reminders map[string]*time.Timer
	deadlines map[string]*time.Timer
}

func New(clk clock.Clock, log zerolog.Logger, onReminder, onDeadline FireFunc) *Scheduler {
	return &Scheduler{
		clk:        clk,
		log:        log,
		onReminder: onReminder,
		onDeadline: onDeadline,
		reminders:  make(map[string]*time.Timer),
		deadlines:  make(map[string]*time.Timer),
	}
}

// ScheduleReminder registers a one-shot reminder at start − 5 minutes,
// replacing any pending reminder for the same reservation. A reminder time
// already in the past fires immediately.
func (s *Scheduler) ScheduleReminder(r *models.Reservation) {
	startAt, err := timeutil.At(r.Date, r.StartTime)
	if err != nil {
		s.log.Warn().Err(err).Str("reservation_id", r.ID).Msg("cannot schedule reminder")
		return
	}
	s.schedule(s.reminders, r.ID, startAt.Add(-ReminderLead), s.onReminder)
}

// ScheduleDeadline registers the no-show conversion task at the reservation's
// check-in deadline, replacing any pending task for the same reservation.
func (s *Scheduler) ScheduleDeadline(r *models.Reservation) {
	s.schedule(s.deadlines, r.ID, r.CheckInDeadline, s.onDeadline)
}

func (s *Scheduler) schedule(timers map[string]*time.Timer, id string, at time.Time, fire FireFunc) {
	s.mu.Lock()
	if t, ok := timers[id]; ok {
		t.Stop()
		delete(timers, id)
	}
	delay := at.Sub(s.clk.Now())
	if delay <= 0 {
		s.mu.Unlock()
		fire(id)
		return
	}
	var tm *time.Timer
	tm = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// Only evict our own entry: a re-schedule may have replaced it while
		// this callback was waiting on the lock.
		if timers[id] == tm {
			delete(timers, id)
		}
		s.mu.Unlock()
		fire(id)
	})
	timers[id] = tm
	s.mu.Unlock()
}

// CancelReminder stops a pending reminder. Unknown or already-fired IDs are a
// no-op.
func (s *Scheduler) CancelReminder(reservationID string) {
	s.cancel(s.reminders, reservationID)
}

// CancelDeadline stops a pending deadline task.
func (s *Scheduler) CancelDeadline(reservationID string) {
	s.cancel(s.deadlines, reservationID)
}

// Cancel stops both pending tasks for the reservation.
func (s *Scheduler) Cancel(reservationID string) {
	s.CancelReminder(reservationID)
	s.CancelDeadline(reservationID)
}

func (s *Scheduler) cancel(timers map[string]*time.Timer, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := timers[id]; ok {
		t.Stop()
		delete(timers, id)
	}
}

// ReminderPending reports whether a reminder timer is registered for the
// reservation.
func (s *Scheduler) ReminderPending(reservationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reminders[reservationID]
	return ok
}

// DeadlinePending reports whether a deadline timer is registered for the
// reservation.
func (s *Scheduler) DeadlinePending(reservationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.deadlines[reservationID]
	return ok
}

// Stop cancels every pending timer. Used on shutdown and in tests.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.reminders {
		t.Stop()
		delete(s.reminders, id)
	}
	for id, t := range s.deadlines {
		t.Stop()
		delete(s.deadlines, id)
	}
}
