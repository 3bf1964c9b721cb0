package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/dto"
	"github.com/campuslabs/roomreserve/internal/metrics"
	"github.com/campuslabs/roomreserve/internal/models"
	"github.com/campuslabs/roomreserve/internal/notifier"
	"github.com/campuslabs/roomreserve/internal/repository"
	"github.com/campuslabs/roomreserve/internal/scheduler"
	"github.com/campuslabs/roomreserve/internal/timeutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	// LeadTime is the minimum interval between booking and reservation start.
	LeadTime = 30 * time.Minute
	// CheckInWindow opens this long before the reservation start.
	CheckInWindow = 15 * time.Minute
	// CheckInGrace is how long after start the check-in deadline sits.
	CheckInGrace = 15 * time.Minute
	// DailyLimit caps active reservations per user per date.
	DailyLimit = 1
)

type ReservationService interface {
	Create(ctx context.Context, userID string, req dto.CreateReservationRequest) (*models.Reservation, error)
	CheckIn(ctx context.Context, reservationID, actorID string) (*models.Reservation, error)
	Cancel(ctx context.Context, reservationID, actorID string) error
	Get(ctx context.Context, id string) (*models.Reservation, error)
	ListByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	ListByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Reservation, error)
	ListAll(ctx context.Context) ([]models.Reservation, error)
	HardDelete(ctx context.Context, id string) error
	Resend(ctx context.Context, id string) error
	RestoreTimers(ctx context.Context) error
	Shutdown()
}

type reservationService struct {
	resRepo  repository.ReservationRepository
	roomRepo repository.RoomRepository
	notif    notifier.Notifier
	clk      clock.Clock
	rec      metrics.Recorder
	log      zerolog.Logger
	sched    *scheduler.Scheduler
}

func NewReservationService(
	resRepo repository.ReservationRepository,
	roomRepo repository.RoomRepository,
	notif notifier.Notifier,
	clk clock.Clock,
	rec metrics.Recorder,
	log zerolog.Logger,
) ReservationService {
	s := &reservationService{
		resRepo:  resRepo,
		roomRepo: roomRepo,
		notif:    notif,
		clk:      clk,
		rec:      rec,
		log:      log,
	}
	s.sched = scheduler.New(clk, log, s.reminderDue, s.deadlineElapsed)
	return s
}

// Create admits a booking request. Checks run in order and short-circuit:
// format validation, lead time, daily cap, slot conflict. The cap and
// conflict checks share a transaction with the insert, serialized per room by
// a row lock, so two racing requests for overlapping slots cannot both pass.
func (s *reservationService) Create(ctx context.Context, userID string, req dto.CreateReservationRequest) (*models.Reservation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	startAt, err := timeutil.At(req.Date, req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	now := s.clk.Now()
	if startAt.Before(now.Add(LeadTime)) {
		return nil, ErrLeadTime
	}

	reservation := &models.Reservation{
		ID:              uuid.NewString(),
		UserID:          userID,
		RoomID:          req.RoomID,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Purpose:         req.Purpose,
		Status:          models.StatusConfirmed,
		CheckInDeadline: startAt.Add(CheckInGrace),
	}

	err = s.resRepo.Transaction(ctx, func(tx *gorm.DB) error {
		// Lock the room row, serializing concurrent admissions for this room
		room, err := s.roomRepo.FindByIDForUpdate(ctx, tx, req.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return err
		}
		if !room.IsActive {
			return ErrRoomNotFound
		}

		active, err := s.resRepo.CountActiveByUserAndDate(ctx, tx, userID, req.Date)
		if err != nil {
			return err
		}
		if active >= DailyLimit {
			return ErrDailyLimit
		}

		overlapping, err := s.resRepo.CountOverlapping(ctx, tx, req.RoomID, req.Date, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrSlotConflict
		}

		return s.resRepo.Create(ctx, tx, reservation)
	})
	if err != nil {
		// Two admissions by the same user for the same date lock different
		// room rows, so the cap count cannot see the racing insert. The
		// partial unique index rejects the loser; report it as the cap.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDailyLimit
		}
		return nil, err
	}

	s.rec.ReservationCreated()

	// Notification and timers are best-effort and never unwind the admission.
	details, err := s.resRepo.FindByIDWithDetails(ctx, reservation.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservation.ID).Msg("cannot load details for confirmation")
		details = reservation
	}
	if err := s.notif.SendConfirmation(ctx, details); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservation.ID).Msg("failed to send confirmation")
	}
	s.sched.ScheduleReminder(reservation)
	s.sched.ScheduleDeadline(reservation)

	s.log.Info().
		Str("reservation_id", reservation.ID).
		Str("room_id", reservation.RoomID).
		Str("date", reservation.Date).
		Str("slot", reservation.StartTime+"-"+reservation.EndTime).
		Msg("reservation confirmed")

	return details, nil
}

func validateRequest(req dto.CreateReservationRequest) error {
	if !timeutil.ValidDate(req.Date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if !timeutil.ValidClock(req.StartTime) || !timeutil.ValidClock(req.EndTime) {
		return fmt.Errorf("%w: times must be HH:MM", ErrValidation)
	}
	// HH:MM strings order lexicographically in time order
	if req.StartTime >= req.EndTime {
		return fmt.Errorf("%w: start time must be before end time", ErrValidation)
	}
	return nil
}

// CheckIn transitions confirmed → checked_in inside the window
// [start − 15min, deadline]. An attempt after the deadline converts the
// reservation to a no-show as a side effect and reports ErrDeadlinePassed.
func (s *reservationService) CheckIn(ctx context.Context, reservationID, actorID string) (*models.Reservation, error) {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != actorID {
		return nil, ErrForbidden
	}
	if reservation.Status != models.StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	startAt, err := timeutil.At(reservation.Date, reservation.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	now := s.clk.Now()
	if now.Before(startAt.Add(-CheckInWindow)) {
		return nil, ErrCheckInNotOpen
	}
	if now.After(reservation.CheckInDeadline) {
		if err := s.markNoShow(ctx, reservationID); err != nil {
			return nil, err
		}
		return nil, ErrDeadlinePassed
	}

	// Conditional on still being confirmed: the deadline task may have
	// converted the reservation to no_show between the load above and here.
	moved, err := s.resRepo.UpdateStatusIf(ctx, reservationID, models.StatusConfirmed, models.StatusCheckedIn, &now)
	if err != nil {
		return nil, err
	}
	if !moved {
		current, err := s.load(ctx, reservationID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusNoShow {
			return nil, ErrDeadlinePassed
		}
		return nil, ErrInvalidTransition
	}
	s.sched.Cancel(reservationID)
	s.rec.CheckedIn()

	reservation.Status = models.StatusCheckedIn
	reservation.CheckedInAt = &now
	s.log.Info().Str("reservation_id", reservationID).Msg("checked in")
	return reservation, nil
}

// Cancel transitions pending/confirmed → cancelled. Checked-in and terminal
// reservations cannot be cancelled.
func (s *reservationService) Cancel(ctx context.Context, reservationID, actorID string) error {
	reservation, err := s.load(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation.UserID != actorID {
		return ErrForbidden
	}
	switch reservation.Status {
	case models.StatusPending, models.StatusConfirmed:
	default:
		return ErrInvalidTransition
	}

	// Conditional on the status seen at load, so a concurrent no-show
	// conversion leaves the row untouched and fails this cancel cleanly.
	moved, err := s.resRepo.UpdateStatusIf(ctx, reservationID, reservation.Status, models.StatusCancelled, nil)
	if err != nil {
		return err
	}
	if !moved {
		return ErrInvalidTransition
	}
	s.sched.Cancel(reservationID)
	s.rec.Cancelled()
	s.log.Info().Str("reservation_id", reservationID).Msg("reservation cancelled")
	return nil
}

func (s *reservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.resRepo.FindByIDWithDetails(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return reservation, nil
}

func (s *reservationService) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.resRepo.FindByUser(ctx, userID)
}

func (s *reservationService) ListByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Reservation, error) {
	if !timeutil.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return s.resRepo.FindByRoomAndDate(ctx, roomID, date)
}

func (s *reservationService) ListAll(ctx context.Context) ([]models.Reservation, error) {
	return s.resRepo.FindAllWithDetails(ctx)
}

// HardDelete removes the row entirely. This is the admin escape hatch, not
// part of the normal lifecycle; cancellation is the user-facing path.
func (s *reservationService) HardDelete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	s.sched.Cancel(id)
	return s.resRepo.Delete(ctx, id)
}

// Resend re-sends the confirmation and re-schedules the reminder.
func (s *reservationService) Resend(ctx context.Context, id string) error {
	details, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.notif.SendConfirmation(ctx, details); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", id).Msg("failed to resend confirmation")
	}
	s.sched.ScheduleReminder(details)
	return nil
}

// RestoreTimers rebuilds reminder and deadline tasks for confirmed
// reservations whose deadline is still ahead. Called once at startup, since
// timers do not survive a restart.
func (s *reservationService) RestoreTimers(ctx context.Context) error {
	pending, err := s.resRepo.FindConfirmedWithDeadlineAfter(ctx, s.clk.Now())
	if err != nil {
		return fmt.Errorf("restore timers: %w", err)
	}
	for i := range pending {
		r := &pending[i]
		s.sched.ScheduleReminder(r)
		s.sched.ScheduleDeadline(r)
	}
	if len(pending) > 0 {
		s.log.Info().Int("count", len(pending)).Msg("restored reservation timers")
	}
	return nil
}

func (s *reservationService) Shutdown() {
	s.sched.Stop()
}

func (s *reservationService) load(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.resRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return reservation, nil
}

// markNoShow converts confirmed → no_show. The conditional update makes it
// idempotent: a reservation that already left the confirmed state is
// untouched.
func (s *reservationService) markNoShow(ctx context.Context, reservationID string) error {
	converted, err := s.resRepo.UpdateStatusIf(ctx, reservationID, models.StatusConfirmed, models.StatusNoShow, nil)
	if err != nil {
		return err
	}
	if converted {
		s.sched.Cancel(reservationID)
		s.rec.NoShow()
		s.log.Info().Str("reservation_id", reservationID).Msg("reservation marked as no-show")
	}
	return nil
}

// reminderDue is the scheduler callback for the pre-start reminder.
func (s *reservationService) reminderDue(reservationID string) {
	ctx := context.Background()
	details, err := s.resRepo.FindByIDWithDetails(ctx, reservationID)
	if err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservationID).Msg("reminder fired for unknown reservation")
		return
	}
	if details.Status != models.StatusConfirmed {
		return
	}
	if err := s.notif.SendReminder(ctx, details); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservationID).Msg("failed to send reminder")
		return
	}
	s.rec.ReminderFired()
}

// deadlineElapsed is the scheduler callback for the check-in deadline.
func (s *reservationService) deadlineElapsed(reservationID string) {
	if err := s.markNoShow(context.Background(), reservationID); err != nil {
		s.log.Warn().Err(err).Str("reservation_id", reservationID).Msg("deadline task failed")
	}
}
