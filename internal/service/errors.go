package service

import "errors"

var (
	// ErrValidation covers malformed dates, times and intervals. The wrapped
	// message carries the field-level detail.
	ErrValidation = errors.New("invalid reservation data")

	// ErrLeadTime rejects reservations starting sooner than the minimum
	// advance-booking window.
	ErrLeadTime = errors.New("reservations must be made at least 30 minutes in advance")

	// ErrDailyLimit rejects a second active reservation for the same user and
	// date.
	ErrDailyLimit = errors.New("maximum reservations reached for the day")

	// ErrSlotConflict rejects a reservation overlapping an active one in the
	// same room.
	ErrSlotConflict = errors.New("this time slot is already booked")

	// ErrForbidden is returned when the actor is not the reservation's owner.
	ErrForbidden = errors.New("not authorized")

	ErrReservationNotFound = errors.New("reservation not found")
	ErrRoomNotFound        = errors.New("room not found")

	// ErrInvalidTransition is returned for state-machine misuse, e.g.
	// cancelling a checked-in reservation or re-cancelling a terminal one.
	ErrInvalidTransition = errors.New("reservation cannot change state")

	// ErrCheckInNotOpen is returned for a check-in attempted before the
	// window opens at start − 15 minutes.
	ErrCheckInNotOpen = errors.New("check-in window is not open yet")

	// ErrDeadlinePassed is returned for a check-in attempted after the
	// deadline. The attempt itself converts the reservation to a no-show.
	ErrDeadlinePassed = errors.New("check-in deadline has passed, reservation marked as no-show")
)
