// Package notifier is the boundary between the reservation lifecycle and
// whatever delivers notifications. Sends are fire-and-forget: failures are
// logged by callers and never fail the triggering operation.
package notifier

import (
	"context"

	"github.com/campuslabs/roomreserve/internal/models"
)

const (
	KindConfirmation = "confirmation"
	KindReminder     = "reminder"
)

// Message is the wire shape published for the mail worker.
type Message struct {
	Kind          string `json:"kind"`
	ReservationID string `json:"reservation_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	RoomName      string `json:"room_name"`
	Building      string `json:"building"`
	Floor         int    `json:"floor"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Purpose       string `json:"purpose,omitempty"`
}

type Notifier interface {
	SendConfirmation(ctx context.Context, r *models.Reservation) error
	SendReminder(ctx context.Context, r *models.Reservation) error
}

// NewMessage flattens a reservation (with Room and User preloaded) into the
// wire shape.
func NewMessage(kind string, r *models.Reservation) Message {
	m := Message{
		Kind:          kind,
		ReservationID: r.ID,
		Date:          r.Date,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Purpose:       r.Purpose,
	}
	if r.User != nil {
		m.Email = r.User.Email
		m.Name = r.User.Name
	}
	if r.Room != nil {
		m.RoomName = r.Room.Name
		m.Building = r.Room.Building
		m.Floor = r.Room.Floor
	}
	return m
}
