package models

import "time"

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCheckedIn ReservationStatus = "checked_in"
	StatusCancelled ReservationStatus = "cancelled"
	StatusNoShow    ReservationStatus = "no_show"
)

// IsTerminal reports whether no further transition is permitted out of s.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusCheckedIn || s == StatusCancelled || s == StatusNoShow
}

// IsActive reports whether a reservation in status s holds its time slot.
// Active reservations are the ones that count for conflicts, the daily cap
// and room occupancy.
func (s ReservationStatus) IsActive() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

type Reservation struct {
	ID        string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string            `gorm:"type:varchar(36);not null;index" json:"user_id"`
	RoomID    string            `gorm:"type:varchar(36);not null;index:idx_room_date" json:"room_id"`
	Date      string            `gorm:"type:varchar(10);not null;index:idx_room_date" json:"date"`
	StartTime string            `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime   string            `gorm:"type:varchar(5);not null" json:"end_time"`
	Purpose   string            `json:"purpose,omitempty"`
	Status    ReservationStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// CheckInDeadline is start + 15 minutes, computed once at admission and
	// never changed afterwards.
	CheckInDeadline time.Time  `gorm:"not null" json:"check_in_deadline"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`

	Room *Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// EffectiveStatusAt derives the status the reservation should present as at
// the given instant. A confirmed reservation whose check-in deadline has
// passed reads as a no-show even before the deadline task has written the
// transition back, so displays and occupancy counts never show a stale
// "confirmed" slot.
func (r *Reservation) EffectiveStatusAt(now time.Time) ReservationStatus {
	if r.Status == StatusConfirmed && now.After(r.CheckInDeadline) {
		return StatusNoShow
	}
	return r.Status
}

// ActiveAt reports whether the reservation holds its slot at the given instant,
// using the derived status.
func (r *Reservation) ActiveAt(now time.Time) bool {
	return r.EffectiveStatusAt(now).IsActive()
}
