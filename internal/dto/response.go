package dto

import (
	"time"

	"github.com/campuslabs/roomreserve/internal/models"
)

type ReservationResponse struct {
	ID              string                   `json:"id"`
	UserID          string                   `json:"user_id"`
	RoomID          string                   `json:"room_id"`
	Date            string                   `json:"date"`
	StartTime       string                   `json:"start_time"`
	EndTime         string                   `json:"end_time"`
	Purpose         string                   `json:"purpose,omitempty"`
	Status          models.ReservationStatus `json:"status"`
	CheckInDeadline time.Time                `json:"check_in_deadline"`
	CheckedInAt     *time.Time               `json:"checked_in_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`

	Room *RoomResponse `json:"room,omitempty"`
	User *UserResponse `json:"user,omitempty"`
}

type RoomResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Building  string   `json:"building"`
	Floor     int      `json:"floor"`
	Capacity  int      `json:"capacity"`
	Amenities []string `json:"amenities"`
	ImageURL  string   `json:"image_url,omitempty"`
}

// RoomStatusResponse is a room plus its live occupancy projection.
type RoomStatusResponse struct {
	RoomResponse
	Occupied           bool                 `json:"occupied"`
	CurrentReservation *ReservationResponse `json:"current_reservation,omitempty"`
	NextAvailableTime  string               `json:"next_available_time,omitempty"`
}

type HotspotResponse struct {
	Building string `json:"building"`
	Floor    int    `json:"floor"`
	Occupied int    `json:"occupied"`
	Total    int    `json:"total"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	StudentID string `json:"student_id,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

type LoginResponse struct {
	User      UserResponse `json:"user"`
	SessionID string       `json:"session_id"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// ToReservationResponse renders the reservation with its status derived at
// the supplied instant, so a confirmed slot past its check-in deadline reads
// as no_show even before storage catches up.
func ToReservationResponse(r *models.Reservation, now time.Time) ReservationResponse {
	resp := ReservationResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		RoomID:          r.RoomID,
		Date:            r.Date,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Purpose:         r.Purpose,
		Status:          r.EffectiveStatusAt(now),
		CheckInDeadline: r.CheckInDeadline,
		CheckedInAt:     r.CheckedInAt,
		CreatedAt:       r.CreatedAt,
	}
	if r.Room != nil {
		room := ToRoomResponse(r.Room)
		resp.Room = &room
	}
	if r.User != nil {
		user := ToUserResponse(r.User)
		resp.User = &user
	}
	return resp
}

func ToRoomResponse(room *models.Room) RoomResponse {
	return RoomResponse{
		ID:        room.ID,
		Name:      room.Name,
		Building:  room.Building,
		Floor:     room.Floor,
		Capacity:  room.Capacity,
		Amenities: room.Amenities,
		ImageURL:  room.ImageURL,
	}
}

func ToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		StudentID: u.StudentID,
		IsAdmin:   u.IsAdmin,
	}
}
