package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/models"
	"github.com/campuslabs/roomreserve/internal/repository"
	"github.com/campuslabs/roomreserve/internal/timeutil"
	"gorm.io/gorm"
)

// RoomStatus is a room's occupancy projection at a single instant.
type RoomStatus struct {
	Room              models.Room
	Occupied          bool
	Current           *models.Reservation
	NextAvailableTime string
}

// Hotspot is the aggregate occupancy of a building/floor bucket.
type Hotspot struct {
	Building string
	Floor    int
	Occupied int
	Total    int
}

type AvailabilityService interface {
	RoomStatusAt(ctx context.Context, roomID, date, at string) (*RoomStatus, error)
	RoomsWithStatus(ctx context.Context, date, at string) ([]RoomStatus, error)
	Hotspots(ctx context.Context, date, at string) ([]Hotspot, error)
	Recommendations(ctx context.Context, purpose string, groupSize int, date, at string) ([]RoomStatus, error)
}

type availabilityService struct {
	resRepo  repository.ReservationRepository
	roomRepo repository.RoomRepository
	clk      clock.Clock
}

func NewAvailabilityService(resRepo repository.ReservationRepository, roomRepo repository.RoomRepository, clk clock.Clock) AvailabilityService {
	return &availabilityService{resRepo: resRepo, roomRepo: roomRepo, clk: clk}
}

// RoomStatusAt projects a room's occupancy at date/at. A room is occupied
// when an effectively-active reservation contains the instant under half-open
// comparison, so a reservation ending exactly at the query time has already
// released the room.
func (s *availabilityService) RoomStatusAt(ctx context.Context, roomID, date, at string) (*RoomStatus, error) {
	if err := validateDateTime(date, at); err != nil {
		return nil, err
	}

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	// Retired rooms are hidden from listings; projecting them here would
	// resurrect them one at a time
	if !room.IsActive {
		return nil, ErrRoomNotFound
	}

	reservations, err := s.resRepo.FindByRoomAndDate(ctx, roomID, date)
	if err != nil {
		return nil, err
	}

	status := s.project(*room, reservations, at)
	return &status, nil
}

func (s *availabilityService) RoomsWithStatus(ctx context.Context, date, at string) ([]RoomStatus, error) {
	if err := validateDateTime(date, at); err != nil {
		return nil, err
	}

	rooms, err := s.roomRepo.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		reservations, err := s.resRepo.FindByRoomAndDate(ctx, room.ID, date)
		if err != nil {
			return nil, err
		}
		out = append(out, s.project(room, reservations, at))
	}
	return out, nil
}

// project derives one room's status from its reservations for the date.
// Reservations are ordered by start time; only effectively-active ones count.
func (s *availabilityService) project(room models.Room, reservations []models.Reservation, at string) RoomStatus {
	now := s.clk.Now()
	status := RoomStatus{Room: room}

	for i := range reservations {
		r := &reservations[i]
		if !r.ActiveAt(now) {
			continue
		}
		if r.StartTime <= at && at < r.EndTime {
			status.Occupied = true
			status.Current = r
		}
		if r.StartTime >= at && status.NextAvailableTime == "" {
			status.NextAvailableTime = r.EndTime
		}
	}
	return status
}

// Hotspots aggregates occupancy per building/floor, most occupied first.
func (s *availabilityService) Hotspots(ctx context.Context, date, at string) ([]Hotspot, error) {
	statuses, err := s.RoomsWithStatus(ctx, date, at)
	if err != nil {
		return nil, err
	}

	type key struct {
		building string
		floor    int
	}
	buckets := make(map[key]*Hotspot)
	order := make([]key, 0)
	for _, st := range statuses {
		k := key{st.Room.Building, st.Room.Floor}
		b, ok := buckets[k]
		if !ok {
			b = &Hotspot{Building: k.building, Floor: k.floor}
			buckets[k] = b
			order = append(order, k)
		}
		b.Total++
		if st.Occupied {
			b.Occupied++
		}
	}

	out := make([]Hotspot, 0, len(order))
	for _, k := range order {
		out = append(out, *buckets[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return ratio(out[i]) > ratio(out[j])
	})
	return out, nil
}

func ratio(h Hotspot) float64 {
	if h.Total == 0 {
		return 0
	}
	return float64(h.Occupied) / float64(h.Total)
}

func validateDateTime(date, at string) error {
	if !timeutil.ValidDate(date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if !timeutil.ValidClock(at) {
		return fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	return nil
}
