package repository

import (
	"context"
	"time"

	"github.com/campuslabs/roomreserve/internal/models"
	"gorm.io/gorm"
)

type ReservationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, r *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	FindByIDWithDetails(ctx context.Context, id string) (*models.Reservation, error)
	FindByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	FindAllWithDetails(ctx context.Context) ([]models.Reservation, error)
	FindByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Reservation, error)
	FindConfirmedWithDeadlineAfter(ctx context.Context, cutoff time.Time) ([]models.Reservation, error)
	CountOverlapping(ctx context.Context, tx *gorm.DB, roomID, date, startTime, endTime string) (int64, error)
	CountActiveByUserAndDate(ctx context.Context, tx *gorm.DB, userID, date string) (int64, error)
	UpdateStatusIf(ctx context.Context, id string, from, to models.ReservationStatus, checkedInAt *time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Transaction runs fn inside a database transaction.
func (r *reservationRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *reservationRepository) Create(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	return tx.WithContext(ctx).Create(res).Error
}

func (r *reservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) FindByIDWithDetails(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("User").
		First(&res, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) FindByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Room").
		Where("user_id = ?", userID).
		Order("date ASC, start_time ASC").
		Find(&out).Error
	return out, err
}

func (r *reservationRepository) FindAllWithDetails(ctx context.Context) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("User").
		Order("date ASC, start_time ASC").
		Find(&out).Error
	return out, err
}

func (r *reservationRepository) FindByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND date = ?", roomID, date).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}

// FindConfirmedWithDeadlineAfter returns confirmed reservations whose check-in
// deadline is still ahead of cutoff. Used to rebuild timers after a restart.
func (r *reservationRepository) FindConfirmedWithDeadlineAfter(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND check_in_deadline > ?", models.StatusConfirmed, cutoff).
		Find(&out).Error
	return out, err
}

// CountOverlapping counts active reservations for (roomID, date) overlapping
// the half-open interval [startTime, endTime). HH:MM strings order
// lexicographically the same as chronologically, so plain string comparison
// is the overlap test. Back-to-back slots sharing an edge do not overlap.
func (r *reservationRepository) CountOverlapping(ctx context.Context, tx *gorm.DB, roomID, date, startTime, endTime string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("room_id = ? AND date = ?", roomID, date).
		Where("status IN ?", []models.ReservationStatus{models.StatusConfirmed, models.StatusCheckedIn}).
		Where("start_time < ? AND end_time > ?", endTime, startTime).
		Count(&count).Error
	return count, err
}

func (r *reservationRepository) CountActiveByUserAndDate(ctx context.Context, tx *gorm.DB, userID, date string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND date = ?", userID, date).
		Where("status IN ?", []models.ReservationStatus{models.StatusConfirmed, models.StatusCheckedIn}).
		Count(&count).Error
	return count, err
}

// UpdateStatusIf performs a conditional transition and reports whether a row
// changed. Every lifecycle transition goes through it, so a load-then-write
// race (a check-in against the deadline task, a cancel against either) moves
// zero rows instead of overwriting a terminal state.
func (r *reservationRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.ReservationStatus, checkedInAt *time.Time) (bool, error) {
	updates := map[string]any{"status": to}
	if checkedInAt != nil {
		updates["checked_in_at"] = *checkedInAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *reservationRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", id).Error
}
