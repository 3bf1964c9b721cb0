package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/dto"
	"github.com/campuslabs/roomreserve/internal/metrics"
	"github.com/campuslabs/roomreserve/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Mock ReservationRepository ---

type mockReservationRepo struct {
	mu sync.Mutex

	findByIDFn       func(ctx context.Context, id string) (*models.Reservation, error)
	countActiveFn    func(ctx context.Context, userID, date string) (int64, error)
	countOverlapFn   func(ctx context.Context, roomID, date, start, end string) (int64, error)
	updateStatusIfFn func(id string, from, to models.ReservationStatus, checkedInAt *time.Time) (bool, error)
	createErr        error

	created      []*models.Reservation
	conditionals []conditionalUpdate
	deleted      []string
}

type conditionalUpdate struct {
	id       string
	from, to models.ReservationStatus
}

func (m *mockReservationRepo) Create(ctx context.Context, tx *gorm.DB, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, r)
	return nil
}

func (m *mockReservationRepo) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockReservationRepo) FindByIDWithDetails(ctx context.Context, id string) (*models.Reservation, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockReservationRepo) FindByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepo) FindAllWithDetails(ctx context.Context) ([]models.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepo) FindByRoomAndDate(ctx context.Context, roomID, date string) ([]models.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepo) FindConfirmedWithDeadlineAfter(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepo) CountOverlapping(ctx context.Context, tx *gorm.DB, roomID, date, start, end string) (int64, error) {
	if m.countOverlapFn != nil {
		return m.countOverlapFn(ctx, roomID, date, start, end)
	}
	return 0, nil
}

func (m *mockReservationRepo) CountActiveByUserAndDate(ctx context.Context, tx *gorm.DB, userID, date string) (int64, error) {
	if m.countActiveFn != nil {
		return m.countActiveFn(ctx, userID, date)
	}
	return 0, nil
}

func (m *mockReservationRepo) UpdateStatusIf(ctx context.Context, id string, from, to models.ReservationStatus, checkedInAt *time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateStatusIfFn != nil {
		ok, err := m.updateStatusIfFn(id, from, to, checkedInAt)
		if ok {
			m.conditionals = append(m.conditionals, conditionalUpdate{id, from, to})
		}
		return ok, err
	}
	m.conditionals = append(m.conditionals, conditionalUpdate{id, from, to})
	return true, nil
}

func (m *mockReservationRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockReservationRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// --- Mock RoomRepository ---

type mockRoomRepo struct {
	room *models.Room
	err  error
}

func (m *mockRoomRepo) Create(ctx context.Context, room *models.Room) error { return nil }

func (m *mockRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.room, nil
}

func (m *mockRoomRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Room, error) {
	return m.FindByID(ctx, id)
}

func (m *mockRoomRepo) FindAllActive(ctx context.Context) ([]models.Room, error) {
	if m.room == nil {
		return nil, nil
	}
	return []models.Room{*m.room}, nil
}

// --- Mock Notifier ---

type mockNotifier struct {
	mu            sync.Mutex
	confirmations []string
	reminders     []string
}

func (m *mockNotifier) SendConfirmation(ctx context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, r.ID)
	return nil
}

func (m *mockNotifier) SendReminder(ctx context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders = append(m.reminders, r.ID)
	return nil
}

// --- Fixtures ---

func testRoom() *models.Room {
	return &models.Room{
		ID:       "room-1",
		Name:     "Study Room A",
		Building: "JGSOM",
		Floor:    2,
		Capacity: 6,
		IsActive: true,
	}
}

// bookingTime is the fixed "now" for admission tests: 2024-06-01 12:00 local.
func bookingTime() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
}

func newTestService(repo *mockReservationRepo, rooms *mockRoomRepo, notif *mockNotifier, clk clock.Clock) ReservationService {
	return NewReservationService(repo, rooms, notif, clk, metrics.NewNop(), zerolog.Nop())
}

func validRequest() dto.CreateReservationRequest {
	return dto.CreateReservationRequest{
		RoomID:    "room-1",
		Date:      "2024-06-01",
		StartTime: "14:00",
		EndTime:   "15:00",
		Purpose:   "thesis meeting",
	}
}

// --- Create ---

func TestCreate_Success(t *testing.T) {
	repo := &mockReservationRepo{}
	repo.findByIDFn = func(ctx context.Context, id string) (*models.Reservation, error) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.created[0], nil
	}
	notif := &mockNotifier{}
	clk := clock.NewFake(bookingTime())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, notif, clk)
	defer svc.Shutdown()

	reservation, err := svc.Create(context.Background(), "user-1", validRequest())

	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, reservation.Status)
	assert.Equal(t, "user-1", reservation.UserID)
	assert.NotEmpty(t, reservation.ID)

	wantDeadline := time.Date(2024, 6, 1, 14, 15, 0, 0, time.Local)
	assert.True(t, reservation.CheckInDeadline.Equal(wantDeadline), "deadline should be start + 15min")

	assert.Equal(t, []string{reservation.ID}, notif.confirmations)
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateReservationRequest)
	}{
		{"bad date", func(r *dto.CreateReservationRequest) { r.Date = "06/01/2024" }},
		{"bad start time", func(r *dto.CreateReservationRequest) { r.StartTime = "2pm" }},
		{"hour out of range", func(r *dto.CreateReservationRequest) { r.StartTime = "25:00" }},
		{"start after end", func(r *dto.CreateReservationRequest) { r.StartTime = "15:00"; r.EndTime = "14:00" }},
		{"zero-length interval", func(r *dto.CreateReservationRequest) { r.StartTime = "14:00"; r.EndTime = "14:00" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockReservationRepo{}, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
			defer svc.Shutdown()

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), "user-1", req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreate_LeadTimeBoundary(t *testing.T) {
	// Booking at 12:00 for a 12:29 start fails, 12:30 succeeds.
	cases := []struct {
		start string
		ok    bool
	}{
		{"12:29", false},
		{"12:30", true},
	}
	for _, tc := range cases {
		t.Run(tc.start, func(t *testing.T) {
			repo := &mockReservationRepo{}
			repo.findByIDFn = func(ctx context.Context, id string) (*models.Reservation, error) {
				repo.mu.Lock()
				defer repo.mu.Unlock()
				return repo.created[0], nil
			}
			svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
			defer svc.Shutdown()

			req := validRequest()
			req.StartTime = tc.start
			req.EndTime = "13:30"

			_, err := svc.Create(context.Background(), "user-1", req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrLeadTime)
			}
		})
	}
}

func TestCreate_DailyLimit(t *testing.T) {
	repo := &mockReservationRepo{
		countActiveFn: func(ctx context.Context, userID, date string) (int64, error) { return 1, nil },
	}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrDailyLimit)
	assert.Empty(t, repo.created)
}

func TestCreate_SlotConflict(t *testing.T) {
	repo := &mockReservationRepo{
		countOverlapFn: func(ctx context.Context, roomID, date, start, end string) (int64, error) { return 1, nil },
	}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Empty(t, repo.created)
}

func TestCreate_DuplicateKeyMapsToDailyLimit(t *testing.T) {
	// A same-user race across two rooms slips past the cap count and dies on
	// the daily-cap unique index; the caller still sees the cap error.
	repo := &mockReservationRepo{createErr: gorm.ErrDuplicatedKey}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrDailyLimit)
}

func TestCreate_UnknownRoom(t *testing.T) {
	repo := &mockReservationRepo{}
	svc := newTestService(repo, &mockRoomRepo{err: gorm.ErrRecordNotFound}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCreate_InactiveRoom(t *testing.T) {
	room := testRoom()
	room.IsActive = false
	svc := newTestService(&mockReservationRepo{}, &mockRoomRepo{room: room}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.Create(context.Background(), "user-1", validRequest())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// --- Check-in ---

func confirmedReservation() *models.Reservation {
	start := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	return &models.Reservation{
		ID:              "res-1",
		UserID:          "user-1",
		RoomID:          "room-1",
		Date:            "2024-06-01",
		StartTime:       "14:00",
		EndTime:         "15:00",
		Status:          models.StatusConfirmed,
		CheckInDeadline: start.Add(15 * time.Minute),
	}
}

// fixedReservationRepo serves one reservation and applies conditional status
// updates to it, so transition races behave like rows in a real table.
func fixedReservationRepo(r *models.Reservation) *mockReservationRepo {
	repo := &mockReservationRepo{}
	repo.findByIDFn = func(ctx context.Context, id string) (*models.Reservation, error) {
		if r == nil || r.ID != id {
			return nil, gorm.ErrRecordNotFound
		}
		clone := *r
		return &clone, nil
	}
	repo.updateStatusIfFn = func(id string, from, to models.ReservationStatus, checkedInAt *time.Time) (bool, error) {
		if r == nil || r.ID != id || r.Status != from {
			return false, nil
		}
		r.Status = to
		if checkedInAt != nil {
			r.CheckedInAt = checkedInAt
		}
		return true, nil
	}
	return repo
}

func TestCheckIn_WindowBoundaries(t *testing.T) {
	start := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	cases := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"16 minutes early", start.Add(-16 * time.Minute), ErrCheckInNotOpen},
		{"window opens at -15", start.Add(-15 * time.Minute), nil},
		{"at start", start, nil},
		{"at deadline", start.Add(15 * time.Minute), nil},
		{"past deadline", start.Add(16 * time.Minute), ErrDeadlinePassed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := fixedReservationRepo(confirmedReservation())
			svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(tc.now))
			defer svc.Shutdown()

			reservation, err := svc.CheckIn(context.Background(), "res-1", "user-1")

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusCheckedIn, reservation.Status)
			require.NotNil(t, reservation.CheckedInAt)
			assert.True(t, reservation.CheckedInAt.Equal(tc.now))
		})
	}
}

func TestCheckIn_PastDeadlineConvertsToNoShow(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	now := time.Date(2024, 6, 1, 14, 20, 0, 0, time.Local)
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(now))
	defer svc.Shutdown()

	_, err := svc.CheckIn(context.Background(), "res-1", "user-1")

	assert.ErrorIs(t, err, ErrDeadlinePassed)
	require.Len(t, repo.conditionals, 1)
	assert.Equal(t, models.StatusNoShow, repo.conditionals[0].to)
}

func TestCheckIn_Forbidden(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.CheckIn(context.Background(), "res-1", "intruder")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, repo.conditionals)
}

func TestCheckIn_TerminalStates(t *testing.T) {
	for _, status := range []models.ReservationStatus{
		models.StatusCheckedIn, models.StatusCancelled, models.StatusNoShow,
	} {
		t.Run(string(status), func(t *testing.T) {
			r := confirmedReservation()
			r.Status = status
			repo := fixedReservationRepo(r)
			now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
			svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(now))
			defer svc.Shutdown()

			_, err := svc.CheckIn(context.Background(), "res-1", "user-1")
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestCheckIn_NotFound(t *testing.T) {
	repo := fixedReservationRepo(nil)
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	_, err := svc.CheckIn(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

// --- Cancel ---

func TestCancel_Confirmed(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	err := svc.Cancel(context.Background(), "res-1", "user-1")

	require.NoError(t, err)
	require.Len(t, repo.conditionals, 1)
	assert.Equal(t, models.StatusCancelled, repo.conditionals[0].to)
}

func TestCancel_SecondAttemptFailsCleanly(t *testing.T) {
	r := confirmedReservation()
	r.Status = models.StatusCancelled
	repo := fixedReservationRepo(r)
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	err := svc.Cancel(context.Background(), "res-1", "user-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, repo.conditionals)
}

func TestCancel_CheckedInNotPermitted(t *testing.T) {
	r := confirmedReservation()
	r.Status = models.StatusCheckedIn
	repo := fixedReservationRepo(r)
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	err := svc.Cancel(context.Background(), "res-1", "user-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancel_Forbidden(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	err := svc.Cancel(context.Background(), "res-1", "intruder")
	assert.ErrorIs(t, err, ErrForbidden)
}

// staleOnce makes the first load return the reservation as it was at call
// time, so a transition landing between load and update is visible only to
// the conditional write, the way it would be against a real table.
func staleOnce(repo *mockReservationRepo, r *models.Reservation) {
	snapshot := *r
	first := true
	repo.findByIDFn = func(ctx context.Context, id string) (*models.Reservation, error) {
		if id != snapshot.ID {
			return nil, gorm.ErrRecordNotFound
		}
		if first {
			first = false
			clone := snapshot
			return &clone, nil
		}
		clone := *r
		return &clone, nil
	}
}

func TestCheckIn_LosesRaceWithDeadlineTask(t *testing.T) {
	r := confirmedReservation()
	repo := fixedReservationRepo(r)
	staleOnce(repo, r)
	// Exactly at the deadline: the window guard admits the check-in while the
	// deadline task fires concurrently.
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(r.CheckInDeadline)).(*reservationService)
	defer svc.Shutdown()

	svc.deadlineElapsed("res-1")

	_, err := svc.CheckIn(context.Background(), "res-1", "user-1")

	assert.ErrorIs(t, err, ErrDeadlinePassed)
	assert.Equal(t, models.StatusNoShow, r.Status, "check-in must not overwrite the terminal state")
}

func TestCancel_LosesRaceWithDeadlineTask(t *testing.T) {
	r := confirmedReservation()
	repo := fixedReservationRepo(r)
	staleOnce(repo, r)
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(r.CheckInDeadline)).(*reservationService)
	defer svc.Shutdown()

	svc.deadlineElapsed("res-1")

	err := svc.Cancel(context.Background(), "res-1", "user-1")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.StatusNoShow, r.Status)
}

// --- No-show conversion ---

func TestDeadlineElapsed_Idempotent(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime())).(*reservationService)
	defer svc.Shutdown()

	svc.deadlineElapsed("res-1")
	svc.deadlineElapsed("res-1")

	// The conditional update records a single conversion; the second call is
	// a no-op.
	assert.Len(t, repo.conditionals, 1)
}

// --- Reminder callback ---

func TestReminderDue_SkipsNonConfirmed(t *testing.T) {
	r := confirmedReservation()
	r.Status = models.StatusCancelled
	repo := fixedReservationRepo(r)
	notif := &mockNotifier{}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, notif, clock.NewFake(bookingTime())).(*reservationService)
	defer svc.Shutdown()

	svc.reminderDue("res-1")
	assert.Empty(t, notif.reminders)
}

func TestReminderDue_SendsForConfirmed(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	notif := &mockNotifier{}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, notif, clock.NewFake(bookingTime())).(*reservationService)
	defer svc.Shutdown()

	svc.reminderDue("res-1")
	assert.Equal(t, []string{"res-1"}, notif.reminders)
}

// --- Hard delete ---

func TestHardDelete(t *testing.T) {
	repo := fixedReservationRepo(confirmedReservation())
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	require.NoError(t, svc.HardDelete(context.Background(), "res-1"))
	assert.Equal(t, []string{"res-1"}, repo.deleted)
}

// --- End-to-end admission scenario ---

// User books 14:00-15:00 at 12:00 the same day: admitted as confirmed with a
// 14:15 deadline. A second booking by the same user that day hits the cap.
func TestAdmissionScenario(t *testing.T) {
	repo := &mockReservationRepo{}
	repo.findByIDFn = func(ctx context.Context, id string) (*models.Reservation, error) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		for _, r := range repo.created {
			if r.ID == id {
				return r, nil
			}
		}
		return nil, gorm.ErrRecordNotFound
	}
	repo.countActiveFn = func(ctx context.Context, userID, date string) (int64, error) {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		var n int64
		for _, r := range repo.created {
			if r.UserID == userID && r.Date == date && r.Status.IsActive() {
				n++
			}
		}
		return n, nil
	}
	svc := newTestService(repo, &mockRoomRepo{room: testRoom()}, &mockNotifier{}, clock.NewFake(bookingTime()))
	defer svc.Shutdown()

	first, err := svc.Create(context.Background(), "user-1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, first.Status)
	assert.True(t, first.CheckInDeadline.Equal(time.Date(2024, 6, 1, 14, 15, 0, 0, time.Local)))

	second := validRequest()
	second.StartTime = "16:00"
	second.EndTime = "17:00"
	_, err = svc.Create(context.Background(), "user-1", second)
	assert.ErrorIs(t, err, ErrDailyLimit)
}
