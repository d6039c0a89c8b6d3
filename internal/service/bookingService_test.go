package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBookingRepo is an in-memory BookingRepository with the same
// limit/conflict/transition semantics as the postgres implementation,
// including the per-store serialization of creates the advisory lock
// gives the real one.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[int64]*entity.Booking
	nextID   int64
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int64]*entity.Booking), nextID: 1}
}

func (r *fakeBookingRepo) Create(_ context.Context, booking *entity.Booking, maxActive int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := 0
	for _, b := range r.bookings {
		if b.Owner == booking.Owner && b.Status == entity.BookingStatusActive {
			active++
			if b.ScheduledTime.Equal(booking.ScheduledTime) {
				return entity.ErrBookingConflict
			}
		}
	}
	if active >= maxActive {
		return entity.ErrBookingLimitReached
	}

	now := time.Now()
	booking.ID = r.nextID
	r.nextID++
	booking.Status = entity.BookingStatusActive
	booking.LastEvaluatedAt = now
	booking.CreatedAt = now
	booking.UpdatedAt = now

	stored := *booking
	r.bookings[booking.ID] = &stored
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id int64) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	copied := *booking
	return &copied, nil
}

func (r *fakeBookingRepo) GetActive(_ context.Context) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Status == entity.BookingStatusActive {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) GetByOwner(_ context.Context, owner string, status entity.BookingStatus) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Owner != owner {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		copied := *b
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeBookingRepo) GetByType(_ context.Context, bookingType entity.BookingType, status entity.BookingStatus) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Type == bookingType && b.Status == status {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountActive(_ context.Context, owner string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, b := range r.bookings {
		if b.Owner == owner && b.Status == entity.BookingStatusActive {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id int64, status entity.BookingStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	if booking.Status != entity.BookingStatusActive {
		return entity.ErrInvalidStatusTransition
	}
	booking.Status = status
	if status == entity.BookingStatusCancelled {
		booking.CancellationReason = reason
	}
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBookingRepo) MarkThresholdSent(_ context.Context, id int64, hours int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	booking.SentThresholds = booking.SentThresholds.Add(hours)
	return nil
}

func (r *fakeBookingRepo) MarkNowReminderSent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return entity.ErrBookingNotFound
	}
	booking.NowReminderSent = true
	return nil
}

func (r *fakeBookingRepo) UpdateLastEvaluated(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking, ok := r.bookings[id]; ok {
		booking.LastEvaluatedAt = at
	}
	return nil
}

func (r *fakeBookingRepo) GetExpired(_ context.Context, before time.Time) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.bookings {
		if b.Status == entity.BookingStatusActive && b.EndTime().Before(before) {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLog
}

func (r *fakeAuditRepo) Insert(_ context.Context, entry *entity.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) GetRecent(_ context.Context, limit int) ([]*entity.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) < limit {
		limit = len(r.entries)
	}
	return r.entries[len(r.entries)-limit:], nil
}

func (r *fakeAuditRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*entity.AuditLog
	var deleted int64
	for _, e := range r.entries {
		if e.CreatedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return deleted, nil
}

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (BookingService, *fakeBookingRepo, *fakeAuditRepo) {
	t.Helper()

	repo := newFakeBookingRepo()
	audit := &fakeAuditRepo{}
	clk, err := clock.NewWithNowFunc("UTC", func() time.Time { return testBase })
	require.NoError(t, err)

	svc := NewBookingService(repo, audit, clk, BookingLimits{
		MaxActive:       5,
		HorizonDays:     365,
		MaxDurationDays: 365,
	})
	return svc, repo, audit
}

func validRequest() *CreateBookingRequest {
	return &CreateBookingRequest{
		Owner:         "owner-1",
		Type:          entity.BookingTypeBuilding,
		PlayerName:    "Frost",
		PlayerID:      "12345",
		AllianceName:  "NORD",
		ScheduledTime: testBase.Add(2 * time.Hour),
		DurationDays:  1,
	}
}

func TestCreateBooking(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	assert.NotZero(t, booking.ID)
	assert.Equal(t, entity.BookingStatusActive, booking.Status)
	assert.Equal(t, "owner-1", booking.CreatedBy)
	assert.Empty(t, booking.SentThresholds)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, entity.ActionBookingCreated, audit.entries[0].ActionType)
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *CreateBookingRequest)
		wantErr error
	}{
		{
			name:    "scheduled time in the past",
			mutate:  func(req *CreateBookingRequest) { req.ScheduledTime = testBase.Add(-time.Minute) },
			wantErr: entity.ErrPastScheduledTime,
		},
		{
			name:    "scheduled time equals now",
			mutate:  func(req *CreateBookingRequest) { req.ScheduledTime = testBase },
			wantErr: entity.ErrPastScheduledTime,
		},
		{
			name:    "beyond the horizon",
			mutate:  func(req *CreateBookingRequest) { req.ScheduledTime = testBase.Add(366 * 24 * time.Hour) },
			wantErr: entity.ErrHorizonExceeded,
		},
		{
			name:    "zero duration",
			mutate:  func(req *CreateBookingRequest) { req.DurationDays = 0 },
			wantErr: entity.ErrInvalidDuration,
		},
		{
			name:    "duration above maximum",
			mutate:  func(req *CreateBookingRequest) { req.DurationDays = 366 },
			wantErr: entity.ErrInvalidDuration,
		},
		{
			name:    "unknown type",
			mutate:  func(req *CreateBookingRequest) { req.Type = "raiding" },
			wantErr: entity.ErrInvalidType,
		},
		{
			name: "player name too long",
			mutate: func(req *CreateBookingRequest) {
				name := make([]byte, 101)
				for i := range name {
					name[i] = 'x'
				}
				req.PlayerName = string(name)
			},
			wantErr: entity.ErrPayloadTooLong,
		},
		{
			name:    "missing owner",
			mutate:  func(req *CreateBookingRequest) { req.Owner = "" },
			wantErr: entity.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)

			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreateBooking(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.bookings)
		})
	}
}

func TestCreateBookingConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first := validRequest()
	_, err := svc.CreateBooking(ctx, first)
	require.NoError(t, err)

	// A different type at the exact same instant still conflicts.
	second := validRequest()
	second.Type = entity.BookingTypeTraining
	_, err = svc.CreateBooking(ctx, second)
	assert.ErrorIs(t, err, entity.ErrBookingConflict)

	// A different owner at the same instant does not.
	third := validRequest()
	third.Owner = "owner-2"
	_, err = svc.CreateBooking(ctx, third)
	assert.NoError(t, err)
}

func TestCreateBookingLimit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		req := validRequest()
		req.ScheduledTime = testBase.Add(time.Duration(i+1) * time.Hour)
		_, err := svc.CreateBooking(ctx, req)
		require.NoError(t, err)
	}

	count, err := svc.CountActive(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	req := validRequest()
	req.ScheduledTime = testBase.Add(10 * time.Hour)
	_, err = svc.CreateBooking(ctx, req)
	assert.ErrorIs(t, err, entity.ErrBookingLimitReached)

	// Completing one frees a slot.
	require.NoError(t, svc.CompleteBooking(ctx, 1))
	_, err = svc.CreateBooking(ctx, req)
	assert.NoError(t, err)
}

func TestCreateBookingConcurrentLimit(t *testing.T) {
	repo := newFakeBookingRepo()
	audit := &fakeAuditRepo{}
	clk, err := clock.NewWithNowFunc("UTC", func() time.Time { return testBase })
	require.NoError(t, err)

	svc := NewBookingService(repo, audit, clk, BookingLimits{
		MaxActive:       1,
		HorizonDays:     365,
		MaxDurationDays: 365,
	})
	ctx := context.Background()

	// Racing creates at distinct instants: the cap, not the unique
	// conflict, is what must hold the line.
	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.ScheduledTime = testBase.Add(time.Duration(i+1) * time.Hour)
			_, errs[i] = svc.CreateBooking(ctx, req)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, entity.ErrBookingLimitReached)
	}
	assert.Equal(t, 1, created)

	count, err := svc.CountActive(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStatusTransitions(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CompleteBooking(ctx, booking.ID))
	assert.Equal(t, entity.BookingStatusCompleted, repo.bookings[booking.ID].Status)

	// Terminal states reject every further transition.
	err = svc.CancelBooking(ctx, booking.ID, "changed my mind")
	assert.ErrorIs(t, err, entity.ErrInvalidStatusTransition)
	assert.Equal(t, entity.BookingStatusCompleted, repo.bookings[booking.ID].Status)

	err = svc.ExpireBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, entity.ErrInvalidStatusTransition)

	err = svc.CompleteBooking(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}

func TestCancelBookingRecordsReason(t *testing.T) {
	svc, repo, audit := newTestService(t)
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(ctx, booking.ID, "plans changed"))

	stored := repo.bookings[booking.ID]
	assert.Equal(t, entity.BookingStatusCancelled, stored.Status)
	assert.Equal(t, "plans changed", stored.CancellationReason)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, entity.ActionBookingCancelled, audit.entries[1].ActionType)
}

func TestGetBookingsByTypeRejectsUnknownType(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetBookingsByType(context.Background(), "raiding", entity.BookingStatusActive)
	assert.ErrorIs(t, err, entity.ErrInvalidType)
}
