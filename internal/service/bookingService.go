package service

import (
	"context"
	"fmt"
	"time"

	repository "github.com/warcamp/booker/internal/database/postgres"
	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/clock"

	"github.com/sirupsen/logrus"
)

const maxPayloadLength = 100

type bookingService struct {
	bookingRepo repository.BookingRepository
	auditRepo   repository.AuditLogRepository
	clock       *clock.Clock
	limits      BookingLimits
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	auditRepo repository.AuditLogRepository,
	clk *clock.Clock,
	limits BookingLimits,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		clock:       clk,
		limits:      limits,
	}
}

func (s *bookingService) validateCreate(req *CreateBookingRequest) error {
	if req.Owner == "" || req.PlayerName == "" {
		return entity.ErrInvalidInput
	}
	for _, field := range []string{req.Owner, req.PlayerName, req.PlayerID, req.AllianceName, req.RequestedBy} {
		if len(field) > maxPayloadLength {
			return entity.ErrPayloadTooLong
		}
	}
	if !req.Type.Valid() {
		return entity.ErrInvalidType
	}
	if req.DurationDays < 1 || req.DurationDays > s.limits.MaxDurationDays {
		return entity.ErrInvalidDuration
	}

	remaining := s.clock.Remaining(req.ScheduledTime)
	if remaining <= 0 {
		return entity.ErrPastScheduledTime
	}
	horizon := time.Duration(s.limits.HorizonDays) * 24 * time.Hour
	if remaining > horizon {
		return entity.ErrHorizonExceeded
	}
	return nil
}

func (s *bookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*entity.Booking, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	createdBy := req.RequestedBy
	if createdBy == "" {
		createdBy = req.Owner
	}

	booking := &entity.Booking{
		Owner:          req.Owner,
		Type:           req.Type,
		PlayerName:     req.PlayerName,
		PlayerID:       req.PlayerID,
		AllianceName:   req.AllianceName,
		ScheduledTime:  req.ScheduledTime.In(s.clock.Location()),
		DurationDays:   req.DurationDays,
		Status:         entity.BookingStatusActive,
		SentThresholds: entity.ThresholdSet{},
		CreatedBy:      createdBy,
	}

	if err := s.bookingRepo.Create(ctx, booking, s.limits.MaxActive); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"owner":          booking.Owner,
		"type":           booking.Type,
		"scheduled_time": booking.ScheduledTime,
	}).Info("Booking created")

	s.logAction(ctx, entity.ActionBookingCreated,
		fmt.Sprintf("booking #%d (%s) created for %s", booking.ID, booking.Type, booking.PlayerName),
		booking.Owner, booking.ID)

	return booking, nil
}

func (s *bookingService) CompleteBooking(ctx context.Context, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, entity.BookingStatusCompleted, ""); err != nil {
		return err
	}

	logrus.WithField("booking_id", bookingID).Info("Booking completed")
	s.logAction(ctx, entity.ActionBookingCompleted,
		fmt.Sprintf("booking #%d completed", bookingID), booking.Owner, bookingID)
	return nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID int64, reason string) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, entity.BookingStatusCancelled, reason); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"reason":     reason,
	}).Info("Booking cancelled")
	s.logAction(ctx, entity.ActionBookingCancelled,
		fmt.Sprintf("booking #%d cancelled: %s", bookingID, reason), booking.Owner, bookingID)
	return nil
}

func (s *bookingService) ExpireBooking(ctx context.Context, bookingID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, entity.BookingStatusExpired, ""); err != nil {
		return err
	}

	logrus.WithField("booking_id", bookingID).Info("Booking expired")
	s.logAction(ctx, entity.ActionBookingExpired,
		fmt.Sprintf("booking #%d expired", bookingID), booking.Owner, bookingID)
	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) GetActiveBookings(ctx context.Context) ([]*entity.Booking, error) {
	return s.bookingRepo.GetActive(ctx)
}

func (s *bookingService) GetOwnerBookings(ctx context.Context, owner string, status entity.BookingStatus) ([]*entity.Booking, error) {
	return s.bookingRepo.GetByOwner(ctx, owner, status)
}

func (s *bookingService) GetBookingsByType(ctx context.Context, bookingType entity.BookingType, status entity.BookingStatus) ([]*entity.Booking, error) {
	if !bookingType.Valid() {
		return nil, entity.ErrInvalidType
	}
	return s.bookingRepo.GetByType(ctx, bookingType, status)
}

func (s *bookingService) CountActive(ctx context.Context, owner string) (int, error) {
	return s.bookingRepo.CountActive(ctx, owner)
}

func (s *bookingService) GetExpiredBookings(ctx context.Context, before time.Time) ([]*entity.Booking, error) {
	return s.bookingRepo.GetExpired(ctx, before)
}

func (s *bookingService) MarkReminderSent(ctx context.Context, bookingID int64, hours int) error {
	if err := s.bookingRepo.MarkThresholdSent(ctx, bookingID, hours); err != nil {
		return err
	}
	s.logAction(ctx, entity.ActionReminderSent,
		fmt.Sprintf("%dh reminder sent for booking #%d", hours, bookingID), "", bookingID)
	return nil
}

func (s *bookingService) MarkNowReminderSent(ctx context.Context, bookingID int64) error {
	if err := s.bookingRepo.MarkNowReminderSent(ctx, bookingID); err != nil {
		return err
	}
	s.logAction(ctx, entity.ActionNowReminderSent,
		fmt.Sprintf("due-now reminder sent for booking #%d", bookingID), "", bookingID)
	return nil
}

func (s *bookingService) UpdateLastEvaluated(ctx context.Context, bookingID int64, at time.Time) error {
	return s.bookingRepo.UpdateLastEvaluated(ctx, bookingID, at)
}

func (s *bookingService) GetAuditLog(ctx context.Context, limit int) ([]*entity.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditRepo.GetRecent(ctx, limit)
}

func (s *bookingService) PruneAuditLogs(ctx context.Context, before time.Time) (int64, error) {
	return s.auditRepo.DeleteOlderThan(ctx, before)
}

// logAction records an audit row. Auditing is best effort: a failed
// insert never fails the operation that triggered it.
func (s *bookingService) logAction(ctx context.Context, actionType, description, owner string, bookingID int64) {
	entry := &entity.AuditLog{
		ActionType:  actionType,
		Description: description,
		Owner:       owner,
		BookingID:   bookingID,
	}
	if err := s.auditRepo.Insert(ctx, entry); err != nil {
		logrus.WithError(err).WithField("action", actionType).Warn("Failed to write audit log")
	}
}
