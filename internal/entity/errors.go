package entity

import "errors"

var (
	// Validation errors
	ErrPastScheduledTime = errors.New("scheduled time must be in the future")
	ErrHorizonExceeded   = errors.New("scheduled time is too far in the future")
	ErrInvalidDuration   = errors.New("duration is out of range")
	ErrInvalidType       = errors.New("unknown booking type")
	ErrPayloadTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidInput      = errors.New("invalid input")

	// Booking errors
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingConflict         = errors.New("owner already has an active booking at this time")
	ErrBookingLimitReached     = errors.New("active booking limit reached")
	ErrInvalidStatusTransition = errors.New("booking is not active")

	// Delivery errors
	ErrNotificationDelivery = errors.New("notification delivery failed")
)
