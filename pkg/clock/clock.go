package clock

import (
	"fmt"
	"time"
)

// Clock is a timezone-aware time source. All instants handed out by Now
// are normalized to the configured location, so comparisons against
// stored times are unambiguous.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(timezone string) (*Clock, error) {
	return NewWithNowFunc(timezone, time.Now)
}

// NewWithNowFunc builds a Clock with a custom time source. Used by tests
// to freeze or step the wall clock.
func NewWithNowFunc(timezone string, now func() time.Time) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: now}, nil
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Clock) IsPast(t time.Time) bool {
	return t.Before(c.Now())
}

// Remaining returns the signed duration until t, negative if t is past.
func (c *Clock) Remaining(t time.Time) time.Duration {
	return t.Sub(c.Now())
}
