package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownTimezone(t *testing.T) {
	_, err := New("Not/AZone")
	assert.Error(t, err)
}

func TestClockNormalizesToLocation(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk, err := NewWithNowFunc("Asia/Riyadh", func() time.Time { return frozen })
	require.NoError(t, err)

	now := clk.Now()
	assert.Equal(t, "Asia/Riyadh", now.Location().String())
	assert.True(t, now.Equal(frozen))
}

func TestIsPastAndRemaining(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk, err := NewWithNowFunc("UTC", func() time.Time { return frozen })
	require.NoError(t, err)

	future := frozen.Add(2 * time.Hour)
	past := frozen.Add(-30 * time.Minute)

	assert.False(t, clk.IsPast(future))
	assert.True(t, clk.IsPast(past))

	assert.Equal(t, 2*time.Hour, clk.Remaining(future))
	assert.Equal(t, -30*time.Minute, clk.Remaining(past))
}
