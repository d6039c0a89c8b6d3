package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMessage(t *testing.T) {
	scheduled := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		leadHours int
		want      string
	}{
		{name: "multi hour lead", leadHours: 24, want: "due in 24 hours"},
		{name: "single hour lead", leadHours: 1, want: "due in 1 hour"},
		{name: "due now", leadHours: 0, want: "due now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := RenderMessage(Notification{
				BookingID:     7,
				Type:          entity.BookingTypeResearch,
				LeadHours:     tt.leadHours,
				ScheduledTime: scheduled,
				PlayerName:    "Frost",
				AllianceName:  "NORD",
			})

			assert.Contains(t, msg, tt.want)
			assert.Contains(t, msg, "#7")
			assert.Contains(t, msg, "Frost")
			assert.Contains(t, msg, "NORD")
		})
	}
}

// fakeQueue hands published tasks straight to the subscriber.
type fakeQueue struct {
	tasks []*queue.Task
}

func (f *fakeQueue) Publish(_ context.Context, task *queue.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) Subscribe(_ context.Context, handler func(*queue.Task) error) error {
	for _, task := range f.tasks {
		if err := handler(task); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQueue) Close() error { return nil }

type captureSink struct {
	owner string
	last  Notification
	calls int
}

func (c *captureSink) Send(_ context.Context, owner string, n Notification) error {
	c.owner = owner
	c.last = n
	c.calls++
	return nil
}

func TestQueueSinkRoundTrip(t *testing.T) {
	q := &fakeQueue{}
	sink := NewQueueSink(q)

	scheduled := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	original := Notification{
		BookingID:     42,
		Type:          entity.BookingTypeTraining,
		LeadHours:     6,
		ScheduledTime: scheduled,
		PlayerName:    "Frost",
		AllianceName:  "NORD",
	}

	require.NoError(t, sink.Send(context.Background(), "chat-123", original))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, queue.TaskTypeSendReminder, q.tasks[0].Type)
	assert.Zero(t, q.tasks[0].MaxRetries)

	delivery := &captureSink{}
	consumer := NewConsumer(q, delivery)
	require.NoError(t, consumer.Run(context.Background()))

	assert.Equal(t, 1, delivery.calls)
	assert.Equal(t, "chat-123", delivery.owner)
	assert.Equal(t, original.BookingID, delivery.last.BookingID)
	assert.Equal(t, original.Type, delivery.last.Type)
	assert.Equal(t, original.LeadHours, delivery.last.LeadHours)
	assert.True(t, delivery.last.ScheduledTime.Equal(scheduled))
	assert.Equal(t, original.PlayerName, delivery.last.PlayerName)
}
