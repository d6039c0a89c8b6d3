package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/warcamp/booker/internal/entity"
	"github.com/warcamp/booker/pkg/queue"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QueueSink publishes notifications to the Redis queue instead of
// sending them inline. Retries stay disabled: delivery is at most once,
// and a dropped task is only a lost reminder.
type QueueSink struct {
	queue queue.Queue
}

func NewQueueSink(q queue.Queue) *QueueSink {
	return &QueueSink{queue: q}
}

func (s *QueueSink) Send(ctx context.Context, owner string, n Notification) error {
	task := &queue.Task{
		ID:   uuid.NewString(),
		Type: queue.TaskTypeSendReminder,
		Data: map[string]interface{}{
			"owner":          owner,
			"booking_id":     n.BookingID,
			"booking_type":   string(n.Type),
			"lead_hours":     n.LeadHours,
			"scheduled_time": n.ScheduledTime.Format(time.RFC3339),
			"player_name":    n.PlayerName,
			"alliance_name":  n.AllianceName,
		},
		ExecuteAt:  time.Now(),
		MaxRetries: 0,
	}

	if err := s.queue.Publish(ctx, task); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrNotificationDelivery, err)
	}
	return nil
}

// Consumer drains reminder tasks from the queue and delivers them
// through the given sink.
type Consumer struct {
	queue queue.Queue
	sink  Sink
}

func NewConsumer(q queue.Queue, sink Sink) *Consumer {
	return &Consumer{queue: q, sink: sink}
}

func (c *Consumer) Run(ctx context.Context) error {
	return c.queue.Subscribe(ctx, func(task *queue.Task) error {
		if task.Type != queue.TaskTypeSendReminder {
			logrus.WithField("task_type", task.Type).Warn("Skipping unknown task type")
			return nil
		}

		n := Notification{
			BookingID:     task.GetInt64("booking_id"),
			Type:          entity.BookingType(task.GetString("booking_type")),
			LeadHours:     task.GetInt("lead_hours"),
			ScheduledTime: task.GetTime("scheduled_time"),
			PlayerName:    task.GetString("player_name"),
			AllianceName:  task.GetString("alliance_name"),
		}
		return c.sink.Send(ctx, task.GetString("owner"), n)
	})
}
