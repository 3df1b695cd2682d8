package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/pkg/messaging"
)

// Handoff is the message published for each scheduled notification.
// The delivery worker consumes it and performs the actual transport.
type Handoff struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
}

// BrokerScheduler hands scheduled notifications to the delivery
// pipeline over the message broker.
type BrokerScheduler struct {
	broker  messaging.Broker
	channel string
}

func NewBrokerScheduler(broker messaging.Broker, channel string) *BrokerScheduler {
	return &BrokerScheduler{
		broker:  broker,
		channel: channel,
	}
}

func (s *BrokerScheduler) Schedule(ctx context.Context, notificationID uuid.UUID, scheduledAt time.Time) error {
	msg := Handoff{
		NotificationID: notificationID,
		ScheduledAt:    scheduledAt,
	}
	if err := s.broker.Publish(ctx, s.channel, msg); err != nil {
		return fmt.Errorf("failed to publish delivery handoff: %w", err)
	}
	return nil
}
