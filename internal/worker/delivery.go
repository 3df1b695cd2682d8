package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jwalitptl/notify-engine/internal/email"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/internal/scheduler"
	"github.com/jwalitptl/notify-engine/pkg/logger"
	"github.com/jwalitptl/notify-engine/pkg/messaging"
)

const inAppChannel = "notifications:inapp"

// DeliveryWorker consumes scheduler handoffs and performs transport.
// It owns the scheduled -> sent/failed transitions; the engine itself
// never touches status after creation.
type DeliveryWorker struct {
	store      repository.NotificationRepository
	recipients repository.RecipientResolver
	emailSvc   email.Service
	broker     messaging.Broker
	channel    string
	logger     *logger.Logger
}

func NewDeliveryWorker(
	store repository.NotificationRepository,
	recipients repository.RecipientResolver,
	emailSvc email.Service,
	broker messaging.Broker,
	channel string,
	logger *logger.Logger,
) *DeliveryWorker {
	return &DeliveryWorker{
		store:      store,
		recipients: recipients,
		emailSvc:   emailSvc,
		broker:     broker,
		channel:    channel,
		logger:     logger,
	}
}

// Run blocks consuming handoffs until the context is cancelled.
func (w *DeliveryWorker) Run(ctx context.Context) error {
	msgs, err := w.broker.Subscribe(ctx, w.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.channel, err)
	}

	w.logger.ZL.Info().Str("channel", w.channel).Msg("delivery worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.ZL.Info().Msg("delivery worker shutting down")
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			var handoff scheduler.Handoff
			if err := json.Unmarshal(payload, &handoff); err != nil {
				w.logger.ZL.Error().Err(err).Msg("failed to decode handoff")
				continue
			}
			go w.deliverAt(ctx, handoff)
		}
	}
}

func (w *DeliveryWorker) deliverAt(ctx context.Context, handoff scheduler.Handoff) {
	if wait := time.Until(handoff.ScheduledAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
	w.deliver(ctx, handoff)
}

func (w *DeliveryWorker) deliver(ctx context.Context, handoff scheduler.Handoff) {
	n, err := w.store.Get(ctx, handoff.NotificationID)
	if err != nil {
		w.logger.ZL.Error().Err(err).
			Str("notification_id", handoff.NotificationID.String()).
			Msg("failed to load notification for delivery")
		return
	}
	if n.Status != model.NotificationStatusScheduled {
		return
	}

	if err := w.transport(ctx, n); err != nil {
		w.logger.ZL.Error().Err(err).
			Str("notification_id", n.ID.String()).
			Str("channel", string(n.Channel)).
			Msg("delivery failed")
		if markErr := w.store.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			w.logger.ZL.Error().Err(markErr).
				Str("notification_id", n.ID.String()).
				Msg("failed to mark notification failed")
		}
		return
	}

	if err := w.store.MarkSent(ctx, n.ID, time.Now()); err != nil {
		w.logger.ZL.Error().Err(err).
			Str("notification_id", n.ID.String()).
			Msg("failed to mark notification sent")
		return
	}

	w.logger.ZL.Info().
		Str("notification_id", n.ID.String()).
		Str("channel", string(n.Channel)).
		Msg("notification delivered")
}

func (w *DeliveryWorker) transport(ctx context.Context, n *model.Notification) error {
	switch n.Channel {
	case model.ChannelEmail:
		to, err := w.recipients.UserEmail(ctx, n.UserID)
		if err != nil {
			return fmt.Errorf("failed to resolve recipient: %w", err)
		}
		return w.emailSvc.SendNotification(ctx, to, n.Title, n.Message)
	case model.ChannelInApp, model.ChannelSocket:
		return w.broker.Publish(ctx, inAppChannel, n)
	case model.ChannelMobilePush, model.ChannelWebPush, model.ChannelSMS:
		// Provider wire formats live behind separate gateways; here the
		// handoff is logged only.
		w.logger.ZL.Debug().
			Str("notification_id", n.ID.String()).
			Str("channel", string(n.Channel)).
			Msg("forwarded to provider gateway")
		return nil
	default:
		return fmt.Errorf("unsupported channel: %s", n.Channel)
	}
}
