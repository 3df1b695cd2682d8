package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, title, message, content_id,
			priority, channel, status, scheduled_at,
			personalization_data, ai_metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.ContentID,
		n.Priority,
		n.Channel,
		n.Status,
		n.ScheduledAt,
		n.PersonalizationData,
		n.AIMetadata,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT id, user_id, title, message, content_id,
			   priority, channel, status, scheduled_at,
			   sent_at, opened_at, clicked_at,
			   personalization_data, ai_metadata, created_at
		FROM notifications
		WHERE id = $1
	`
	var n model.Notification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *notificationRepository) QueryRecent(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Notification, error) {
	query := `
		SELECT id, user_id, title, message, content_id,
			   priority, channel, status, scheduled_at,
			   sent_at, opened_at, clicked_at,
			   personalization_data, ai_metadata, created_at
		FROM notifications
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, since); err != nil {
		return nil, fmt.Errorf("failed to query recent notifications: %w", err)
	}
	return notifications, nil
}

// Status transitions are guarded in SQL so a stale or out-of-order
// update can never move a notification backwards.

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET status = $1, sent_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.transition(ctx, query, model.NotificationStatusSent, at, id, model.NotificationStatusScheduled)
}

func (r *notificationRepository) MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET status = $1, opened_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.transition(ctx, query, model.NotificationStatusOpened, at, id, model.NotificationStatusSent)
}

func (r *notificationRepository) MarkClicked(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET status = $1, clicked_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.transition(ctx, query, model.NotificationStatusClicked, at, id, model.NotificationStatusOpened)
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE notifications
		SET status = $1, ai_metadata = jsonb_set(ai_metadata, '{learning_feedback}', to_jsonb($2::text))
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, model.NotificationStatusFailed, reason, id, model.NotificationStatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return checkTransition(result)
}

func (r *notificationRepository) transition(ctx context.Context, query string, to model.NotificationStatus, at time.Time, id uuid.UUID, from model.NotificationStatus) error {
	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return checkTransition(result)
}

func checkTransition(result interface{ RowsAffected() (int64, error) }) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invalid status transition")
	}
	return nil
}
