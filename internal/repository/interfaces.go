package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// NotificationRepository is the engine's system of record for
// notifications. Insert is all-or-nothing; the Mark* operations drive
// the forward-only status machine and belong to the delivery pipeline,
// not to the orchestrator.
type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	QueryRecent(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkOpened(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkClicked(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// ConfigRepository reads stored per-user notification configuration.
// Absence is reported as an error; the caller substitutes the default.
type ConfigRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserNotificationConfig, error)
}

// RecipientResolver maps a user to a transport address. Used by the
// delivery worker, not by the submission pipeline.
type RecipientResolver interface {
	UserEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

// ProfileDataSource exposes the four independent reads a profile is
// built from. Each may fail independently; callers degrade the failed
// slice to its zero value.
type ProfileDataSource interface {
	ReadingPatterns(ctx context.Context, userID uuid.UUID) (model.ReadingPatterns, error)
	Interactions(ctx context.Context, userID uuid.UUID) (model.EngagementHistory, model.TemporalPreferences, error)
	StatedPreferences(ctx context.Context, userID uuid.UUID) (model.ContentPreferences, error)
	BehaviorSignals(ctx context.Context, userID uuid.UUID) (map[string]float64, error)
}
