package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
)

type configRepository struct {
	db *sqlx.DB
}

func NewConfigRepository(db *sqlx.DB) repository.ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Get(ctx context.Context, userID uuid.UUID) (*model.UserNotificationConfig, error) {
	query := `
		SELECT user_id, enabled_channels, quiet_start_hour, quiet_end_hour
		FROM user_notification_configs
		WHERE user_id = $1
	`
	var row struct {
		UserID          uuid.UUID      `db:"user_id"`
		EnabledChannels pq.StringArray `db:"enabled_channels"`
		QuietStartHour  int            `db:"quiet_start_hour"`
		QuietEndHour    int            `db:"quiet_end_hour"`
	}
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get notification config: %w", err)
	}

	cfg := &model.UserNotificationConfig{
		UserID: row.UserID,
		QuietHours: model.QuietHours{
			StartHour: row.QuietStartHour,
			EndHour:   row.QuietEndHour,
		},
	}
	for _, ch := range row.EnabledChannels {
		cfg.EnabledChannels = append(cfg.EnabledChannels, model.Channel(ch))
	}
	return cfg, nil
}
