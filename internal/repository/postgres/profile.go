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

// profileDataSource reads the raw material a behavioral profile is
// built from. Each method is one of the four independent reads; absence
// of data is not an error, it just yields an empty slice of the
// profile.
type profileDataSource struct {
	db *sqlx.DB
}

func NewProfileDataSource(db *sqlx.DB) repository.ProfileDataSource {
	return &profileDataSource{db: db}
}

func (s *profileDataSource) ReadingPatterns(ctx context.Context, userID uuid.UUID) (model.ReadingPatterns, error) {
	query := `
		SELECT COALESCE(AVG(duration_minutes), 0)   AS avg_session,
			   COALESCE(COUNT(*)::float / 30.0, 0) AS per_day
		FROM reading_sessions
		WHERE user_id = $1 AND started_at >= now() - interval '30 days'
	`
	var row struct {
		AvgSession float64 `db:"avg_session"`
		PerDay     float64 `db:"per_day"`
	}
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		return model.ReadingPatterns{}, fmt.Errorf("failed to read reading sessions: %w", err)
	}

	patterns := model.ReadingPatterns{
		AvgSessionMinutes: row.AvgSession,
		ArticlesPerDay:    row.PerDay,
		PreferredLength:   "medium",
	}
	if row.AvgSession > 10 {
		patterns.PreferredLength = "long"
	} else if row.AvgSession > 0 && row.AvgSession < 3 {
		patterns.PreferredLength = "short"
	}
	return patterns, nil
}

func (s *profileDataSource) Interactions(ctx context.Context, userID uuid.UUID) (model.EngagementHistory, model.TemporalPreferences, error) {
	query := `
		SELECT EXTRACT(hour FROM created_at)::int AS hour,
			   COUNT(*)                           AS total,
			   COALESCE(AVG(CASE WHEN engaged THEN 1.0 ELSE 0.0 END), 0) AS rate
		FROM interactions
		WHERE user_id = $1 AND created_at >= now() - interval '30 days'
		GROUP BY 1
	`
	var rows []struct {
		Hour  int     `db:"hour"`
		Total int     `db:"total"`
		Rate  float64 `db:"rate"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return model.EngagementHistory{}, model.TemporalPreferences{}, fmt.Errorf("failed to read interactions: %w", err)
	}

	var history model.EngagementHistory
	var temporal model.TemporalPreferences
	var rateSum float64
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			temporal.HourlyDistribution[row.Hour] = float64(row.Total)
		}
		history.TotalInteractions += row.Total
		rateSum += row.Rate * float64(row.Total)
	}
	if history.TotalInteractions > 0 {
		history.AvgEngagementRate = rateSum / float64(history.TotalInteractions)
	}
	return history, temporal, nil
}

func (s *profileDataSource) StatedPreferences(ctx context.Context, userID uuid.UUID) (model.ContentPreferences, error) {
	query := `
		SELECT COALESCE(topics, '{}')    AS topics,
			   COALESCE(languages, '{}') AS languages,
			   COALESCE(muted, '{}')     AS muted
		FROM user_preferences
		WHERE user_id = $1
	`
	var row struct {
		Topics    pq.StringArray `db:"topics"`
		Languages pq.StringArray `db:"languages"`
		Muted     pq.StringArray `db:"muted"`
	}
	if err := s.db.GetContext(ctx, &row, query, userID); err != nil {
		return model.ContentPreferences{}, fmt.Errorf("failed to read stated preferences: %w", err)
	}
	return model.ContentPreferences{
		Topics:    []string(row.Topics),
		Languages: []string(row.Languages),
		Muted:     []string(row.Muted),
	}, nil
}

func (s *profileDataSource) BehaviorSignals(ctx context.Context, userID uuid.UUID) (map[string]float64, error) {
	query := `
		SELECT topic, score
		FROM user_topic_scores
		WHERE user_id = $1
	`
	var rows []struct {
		Topic string  `db:"topic"`
		Score float64 `db:"score"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to read behavior signals: %w", err)
	}

	interests := make(map[string]float64, len(rows))
	for _, row := range rows {
		interests[row.Topic] = row.Score
	}
	return interests, nil
}
