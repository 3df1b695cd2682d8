package model

import (
	"time"

	"github.com/google/uuid"
)

// QuietHours is an hour-of-day window during which non-urgent
// notifications must not fire. Start > End means the window wraps past
// midnight (e.g. 22 -> 8).
type QuietHours struct {
	StartHour int `json:"start_hour" yaml:"start_hour"`
	EndHour   int `json:"end_hour" yaml:"end_hour"`
}

// Contains reports whether the hour falls inside the window, inclusive
// of the start hour and exclusive of the end hour.
func (q QuietHours) Contains(hour int) bool {
	if q.StartHour == q.EndHour {
		return false
	}
	if q.StartHour < q.EndHour {
		return hour >= q.StartHour && hour < q.EndHour
	}
	return hour >= q.StartHour || hour < q.EndHour
}

type UserNotificationConfig struct {
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	EnabledChannels []Channel  `db:"-" json:"enabled_channels"`
	QuietHours      QuietHours `db:"-" json:"quiet_hours"`
}

// ChannelEnabled reports membership in the enabled channel set.
func (c *UserNotificationConfig) ChannelEnabled(ch Channel) bool {
	for _, enabled := range c.EnabledChannels {
		if enabled == ch {
			return true
		}
	}
	return false
}

// ReadingPatterns summarizes a user's recent reading sessions.
type ReadingPatterns struct {
	AvgSessionMinutes float64 `json:"avg_session_minutes"`
	ArticlesPerDay    float64 `json:"articles_per_day"`
	PreferredLength   string  `json:"preferred_length"`
}

// EngagementHistory aggregates past interactions with notifications
// and content.
type EngagementHistory struct {
	AvgEngagementRate float64    `json:"avg_engagement_rate"`
	TotalInteractions int        `json:"total_interactions"`
	LastInteractionAt *time.Time `json:"last_interaction_at,omitempty"`
}

// TemporalPreferences records when the user is active. The histogram
// has one bucket per hour of day.
type TemporalPreferences struct {
	HourlyDistribution [24]float64 `json:"hourly_distribution"`
}

// ContentPreferences holds explicitly stated preferences.
type ContentPreferences struct {
	Topics    []string `json:"topics"`
	Languages []string `json:"languages"`
	Muted     []string `json:"muted"`
}

// UserProfile is a cached, ephemeral behavioral profile. It is rebuilt
// whole on cache expiry and is never the system of record.
type UserProfile struct {
	UserID              uuid.UUID           `json:"user_id"`
	ReadingPatterns     ReadingPatterns     `json:"reading_patterns"`
	Interests           map[string]float64  `json:"interests"`
	EngagementHistory   EngagementHistory   `json:"engagement_history"`
	TemporalPreferences TemporalPreferences `json:"temporal_preferences"`
	ContentPreferences  ContentPreferences  `json:"content_preferences"`
	LastAnalyzed        time.Time           `json:"last_analyzed"`
}

// ContentAnalysis is the output of the external content-analysis
// capability.
type ContentAnalysis struct {
	Categories []string `json:"categories"`
	Sentiment  float64  `json:"sentiment"`
	Language   string   `json:"language"`
}
