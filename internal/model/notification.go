package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusScheduled  NotificationStatus = "scheduled"
	NotificationStatusSent       NotificationStatus = "sent"
	NotificationStatusOpened     NotificationStatus = "opened"
	NotificationStatusClicked    NotificationStatus = "clicked"
	NotificationStatusSuppressed NotificationStatus = "suppressed"
	NotificationStatusFailed     NotificationStatus = "failed"
)

type Channel string

const (
	ChannelMobilePush Channel = "mobile_push"
	ChannelWebPush    Channel = "web_push"
	ChannelEmail      Channel = "email"
	ChannelSMS        Channel = "sms"
	ChannelInApp      Channel = "in_app"
	ChannelSocket     Channel = "socket"
)

type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityBreaking  Priority = "breaking"
	PriorityUrgent    Priority = "urgent"
	PriorityHigh      Priority = "high"
	PriorityNormal    Priority = "normal"
	PriorityLow       Priority = "low"
)

// IsImmediate reports whether the priority bypasses timing optimization
// and quiet hours entirely.
func (p Priority) IsImmediate() bool {
	return p == PriorityEmergency || p == PriorityBreaking
}

// PersonalizationData holds the four scores attached to every
// notification. All values are bounded to [0,1].
type PersonalizationData struct {
	RelevanceScore       float64 `json:"relevance_score"`
	TimingScore          float64 `json:"timing_score"`
	EngagementPrediction float64 `json:"engagement_prediction"`
	ContentSimilarity    float64 `json:"content_similarity"`
}

type AIMetadata struct {
	ModelVersion        string  `json:"model_version"`
	ConfidenceScore     float64 `json:"confidence_score"`
	OptimizationApplied bool    `json:"optimization_applied"`
	LearningFeedback    string  `json:"learning_feedback,omitempty"`
}

type Notification struct {
	ID                  uuid.UUID           `db:"id" json:"id"`
	UserID              uuid.UUID           `db:"user_id" json:"user_id"`
	Title               string              `db:"title" json:"title"`
	Message             string              `db:"message" json:"message"`
	ContentID           *uuid.UUID          `db:"content_id" json:"content_id,omitempty"`
	Priority            Priority            `db:"priority" json:"priority"`
	Channel             Channel             `db:"channel" json:"channel"`
	Status              NotificationStatus  `db:"status" json:"status"`
	ScheduledAt         time.Time           `db:"scheduled_at" json:"scheduled_at"`
	SentAt              *time.Time          `db:"sent_at" json:"sent_at,omitempty"`
	OpenedAt            *time.Time          `db:"opened_at" json:"opened_at,omitempty"`
	ClickedAt           *time.Time          `db:"clicked_at" json:"clicked_at,omitempty"`
	PersonalizationData PersonalizationData `db:"personalization_data" json:"personalization_data"`
	AIMetadata          AIMetadata          `db:"ai_metadata" json:"ai_metadata"`
	CreatedAt           time.Time           `db:"created_at" json:"created_at"`
}

// Value/Scan make the score bundle a JSONB column.
func (p PersonalizationData) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PersonalizationData) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for personalization_data", src)
	}
	return json.Unmarshal(b, p)
}

func (m AIMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *AIMetadata) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for ai_metadata", src)
	}
	return json.Unmarshal(b, m)
}

// NotificationRequest is the engine's input. It is never persisted.
type NotificationRequest struct {
	UserID           uuid.UUID              `json:"user_id" binding:"required"`
	TemplateID       string                 `json:"template_id" binding:"required"`
	ContentData      map[string]interface{} `json:"content_data"`
	ContentID        *uuid.UUID             `json:"content_id,omitempty"`
	Priority         Priority               `json:"priority,omitempty" binding:"omitempty,priority"`
	PreferredChannel Channel                `json:"preferred_channel,omitempty" binding:"omitempty,channel"`
	ScheduleAt       *time.Time             `json:"schedule_at,omitempty"`
	Personalize      *bool                  `json:"personalize,omitempty"`
	OptimizeTiming   *bool                  `json:"optimize_timing,omitempty"`
}

// PersonalizeEnabled defaults to true when the flag is omitted.
func (r *NotificationRequest) PersonalizeEnabled() bool {
	return r.Personalize == nil || *r.Personalize
}

// OptimizeTimingEnabled defaults to true when the flag is omitted.
func (r *NotificationRequest) OptimizeTimingEnabled() bool {
	return r.OptimizeTiming == nil || *r.OptimizeTiming
}
