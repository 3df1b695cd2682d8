package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/internal/service/channel"
	"github.com/jwalitptl/notify-engine/internal/service/dedup"
	"github.com/jwalitptl/notify-engine/internal/service/personalize"
	"github.com/jwalitptl/notify-engine/internal/service/profile"
	"github.com/jwalitptl/notify-engine/internal/service/timing"
	apperrors "github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// DeliveryScheduler receives the persisted notification for actual
// transport. The handoff is fire-and-forget: delivery, retries and
// status updates happen downstream.
type DeliveryScheduler interface {
	Schedule(ctx context.Context, notificationID uuid.UUID, scheduledAt time.Time) error
}

// Service orchestrates one notification submission through the fixed
// pipeline: config, profile, personalization, channel, timing,
// deduplication, scoring, persistence, scheduler handoff. Stages never
// reorder and never run concurrently with each other; only the profile
// build fans out internally.
type Service struct {
	configs      repository.ConfigRepository
	store        repository.NotificationRepository
	profiles     *profile.Analyzer
	personalizer *personalize.Personalizer
	channels     *channel.Selector
	timing       *timing.Optimizer
	guard        *dedup.Guard
	scheduler    DeliveryScheduler
	cfg          config.EngineConfig
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

func NewService(
	configs repository.ConfigRepository,
	store repository.NotificationRepository,
	profiles *profile.Analyzer,
	personalizer *personalize.Personalizer,
	channels *channel.Selector,
	optimizer *timing.Optimizer,
	guard *dedup.Guard,
	scheduler DeliveryScheduler,
	cfg config.EngineConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		configs:      configs,
		store:        store,
		profiles:     profiles,
		personalizer: personalizer,
		channels:     channels,
		timing:       optimizer,
		guard:        guard,
		scheduler:    scheduler,
		cfg:          cfg,
		metrics:      m,
		logger:       logger,
	}
}

// Submit runs one request through the pipeline and returns the
// persisted notification, or a typed rejection. Validation and
// suppression reject before any side effect; upstream degradations are
// absorbed into documented defaults; persistence and scheduling
// failures propagate unchanged.
func (s *Service) Submit(ctx context.Context, req *model.NotificationRequest) (*model.Notification, error) {
	if err := s.validate(req); err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	userCfg := s.resolveConfig(ctx, req.UserID)
	userProfile := s.stageProfile(ctx, req.UserID)
	content := s.stagePersonalize(ctx, req, userProfile)
	selected := s.stageChannel(ctx, req, userCfg)
	scheduledAt := s.stageTiming(req, userCfg, userProfile)

	dup, err := s.stageDedup(ctx, req.UserID, content.Title)
	if err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("persist_error").Inc()
		return nil, apperrors.Persistence(err)
	}
	if dup != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("suppressed").Inc()
		s.metrics.Suppressions.Inc()
		s.logger.Info().
			Str("user_id", req.UserID.String()).
			Str("duplicate_of", dup.NotificationID.String()).
			Float64("similarity", dup.Similarity).
			Msg("notification skipped as near-duplicate")
		return nil, apperrors.Suppressed(fmt.Sprintf("near-duplicate of notification %s", dup.NotificationID))
	}

	scores := personalize.Score(userProfile, content, scheduledAt.Hour())

	n := &model.Notification{
		ID:                  newID(),
		UserID:              req.UserID,
		Title:               content.Title,
		Message:             content.Message,
		ContentID:           req.ContentID,
		Priority:            priorityOrDefault(req.Priority),
		Channel:             selected,
		Status:              model.NotificationStatusScheduled,
		ScheduledAt:         scheduledAt,
		PersonalizationData: scores,
		AIMetadata: model.AIMetadata{
			ModelVersion:        s.cfg.ModelVersion,
			ConfidenceScore:     scores.RelevanceScore,
			OptimizationApplied: true,
		},
		CreatedAt: time.Now(),
	}
	// Invariant: scheduled_at >= created_at, with exact equality on the
	// immediate path.
	if n.Priority.IsImmediate() {
		n.CreatedAt = n.ScheduledAt
	} else if n.ScheduledAt.Before(n.CreatedAt) {
		n.ScheduledAt = n.CreatedAt
	}

	if err := s.stagePersist(ctx, n); err != nil {
		s.metrics.SubmissionsTotal.WithLabelValues("persist_error").Inc()
		return nil, apperrors.Persistence(err)
	}

	if err := s.stageHandoff(ctx, n); err != nil {
		s.metrics.HandoffFailures.Inc()
		s.metrics.SubmissionsTotal.WithLabelValues("schedule_error").Inc()
		return nil, apperrors.Scheduling(err)
	}
	s.metrics.ScheduledHandoffs.Inc()
	s.metrics.SubmissionsTotal.WithLabelValues("scheduled").Inc()

	s.logger.Info().
		Str("notification_id", n.ID.String()).
		Str("user_id", n.UserID.String()).
		Str("channel", string(n.Channel)).
		Time("scheduled_at", n.ScheduledAt).
		Float64("relevance", scores.RelevanceScore).
		Msg("notification scheduled")

	return n, nil
}

func (s *Service) validate(req *model.NotificationRequest) error {
	if req.UserID == uuid.Nil {
		return apperrors.Validation("user_id is required")
	}
	if req.TemplateID == "" {
		return apperrors.Validation("template_id is required")
	}
	return nil
}

// resolveConfig never returns nil: a missing or unreadable stored
// config degrades to the documented defaults.
func (s *Service) resolveConfig(ctx context.Context, userID uuid.UUID) *model.UserNotificationConfig {
	defer s.stageTimer("config")()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	defer cancel()

	cfg, err := s.configs.Get(callCtx, userID)
	if err != nil {
		return s.DefaultConfig(userID)
	}
	if len(cfg.EnabledChannels) == 0 {
		cfg.EnabledChannels = append([]model.Channel(nil), s.cfg.DefaultChannels...)
	}
	return cfg
}

// DefaultConfig is the fallback configuration for users with nothing
// stored. It is stable across calls.
func (s *Service) DefaultConfig(userID uuid.UUID) *model.UserNotificationConfig {
	return &model.UserNotificationConfig{
		UserID:          userID,
		EnabledChannels: append([]model.Channel(nil), s.cfg.DefaultChannels...),
		QuietHours:      s.cfg.DefaultQuietHours,
	}
}

func (s *Service) stageProfile(ctx context.Context, userID uuid.UUID) *model.UserProfile {
	defer s.stageTimer("profile")()
	return s.profiles.Get(ctx, userID)
}

func (s *Service) stagePersonalize(ctx context.Context, req *model.NotificationRequest, p *model.UserProfile) *personalize.Content {
	defer s.stageTimer("personalize")()
	return s.personalizer.Personalize(ctx, req, p)
}

func (s *Service) stageChannel(ctx context.Context, req *model.NotificationRequest, cfg *model.UserNotificationConfig) model.Channel {
	defer s.stageTimer("channel")()
	return s.channels.Select(ctx, req.UserID, req.PreferredChannel, cfg, priorityOrDefault(req.Priority))
}

func (s *Service) stageTiming(req *model.NotificationRequest, cfg *model.UserNotificationConfig, p *model.UserProfile) time.Time {
	defer s.stageTimer("timing")()
	return s.timing.Schedule(req, cfg, p)
}

func (s *Service) stageDedup(ctx context.Context, userID uuid.UUID, title string) (*dedup.Duplicate, error) {
	defer s.stageTimer("dedup")()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	defer cancel()
	return s.guard.Check(callCtx, userID, title)
}

func (s *Service) stagePersist(ctx context.Context, n *model.Notification) error {
	defer s.stageTimer("persist")()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	defer cancel()
	return s.store.Insert(callCtx, n)
}

func (s *Service) stageHandoff(ctx context.Context, n *model.Notification) error {
	defer s.stageTimer("handoff")()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
	defer cancel()
	return s.scheduler.Schedule(callCtx, n.ID, n.ScheduledAt)
}

func (s *Service) stageTimer(stage string) func() {
	timer := prometheus.NewTimer(s.metrics.StageLatency.WithLabelValues(stage))
	return func() { timer.ObserveDuration() }
}

func priorityOrDefault(p model.Priority) model.Priority {
	if p == "" {
		return model.PriorityNormal
	}
	return p
}

// newID produces a time-ordered unique id, falling back to a random
// UUID if v7 generation fails.
func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
