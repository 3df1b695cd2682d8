package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/config"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/service/channel"
	"github.com/jwalitptl/notify-engine/internal/service/dedup"
	"github.com/jwalitptl/notify-engine/internal/service/personalize"
	"github.com/jwalitptl/notify-engine/internal/service/profile"
	"github.com/jwalitptl/notify-engine/internal/service/timing"
	apperrors "github.com/jwalitptl/notify-engine/pkg/errors"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// One registry per test binary; promauto registers globally.
var testMetrics = metrics.New("notification_test")

type fakeConfigs struct {
	cfg *model.UserNotificationConfig
	err error
}

func (f *fakeConfigs) Get(context.Context, uuid.UUID) (*model.UserNotificationConfig, error) {
	return f.cfg, f.err
}

// memStore is an in-memory NotificationRepository.
type memStore struct {
	mu        sync.Mutex
	items     []*model.Notification
	insertErr error
	queryErr  error
}

func (s *memStore) Insert(_ context.Context, n *model.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return nil
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *memStore) QueryRecent(_ context.Context, userID uuid.UUID, since time.Time) ([]*model.Notification, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Notification
	for _, n := range s.items {
		if n.UserID == userID && n.CreatedAt.After(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *memStore) MarkSent(context.Context, uuid.UUID, time.Time) error    { return nil }
func (s *memStore) MarkOpened(context.Context, uuid.UUID, time.Time) error  { return nil }
func (s *memStore) MarkClicked(context.Context, uuid.UUID, time.Time) error { return nil }
func (s *memStore) MarkFailed(context.Context, uuid.UUID, string) error     { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakeScheduler) Schedule(_ context.Context, id uuid.UUID, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return nil
}

func (f *fakeScheduler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAnalyzer struct {
	analysis *model.ContentAnalysis
	err      error
}

func (f *fakeAnalyzer) Analyze(context.Context, map[string]interface{}) (*model.ContentAnalysis, error) {
	return f.analysis, f.err
}

// fakeSource feeds the profile analyzer a fixed interest map; every
// other read comes back empty.
type fakeSource struct {
	interests map[string]float64
}

func (f *fakeSource) ReadingPatterns(context.Context, uuid.UUID) (model.ReadingPatterns, error) {
	return model.ReadingPatterns{}, nil
}

func (f *fakeSource) Interactions(context.Context, uuid.UUID) (model.EngagementHistory, model.TemporalPreferences, error) {
	return model.EngagementHistory{AvgEngagementRate: 0.6}, model.TemporalPreferences{}, nil
}

func (f *fakeSource) StatedPreferences(context.Context, uuid.UUID) (model.ContentPreferences, error) {
	return model.ContentPreferences{}, nil
}

func (f *fakeSource) BehaviorSignals(context.Context, uuid.UUID) (map[string]float64, error) {
	return f.interests, nil
}

type fixture struct {
	svc       *Service
	store     *memStore
	scheduler *fakeScheduler
}

func newFixture(configs *fakeConfigs, analyzer *fakeAnalyzer, interests map[string]float64) *fixture {
	engineCfg := config.EngineConfig{
		ProfileCacheTTL:     time.Minute,
		ProfileCacheCleanup: time.Minute,
		DedupWindow:         24 * time.Hour,
		DedupThreshold:      0.8,
		DefaultChannels:     []model.Channel{model.ChannelInApp, model.ChannelEmail, model.ChannelWebPush},
		// Disabled window keeps scheduling deterministic regardless of
		// when the test runs.
		DefaultQuietHours:   model.QuietHours{StartHour: 0, EndHour: 0},
		TimingBuffer:        5 * time.Minute,
		ExternalCallTimeout: time.Second,
		ModelVersion:        "personalization-v2",
	}

	logger := zerolog.Nop()
	store := &memStore{}
	scheduler := &fakeScheduler{}

	profiles := profile.NewAnalyzer(&fakeSource{interests: interests}, profile.Config{
		CacheTTL:        engineCfg.ProfileCacheTTL,
		CleanupInterval: engineCfg.ProfileCacheCleanup,
		CallTimeout:     engineCfg.ExternalCallTimeout,
	}, testMetrics, logger)

	svc := NewService(
		configs,
		store,
		profiles,
		personalize.NewPersonalizer(analyzer, engineCfg.ExternalCallTimeout, logger),
		channel.NewSelector(channel.NewStaticChecker(), engineCfg.ExternalCallTimeout, logger),
		timing.NewOptimizer(engineCfg.TimingBuffer),
		dedup.NewGuard(store, engineCfg.DedupWindow, engineCfg.DedupThreshold),
		scheduler,
		engineCfg,
		testMetrics,
		logger,
	)

	return &fixture{svc: svc, store: store, scheduler: scheduler}
}

func TestSubmitNewUserEndToEnd(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{Categories: []string{"sports", "politics"}}},
		map[string]float64{"sports": 0.9},
	)

	before := time.Now()
	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     uuid.New(),
		TemplateID: "match_result",
		ContentData: map[string]interface{}{
			"headline": "City wins the derby",
			"summary":  "Late goal decides it",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, model.NotificationStatusScheduled, n.Status)
	assert.Equal(t, "City wins the derby", n.Title)
	assert.Contains(t, n.Message, "Late goal decides it")
	assert.Contains(t, n.Message, "sports")
	assert.Equal(t, model.ChannelInApp, n.Channel)
	assert.Equal(t, model.PriorityNormal, n.Priority)

	// Overlap of {sports: 0.9} with two categories.
	assert.InDelta(t, 0.45, n.PersonalizationData.RelevanceScore, 1e-9)
	assert.Greater(t, n.PersonalizationData.RelevanceScore, 0.0)

	assert.False(t, n.ScheduledAt.Before(n.CreatedAt), "scheduled_at must not precede created_at")
	assert.False(t, n.ScheduledAt.Before(before))

	assert.Equal(t, "personalization-v2", n.AIMetadata.ModelVersion)
	assert.Equal(t, n.PersonalizationData.RelevanceScore, n.AIMetadata.ConfidenceScore)

	assert.Equal(t, 1, fx.store.count())
	assert.Equal(t, 1, fx.scheduler.callCount())
}

func TestSubmitSuppressesNearDuplicate(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{Categories: []string{"breaking"}}},
		nil,
	)
	userID := uuid.New()

	first, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     userID,
		TemplateID: "breaking_news",
		ContentData: map[string]interface{}{
			"headline": "زلزال بقوة 6.5 يضرب المنطقة الساحلية",
		},
	})
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     userID,
		TemplateID: "breaking_news",
		ContentData: map[string]interface{}{
			"headline": "زلزال بقوة 6.5 يضرب المنطقة الساحلية الآن",
		},
	})
	require.Error(t, err)
	assert.Nil(t, second)
	assert.True(t, apperrors.IsSuppressed(err))

	// The duplicate left no trace: no second row, no second handoff.
	assert.Equal(t, 1, fx.store.count())
	assert.Equal(t, 1, fx.scheduler.callCount())
}

func TestSubmitDuplicateTitleForOtherUserPasses(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{Categories: []string{"breaking"}}},
		nil,
	)
	headline := map[string]interface{}{"headline": "Storm warning issued for the coast"}

	_, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID: uuid.New(), TemplateID: "weather", ContentData: headline,
	})
	require.NoError(t, err)

	_, err = fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID: uuid.New(), TemplateID: "weather", ContentData: headline,
	})
	require.NoError(t, err, "dedup is scoped per user")
	assert.Equal(t, 2, fx.store.count())
}

func TestSubmitValidationRejectsBeforeSideEffects(t *testing.T) {
	fx := newFixture(&fakeConfigs{}, &fakeAnalyzer{}, nil)

	cases := []struct {
		name string
		req  *model.NotificationRequest
	}{
		{"missing user", &model.NotificationRequest{TemplateID: "welcome"}},
		{"missing template", &model.NotificationRequest{UserID: uuid.New()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := fx.svc.Submit(context.Background(), tc.req)
			assert.Nil(t, n)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
	assert.Zero(t, fx.store.count())
	assert.Zero(t, fx.scheduler.callCount())
}

func TestSubmitPersistFailurePropagates(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{}},
		nil,
	)
	fx.store.insertErr = errors.New("connection refused")

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     uuid.New(),
		TemplateID: "welcome",
	})
	assert.Nil(t, n)
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Zero(t, fx.scheduler.callCount())
}

func TestSubmitDedupStoreFailureIsPersistenceError(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{}},
		nil,
	)
	fx.store.queryErr = errors.New("read timeout")

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     uuid.New(),
		TemplateID: "welcome",
	})
	assert.Nil(t, n)
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.False(t, apperrors.IsSuppressed(err), "a store failure is not a suppression")
	assert.Zero(t, fx.store.count())
}

func TestSubmitSchedulingFailurePropagates(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{}},
		nil,
	)
	fx.scheduler.err = errors.New("broker down")

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     uuid.New(),
		TemplateID: "welcome",
	})
	assert.Nil(t, n)
	require.Error(t, err)
	assert.True(t, apperrors.IsScheduling(err))

	// The row was already written before the handoff failed.
	assert.Equal(t, 1, fx.store.count())
}

func TestSubmitImmediatePriorityPinsTimestamps(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{}},
		nil,
	)

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:     uuid.New(),
		TemplateID: "earthquake_alert",
		Priority:   model.PriorityEmergency,
	})
	require.NoError(t, err)
	assert.True(t, n.ScheduledAt.Equal(n.CreatedAt), "immediate delivery schedules at creation time")
	assert.Equal(t, model.PriorityEmergency, n.Priority)
}

func TestSubmitAnalyzerFailureFallsBackToTemplate(t *testing.T) {
	fx := newFixture(
		&fakeConfigs{err: errors.New("no stored config")},
		&fakeAnalyzer{err: errors.New("analysis service unavailable")},
		nil,
	)

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:      uuid.New(),
		TemplateID:  "daily_digest",
		ContentData: map[string]interface{}{"headline": "ignored on fallback"},
	})
	require.NoError(t, err)
	assert.Equal(t, "daily_digest", n.Title)
	assert.InDelta(t, 0.5, n.PersonalizationData.RelevanceScore, 1e-9)
}

func TestSubmitHonorsPreferredChannelFromStoredConfig(t *testing.T) {
	userID := uuid.New()
	fx := newFixture(
		&fakeConfigs{cfg: &model.UserNotificationConfig{
			UserID:          userID,
			EnabledChannels: []model.Channel{model.ChannelEmail, model.ChannelMobilePush},
		}},
		&fakeAnalyzer{analysis: &model.ContentAnalysis{}},
		nil,
	)

	n, err := fx.svc.Submit(context.Background(), &model.NotificationRequest{
		UserID:           userID,
		TemplateID:       "newsletter",
		PreferredChannel: model.ChannelEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelEmail, n.Channel)
}

func TestDefaultConfigIsStable(t *testing.T) {
	fx := newFixture(&fakeConfigs{}, &fakeAnalyzer{}, nil)
	userID := uuid.New()

	first := fx.svc.DefaultConfig(userID)
	first.EnabledChannels[0] = model.ChannelSMS

	second := fx.svc.DefaultConfig(userID)
	assert.Equal(t, model.ChannelInApp, second.EnabledChannels[0], "defaults must not share backing storage")
	assert.Equal(t, first.QuietHours, second.QuietHours)
}
