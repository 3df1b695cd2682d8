package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/repository"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// Analyzer builds behavioral profiles on demand and caches them whole.
// A cache hit returns the previous profile unchanged; a miss rebuilds
// everything from the four independent source reads.
type Analyzer struct {
	source      repository.ProfileDataSource
	cache       *cache.Cache
	callTimeout time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

type Config struct {
	CacheTTL        time.Duration
	CleanupInterval time.Duration
	CallTimeout     time.Duration
}

func NewAnalyzer(source repository.ProfileDataSource, cfg Config, m *metrics.Metrics, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		source:      source,
		cache:       cache.New(cfg.CacheTTL, cfg.CleanupInterval),
		callTimeout: cfg.CallTimeout,
		metrics:     m,
		logger:      logger,
	}
}

// Get returns the user's profile, from cache when fresh.
func (a *Analyzer) Get(ctx context.Context, userID uuid.UUID) *model.UserProfile {
	if userID == uuid.Nil {
		return AnonymousProfile()
	}

	if cached, found := a.cache.Get(userID.String()); found {
		a.metrics.ProfileCacheHits.Inc()
		return cached.(*model.UserProfile)
	}
	a.metrics.ProfileCacheMisses.Inc()

	profile := a.build(ctx, userID)
	a.cache.Set(userID.String(), profile, cache.DefaultExpiration)
	return profile
}

// build fetches the four sources concurrently and merges whatever
// succeeded. A failed read degrades that slice to its zero value; it
// never aborts the build or cancels the sibling reads.
func (a *Analyzer) build(ctx context.Context, userID uuid.UUID) *model.UserProfile {
	profile := &model.UserProfile{
		UserID:       userID,
		Interests:    map[string]float64{},
		LastAnalyzed: time.Now(),
	}

	type result struct {
		apply func()
		src   string
		err   error
	}
	results := make(chan result, 4)

	run := func(src string, fn func(context.Context) (func(), error)) {
		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
		apply, err := fn(callCtx)
		results <- result{apply: apply, src: src, err: err}
	}

	go run("reading_sessions", func(ctx context.Context) (func(), error) {
		patterns, err := a.source.ReadingPatterns(ctx, userID)
		return func() { profile.ReadingPatterns = patterns }, err
	})
	go run("interactions", func(ctx context.Context) (func(), error) {
		history, temporal, err := a.source.Interactions(ctx, userID)
		return func() {
			profile.EngagementHistory = history
			profile.TemporalPreferences = temporal
		}, err
	})
	go run("preferences", func(ctx context.Context) (func(), error) {
		prefs, err := a.source.StatedPreferences(ctx, userID)
		return func() { profile.ContentPreferences = prefs }, err
	})
	go run("behavior", func(ctx context.Context) (func(), error) {
		interests, err := a.source.BehaviorSignals(ctx, userID)
		return func() {
			if interests != nil {
				profile.Interests = interests
			}
		}, err
	})

	for i := 0; i < 4; i++ {
		res := <-results
		if res.err != nil {
			a.metrics.ProfileBuildErrors.WithLabelValues(res.src).Inc()
			a.logger.Warn().Err(res.err).
				Str("user_id", userID.String()).
				Str("source", res.src).
				Msg("profile source degraded to default")
			continue
		}
		res.apply()
	}

	return profile
}

// AnonymousProfile is the fixed fallback for requests with no usable
// user identity: neutral interests, a generic evening-leaning activity
// histogram, and a middling engagement rate.
func AnonymousProfile() *model.UserProfile {
	profile := &model.UserProfile{
		Interests: map[string]float64{},
		EngagementHistory: model.EngagementHistory{
			AvgEngagementRate: 0.5,
		},
		LastAnalyzed: time.Now(),
	}
	for h := 8; h < 22; h++ {
		profile.TemporalPreferences.HourlyDistribution[h] = 1
	}
	profile.TemporalPreferences.HourlyDistribution[19] = 2
	profile.TemporalPreferences.HourlyDistribution[20] = 2
	return profile
}
