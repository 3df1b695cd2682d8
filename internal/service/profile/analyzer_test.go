package profile

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/pkg/metrics"
)

// One registry per test binary; promauto registers globally.
var testMetrics = metrics.New("profile_test")

type fakeSource struct {
	calls atomic.Int32

	patterns    model.ReadingPatterns
	patternsErr error

	history    model.EngagementHistory
	temporal   model.TemporalPreferences
	historyErr error

	prefs    model.ContentPreferences
	prefsErr error

	interests    map[string]float64
	interestsErr error
}

func (f *fakeSource) ReadingPatterns(context.Context, uuid.UUID) (model.ReadingPatterns, error) {
	f.calls.Add(1)
	return f.patterns, f.patternsErr
}

func (f *fakeSource) Interactions(context.Context, uuid.UUID) (model.EngagementHistory, model.TemporalPreferences, error) {
	f.calls.Add(1)
	return f.history, f.temporal, f.historyErr
}

func (f *fakeSource) StatedPreferences(context.Context, uuid.UUID) (model.ContentPreferences, error) {
	f.calls.Add(1)
	return f.prefs, f.prefsErr
}

func (f *fakeSource) BehaviorSignals(context.Context, uuid.UUID) (map[string]float64, error) {
	f.calls.Add(1)
	return f.interests, f.interestsErr
}

func newAnalyzer(source *fakeSource, ttl time.Duration) *Analyzer {
	return NewAnalyzer(source, Config{
		CacheTTL:        ttl,
		CleanupInterval: time.Minute,
		CallTimeout:     time.Second,
	}, testMetrics, zerolog.Nop())
}

func TestBuildMergesAllSources(t *testing.T) {
	source := &fakeSource{
		patterns:  model.ReadingPatterns{AvgSessionMinutes: 7, ArticlesPerDay: 3},
		history:   model.EngagementHistory{AvgEngagementRate: 0.6, TotalInteractions: 42},
		interests: map[string]float64{"politics": 0.9},
		prefs:     model.ContentPreferences{Topics: []string{"politics"}},
	}
	source.temporal.HourlyDistribution[20] = 5

	p := newAnalyzer(source, time.Minute).Get(context.Background(), uuid.New())
	require.NotNil(t, p)
	assert.Equal(t, 0.6, p.EngagementHistory.AvgEngagementRate)
	assert.Equal(t, 0.9, p.Interests["politics"])
	assert.Equal(t, 5.0, p.TemporalPreferences.HourlyDistribution[20])
	assert.Equal(t, []string{"politics"}, p.ContentPreferences.Topics)
	assert.False(t, p.LastAnalyzed.IsZero())
}

func TestCacheHitReturnsWholePreviousProfile(t *testing.T) {
	source := &fakeSource{interests: map[string]float64{"sports": 0.5}}
	analyzer := newAnalyzer(source, time.Minute)
	userID := uuid.New()

	first := analyzer.Get(context.Background(), userID)
	callsAfterBuild := source.calls.Load()

	second := analyzer.Get(context.Background(), userID)
	assert.Same(t, first, second)
	assert.Equal(t, callsAfterBuild, source.calls.Load(), "cache hit must not re-read sources")
}

func TestExpiredEntryRebuilds(t *testing.T) {
	source := &fakeSource{}
	analyzer := newAnalyzer(source, 10*time.Millisecond)
	userID := uuid.New()

	analyzer.Get(context.Background(), userID)
	time.Sleep(30 * time.Millisecond)
	analyzer.Get(context.Background(), userID)

	assert.Equal(t, int32(8), source.calls.Load())
}

func TestSingleSourceFailureDegrades(t *testing.T) {
	source := &fakeSource{
		historyErr: assert.AnError,
		interests:  map[string]float64{"economy": 0.7},
	}

	p := newAnalyzer(source, time.Minute).Get(context.Background(), uuid.New())
	require.NotNil(t, p)
	// Failed slice is zero-valued; the siblings still landed.
	assert.Zero(t, p.EngagementHistory.AvgEngagementRate)
	assert.Equal(t, 0.7, p.Interests["economy"])
}

func TestAllSourcesFailingStillYieldsProfile(t *testing.T) {
	source := &fakeSource{
		patternsErr:  assert.AnError,
		historyErr:   assert.AnError,
		prefsErr:     assert.AnError,
		interestsErr: assert.AnError,
	}

	p := newAnalyzer(source, time.Minute).Get(context.Background(), uuid.New())
	require.NotNil(t, p)
	assert.NotNil(t, p.Interests)
}

func TestNilUserGetsAnonymousProfile(t *testing.T) {
	source := &fakeSource{}
	p := newAnalyzer(source, time.Minute).Get(context.Background(), uuid.Nil)

	require.NotNil(t, p)
	assert.Zero(t, source.calls.Load())
	assert.Equal(t, 0.5, p.EngagementHistory.AvgEngagementRate)

	var activeHours int
	for _, v := range p.TemporalPreferences.HourlyDistribution {
		if v > 0 {
			activeHours++
		}
	}
	assert.Greater(t, activeHours, 0)
}
