package personalize

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/notify-engine/internal/model"
)

type fakeAnalyzer struct {
	analysis *model.ContentAnalysis
	err      error
}

func (f *fakeAnalyzer) Analyze(context.Context, map[string]interface{}) (*model.ContentAnalysis, error) {
	return f.analysis, f.err
}

func newPersonalizer(a ContentAnalyzer) *Personalizer {
	return NewPersonalizer(a, time.Second, zerolog.Nop())
}

func profileWithInterests(interests map[string]float64) *model.UserProfile {
	return &model.UserProfile{Interests: interests}
}

func TestOverlap(t *testing.T) {
	interests := map[string]float64{"politics": 0.9, "sports": 0.3}

	assert.InDelta(t, 0.6, Overlap(interests, []string{"politics", "sports"}), 1e-9)
	assert.InDelta(t, 0.45, Overlap(interests, []string{"politics", "weather"}), 1e-9)
	assert.Equal(t, 0.0, Overlap(interests, nil))
	assert.Equal(t, 0.0, Overlap(nil, []string{"politics"}))
}

func TestOverlapClampedAtOne(t *testing.T) {
	interests := map[string]float64{"politics": 1.5}
	assert.Equal(t, 1.0, Overlap(interests, []string{"politics"}))
}

func TestPersonalizeDisabledReturnsTemplateLiteral(t *testing.T) {
	p := newPersonalizer(&fakeAnalyzer{err: assert.AnError})
	disabled := false
	req := &model.NotificationRequest{
		TemplateID:  "daily_digest",
		Personalize: &disabled,
	}

	content := p.Personalize(context.Background(), req, profileWithInterests(nil))
	assert.Equal(t, "daily_digest", content.Title)
	assert.Equal(t, 0.5, content.Relevance)
}

func TestAnalyzerFailureFallsBack(t *testing.T) {
	p := newPersonalizer(&fakeAnalyzer{err: assert.AnError})
	req := &model.NotificationRequest{
		TemplateID:  "breaking_story",
		ContentData: map[string]interface{}{"headline": "ignored on fallback"},
	}

	content := p.Personalize(context.Background(), req, profileWithInterests(nil))
	assert.Equal(t, "breaking_story", content.Title)
	assert.NotEmpty(t, content.Message)
	assert.Equal(t, 0.5, content.Relevance)
}

func TestPersonalizeUsesHeadlineAndInterests(t *testing.T) {
	p := newPersonalizer(&fakeAnalyzer{analysis: &model.ContentAnalysis{
		Categories: []string{"politics", "economy"},
	}})
	req := &model.NotificationRequest{
		TemplateID: "article_alert",
		ContentData: map[string]interface{}{
			"headline": "Parliament passes the new budget",
			"summary":  "The vote concluded after a long session",
		},
	}
	profile := profileWithInterests(map[string]float64{"politics": 0.8})

	content := p.Personalize(context.Background(), req, profile)
	assert.Equal(t, "Parliament passes the new budget", content.Title)
	assert.Contains(t, content.Message, "politics")
	assert.InDelta(t, 0.4, content.Relevance, 1e-9)
}

func TestScoreBounds(t *testing.T) {
	profile := &model.UserProfile{
		Interests: map[string]float64{"sports": 0.9},
		EngagementHistory: model.EngagementHistory{
			AvgEngagementRate: 0.8,
		},
	}
	profile.TemporalPreferences.HourlyDistribution[9] = 4
	profile.TemporalPreferences.HourlyDistribution[20] = 8

	content := &Content{Relevance: 0.9, Categories: []string{"sports"}}
	scores := Score(profile, content, 9)

	assert.Equal(t, 0.9, scores.RelevanceScore)
	assert.InDelta(t, 0.5, scores.TimingScore, 1e-9) // 4 / 8
	assert.InDelta(t, 0.85, scores.EngagementPrediction, 1e-9)
	assert.InDelta(t, 0.9, scores.ContentSimilarity, 1e-9)

	for _, v := range []float64{scores.RelevanceScore, scores.TimingScore, scores.EngagementPrediction, scores.ContentSimilarity} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestTimingScoreNeutralOnFlatHistogram(t *testing.T) {
	flat := &model.UserProfile{}
	for i := range flat.TemporalPreferences.HourlyDistribution {
		flat.TemporalPreferences.HourlyDistribution[i] = 3
	}
	content := &Content{Relevance: 0.5}

	assert.Equal(t, 0.5, Score(flat, content, 12).TimingScore)
	assert.Equal(t, 0.5, Score(&model.UserProfile{}, content, 12).TimingScore)
}

func TestEngagementPredictionClamped(t *testing.T) {
	profile := &model.UserProfile{
		EngagementHistory: model.EngagementHistory{AvgEngagementRate: 1.4},
	}
	content := &Content{Relevance: 1.0}
	assert.Equal(t, 1.0, Score(profile, content, 0).EngagementPrediction)
}
