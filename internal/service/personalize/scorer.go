package personalize

import (
	"github.com/jwalitptl/notify-engine/internal/model"
)

// Score aggregates the four personalization signals for one
// notification. All outputs are bounded to [0,1].
func Score(profile *model.UserProfile, content *Content, scheduledHour int) model.PersonalizationData {
	return model.PersonalizationData{
		RelevanceScore:       content.Relevance,
		TimingScore:          timingScore(profile.TemporalPreferences.HourlyDistribution, scheduledHour),
		EngagementPrediction: engagementPrediction(profile.EngagementHistory.AvgEngagementRate, content.Relevance),
		ContentSimilarity:    Overlap(profile.Interests, content.Categories),
	}
}

// timingScore is the chosen hour's histogram value relative to the
// histogram's maximum. An empty or flat histogram carries no signal and
// scores neutral.
func timingScore(hist [24]float64, hour int) float64 {
	if hour < 0 || hour > 23 {
		return 0.5
	}
	max, min := hist[0], hist[0]
	for _, v := range hist[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	if max <= 0 || max == min {
		return 0.5
	}
	return hist[hour] / max
}

func engagementPrediction(historicalRate, relevance float64) float64 {
	prediction := (historicalRate + relevance) / 2
	if prediction > 1 {
		return 1
	}
	if prediction < 0 {
		return 0
	}
	return prediction
}
