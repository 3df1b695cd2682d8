package analysis

import (
	"context"
	"strings"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// KeywordAnalyzer is the in-repo stand-in for the platform's semantic
// content-analysis service. It categorizes content by matching a fixed
// topic vocabulary against the textual fields of the payload. The
// engine only depends on the ContentAnalyzer interface, so deployments
// swap this for the real model without touching the pipeline.
type KeywordAnalyzer struct {
	vocabulary map[string][]string
}

func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{
		vocabulary: map[string][]string{
			"politics":      {"election", "parliament", "minister", "government", "policy"},
			"sports":        {"match", "league", "tournament", "goal", "championship"},
			"economy":       {"market", "inflation", "stocks", "trade", "economy"},
			"technology":    {"tech", "ai", "software", "startup", "cyber"},
			"breaking_news": {"breaking", "urgent", "alert", "emergency"},
			"weather":       {"storm", "earthquake", "flood", "weather", "heatwave"},
		},
	}
}

func (a *KeywordAnalyzer) Analyze(_ context.Context, content map[string]interface{}) (*model.ContentAnalysis, error) {
	var text strings.Builder
	for _, key := range []string{"headline", "summary", "body", "tags"} {
		if v, ok := content[key].(string); ok {
			text.WriteString(strings.ToLower(v))
			text.WriteByte(' ')
		}
	}
	// Explicit categories on the payload win over keyword matching.
	if cats, ok := content["categories"].([]interface{}); ok {
		analysis := &model.ContentAnalysis{}
		for _, c := range cats {
			if s, ok := c.(string); ok {
				analysis.Categories = append(analysis.Categories, s)
			}
		}
		if len(analysis.Categories) > 0 {
			return analysis, nil
		}
	}

	corpus := text.String()
	analysis := &model.ContentAnalysis{}
	for category, keywords := range a.vocabulary {
		for _, kw := range keywords {
			if strings.Contains(corpus, kw) {
				analysis.Categories = append(analysis.Categories, category)
				break
			}
		}
	}
	return analysis, nil
}
