package personalize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// neutralRelevance is used whenever relevance was not (or could not be)
// computed.
const neutralRelevance = 0.5

// ContentAnalyzer is the external content-analysis capability. The
// engine consumes the category list; it does not implement the model.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, content map[string]interface{}) (*model.ContentAnalysis, error)
}

// Content is the personalized output for one notification.
type Content struct {
	Title      string
	Message    string
	Relevance  float64
	Categories []string
}

type Personalizer struct {
	analyzer    ContentAnalyzer
	callTimeout time.Duration
	logger      zerolog.Logger
}

func NewPersonalizer(analyzer ContentAnalyzer, callTimeout time.Duration, logger zerolog.Logger) *Personalizer {
	return &Personalizer{
		analyzer:    analyzer,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Personalize produces the title, message and relevance for a request.
// With personalization disabled, or on any analyzer failure, it falls
// back to the template id as literal title and a neutral relevance.
func (p *Personalizer) Personalize(ctx context.Context, req *model.NotificationRequest, profile *model.UserProfile) *Content {
	if !req.PersonalizeEnabled() {
		return genericContent(req.TemplateID)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()

	analysis, err := p.analyzer.Analyze(callCtx, req.ContentData)
	if err != nil {
		p.logger.Warn().Err(err).Str("template_id", req.TemplateID).Msg("content analysis degraded to default")
		return genericContent(req.TemplateID)
	}

	relevance := Overlap(profile.Interests, analysis.Categories)
	title, message := compose(req, profile, analysis)

	return &Content{
		Title:      title,
		Message:    message,
		Relevance:  relevance,
		Categories: analysis.Categories,
	}
}

func genericContent(templateID string) *Content {
	return &Content{
		Title:     templateID,
		Message:   "You have a new update waiting for you.",
		Relevance: neutralRelevance,
	}
}

// compose builds the final text from the template and the strongest
// signals. Exact copywriting belongs to the templating layer upstream;
// this keeps the reference behavior of combining template, headline and
// top category.
func compose(req *model.NotificationRequest, profile *model.UserProfile, analysis *model.ContentAnalysis) (string, string) {
	title := req.TemplateID
	if headline, ok := req.ContentData["headline"].(string); ok && headline != "" {
		title = headline
	}

	message := "You have a new update waiting for you."
	if summary, ok := req.ContentData["summary"].(string); ok && summary != "" {
		message = summary
	}

	if top := topInterest(profile.Interests, analysis.Categories); top != "" {
		message = fmt.Sprintf("%s — picked for your interest in %s", message, top)
	}
	return title, message
}

func topInterest(interests map[string]float64, categories []string) string {
	var best string
	var bestWeight float64
	for _, cat := range categories {
		if w, ok := interests[cat]; ok && w > bestWeight {
			best = cat
			bestWeight = w
		}
	}
	return best
}

// Overlap is the normalized match between interest weights and a
// category list: the sum of weights for categories present in the list,
// divided by the number of categories, clamped to [0,1]. An empty
// category list scores 0.
func Overlap(interests map[string]float64, categories []string) float64 {
	if len(categories) == 0 {
		return 0
	}
	var sum float64
	for _, cat := range categories {
		sum += interests[cat]
	}
	score := sum / float64(len(categories))
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}
