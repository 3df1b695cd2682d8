package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/repository"
)

// Guard suppresses near-duplicate notifications within a trailing
// window by comparing titles. Message bodies are deliberately not
// compared.
type Guard struct {
	store     repository.NotificationRepository
	window    time.Duration
	threshold float64
}

func NewGuard(store repository.NotificationRepository, window time.Duration, threshold float64) *Guard {
	return &Guard{
		store:     store,
		window:    window,
		threshold: threshold,
	}
}

// Duplicate describes the stored notification that triggered a
// suppression.
type Duplicate struct {
	NotificationID uuid.UUID
	Similarity     float64
}

// Check looks for a stored title within the window that is too similar
// to the new one. The first match wins; the remaining candidates are
// not inspected. A store read failure is returned as an error distinct
// from a suppression.
//
// Known limitation: this check and the subsequent insert are not
// transactional, so two near-simultaneous submissions can both pass
// before either is stored.
func (g *Guard) Check(ctx context.Context, userID uuid.UUID, title string) (*Duplicate, error) {
	since := time.Now().Add(-g.window)
	recent, err := g.store.QueryRecent(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent notifications: %w", err)
	}

	for _, existing := range recent {
		if sim := Similarity(title, existing.Title); sim >= g.threshold {
			return &Duplicate{NotificationID: existing.ID, Similarity: sim}, nil
		}
	}
	return nil, nil
}

// Similarity is the word-level Jaccard index of the two titles:
// |intersection| / |union| over lower-cased whitespace tokens, 0 when
// both are empty.
func Similarity(a, b string) float64 {
	setA := tokenize(a)
	setB := tokenize(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenize(s string) map[string]struct{} {
	tokens := map[string]struct{}{}
	for _, field := range strings.Fields(strings.ToLower(s)) {
		tokens[field] = struct{}{}
	}
	return tokens
}
