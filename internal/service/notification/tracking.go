package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// Engagement tracking belongs to the delivery pipeline, not to the
// submission pipeline: these calls mutate status after creation and are
// the only sanctioned way to do so. The repository guards keep every
// transition moving forward.

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}
	return n, nil
}

func (s *Service) TrackOpened(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MarkOpened(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("failed to record open: %w", err)
	}
	return nil
}

func (s *Service) TrackClicked(ctx context.Context, id uuid.UUID) error {
	if err := s.store.MarkClicked(ctx, id, time.Now()); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}
