package channel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// AvailabilityChecker is the external capability that reports whether a
// channel can currently reach the user (device token registered, socket
// connected, and so on).
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, userID uuid.UUID, ch model.Channel) (bool, error)
}

// candidate orders per priority tier, highest preference first.
var tierCandidates = map[model.Priority][]model.Channel{
	model.PriorityEmergency: {model.ChannelMobilePush, model.ChannelWebPush, model.ChannelSMS, model.ChannelSocket},
	model.PriorityBreaking:  {model.ChannelMobilePush, model.ChannelWebPush, model.ChannelSMS, model.ChannelSocket},
	model.PriorityUrgent:    {model.ChannelMobilePush, model.ChannelWebPush, model.ChannelSocket},
	model.PriorityHigh:      {model.ChannelWebPush, model.ChannelMobilePush, model.ChannelInApp},
}

// defaultCandidates serves the normal/low tier and any unknown
// priority.
var defaultCandidates = []model.Channel{model.ChannelInApp, model.ChannelEmail, model.ChannelWebPush}

type Selector struct {
	checker     AvailabilityChecker
	callTimeout time.Duration
	logger      zerolog.Logger
}

func NewSelector(checker AvailabilityChecker, callTimeout time.Duration, logger zerolog.Logger) *Selector {
	return &Selector{
		checker:     checker,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Select picks the delivery channel. A preferred channel wins outright
// when the user has it enabled; otherwise the priority tier's candidates
// are walked in order and the first enabled, available one is taken.
// In-app is the unconditional fallback.
func (s *Selector) Select(ctx context.Context, userID uuid.UUID, preferred model.Channel, cfg *model.UserNotificationConfig, priority model.Priority) model.Channel {
	if preferred != "" && cfg.ChannelEnabled(preferred) {
		return preferred
	}

	candidates, ok := tierCandidates[priority]
	if !ok {
		candidates = defaultCandidates
	}

	for _, ch := range candidates {
		if !cfg.ChannelEnabled(ch) {
			continue
		}
		if s.available(ctx, userID, ch) {
			return ch
		}
	}
	return model.ChannelInApp
}

// available degrades to false on checker failure so selection falls
// through to the next candidate instead of aborting the request.
func (s *Selector) available(ctx context.Context, userID uuid.UUID, ch model.Channel) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	ok, err := s.checker.IsAvailable(callCtx, userID, ch)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("channel", string(ch)).
			Msg("availability check degraded")
		return false
	}
	return ok
}
