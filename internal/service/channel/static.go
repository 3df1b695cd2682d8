package channel

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// StaticChecker is the default availability capability: every channel
// is considered reachable unless explicitly disabled at construction.
// Real deployments replace it with device-registry and presence checks.
type StaticChecker struct {
	disabled map[model.Channel]bool
}

func NewStaticChecker(disabled ...model.Channel) *StaticChecker {
	m := make(map[model.Channel]bool, len(disabled))
	for _, ch := range disabled {
		m[ch] = true
	}
	return &StaticChecker{disabled: m}
}

func (c *StaticChecker) IsAvailable(_ context.Context, _ uuid.UUID, ch model.Channel) (bool, error) {
	return !c.disabled[ch], nil
}
