package timing

import (
	"time"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// Optimizer computes the delivery instant for a notification from the
// user's quiet hours and hourly activity histogram.
type Optimizer struct {
	buffer time.Duration
	now    func() time.Time
}

func NewOptimizer(buffer time.Duration) *Optimizer {
	return &Optimizer{
		buffer: buffer,
		now:    time.Now,
	}
}

// WithClock substitutes the time source. Tests use this for
// deterministic hours.
func (o *Optimizer) WithClock(now func() time.Time) *Optimizer {
	o.now = now
	return o
}

// Schedule returns the delivery instant. Emergency and breaking
// priorities fire immediately and ignore everything else, including the
// quiet-hours window and an explicit schedule. Outside that branch the
// result is never earlier than now.
func (o *Optimizer) Schedule(req *model.NotificationRequest, cfg *model.UserNotificationConfig, profile *model.UserProfile) time.Time {
	now := o.now()

	if req.Priority.IsImmediate() {
		return now
	}

	if !req.OptimizeTimingEnabled() {
		if req.ScheduleAt != nil && req.ScheduleAt.After(now) {
			return *req.ScheduleAt
		}
		return now
	}

	if cfg.QuietHours.Contains(now.Hour()) {
		return nextHour(now, cfg.QuietHours.EndHour)
	}

	optimal := optimalHour(profile.TemporalPreferences.HourlyDistribution, now.Hour())
	if optimal == now.Hour() {
		// Already in the user's best hour; push just far enough out to
		// absorb processing latency.
		return now.Add(o.buffer)
	}
	return nextHour(now, optimal)
}

// optimalHour is the argmax of the activity histogram, falling back to
// the current hour when the histogram carries no signal.
func optimalHour(hist [24]float64, currentHour int) int {
	best, bestVal := currentHour, 0.0
	for h, v := range hist {
		if v > bestVal {
			best, bestVal = h, v
		}
	}
	if bestVal == 0 {
		return currentHour
	}
	return best
}

// nextHour returns the next occurrence of the given hour: today if it
// has not yet passed, otherwise tomorrow.
func nextHour(now time.Time, hour int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
