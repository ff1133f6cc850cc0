// Package control defines the channel through which a computed DESS
// schedule reaches the battery system.
package control

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/dessplan/core/strategy"
)

// ErrAckTimeout is returned when no acknowledgment is received before the timeout.
var ErrAckTimeout = errors.New("timeout waiting for ack")

// Schedule is one planner run's decisions as sent to the device.
type Schedule struct {
	RunID     string
	CreatedAt time.Time
	Decisions []strategy.Decision
}

// SchedulePublisher delivers schedules and tracks device acknowledgments.
type SchedulePublisher interface {
	// PublishSchedule sends s and returns the message identifier used to
	// track the acknowledgment.
	PublishSchedule(ctx context.Context, s Schedule) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of messageID or until the
	// timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}
