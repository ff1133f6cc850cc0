package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/dessplan/core/control"
)

// MockPublisher records schedules in memory. It acknowledges every schedule
// it accepted.
type MockPublisher struct {
	Schedules []control.Schedule
	Fail      bool
	NoAck     bool
	mu        sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// PublishSchedule records s or returns an error if configured to fail.
func (m *MockPublisher) PublishSchedule(_ context.Context, s control.Schedule) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return "", fmt.Errorf("publish failed")
	}
	m.Schedules = append(m.Schedules, s)
	return fmt.Sprintf("msg-%d", len(m.Schedules)), nil
}

// WaitForAck simulates an immediate acknowledgment.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	if _, err := fmt.Sscanf(messageID, "msg-%d", &n); err != nil || n < 1 || n > len(m.Schedules) {
		return false, fmt.Errorf("unknown message %s", messageID)
	}
	if m.NoAck {
		return false, fmt.Errorf("%w: message %s", control.ErrAckTimeout, messageID)
	}
	return true, nil
}

// Last returns the most recent schedule, if any.
func (m *MockPublisher) Last() (control.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Schedules) == 0 {
		return control.Schedule{}, false
	}
	return m.Schedules[len(m.Schedules)-1], true
}
