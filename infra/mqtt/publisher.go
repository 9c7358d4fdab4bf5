package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/loadshift/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher records schedule commands in memory.
type MockPublisher struct {
	Commands   []coremqtt.ScheduleCommand
	FailEvents map[string]bool
	NoAck      map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		FailEvents: make(map[string]bool),
		NoAck:      make(map[string]bool),
	}
}

// PublishSchedule records the command or fails for configured event ids.
func (m *MockPublisher) PublishSchedule(cmd coremqtt.ScheduleCommand) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailEvents[cmd.EventID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Commands = append(m.Commands, cmd)
	return "cmd-" + cmd.EventID, nil
}

// WaitForAck acknowledges every recorded command not listed in NoAck.
func (m *MockPublisher) WaitForAck(commandID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Commands {
		if "cmd-"+c.EventID == commandID {
			if m.NoAck[c.EventID] {
				return false, coremqtt.ErrAckTimeout
			}
			return true, nil
		}
	}
	return false, coremqtt.ErrUnknownCommand
}

// Sent returns a copy of the recorded commands.
func (m *MockPublisher) Sent() []coremqtt.ScheduleCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.ScheduleCommand(nil), m.Commands...)
}
