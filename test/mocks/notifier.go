package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/richxcame/tutor-payouts/internal/notifications"
)

// MockNotifier is a mock implementation of the withdrawal notifier
type MockNotifier struct {
	mock.Mock
}

var _ notifications.Notifier = (*MockNotifier)(nil)

// Notify mocks publishing a withdrawal event
func (m *MockNotifier) Notify(ctx context.Context, eventType string, data notifications.WithdrawalEventData) error {
	args := m.Called(ctx, eventType, data)
	return args.Error(0)
}

// Events returns the event types passed to Notify, in call order
func (m *MockNotifier) Events() []string {
	var events []string
	for _, call := range m.Calls {
		if call.Method == "Notify" {
			events = append(events, call.Arguments.String(1))
		}
	}
	return events
}
