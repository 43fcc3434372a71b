package mocks

import (
	"context"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event model.Event) {
	m.Called(ctx, event)
}

// Events returns the events passed to Notify, in call order.
func (m *MockNotifier) Events() []model.Event {
	var events []model.Event
	for _, call := range m.Calls {
		if call.Method == "Notify" {
			events = append(events, call.Arguments.Get(1).(model.Event))
		}
	}
	return events
}
