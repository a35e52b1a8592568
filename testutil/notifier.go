package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"Gmao/Alerts"
	"Gmao/Models"
)

// MockNotifier records notifications through testify's mock.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n Alerts.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// OfType matches notifications of the given type.
func OfType(kind Models.NotificationType) interface{} {
	return mock.MatchedBy(func(n Alerts.Notification) bool { return n.Type == kind })
}
