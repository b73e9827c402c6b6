package mocks

import (
	"context"
	"errors"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
)

// MockMonitorSource is a mock implementation of the MonitorSource interface
// for testing the service layer.
type MockMonitorSource struct {
	FetchMonitorFunc func(ctx context.Context, token string) (models.MonitorPayload, error)
}

// FetchMonitor implements the MonitorSource interface
func (m *MockMonitorSource) FetchMonitor(ctx context.Context, token string) (models.MonitorPayload, error) {
	if m.FetchMonitorFunc != nil {
		return m.FetchMonitorFunc(ctx, token)
	}
	return models.MonitorPayload{}, errors.New("FetchMonitorFunc not implemented")
}
