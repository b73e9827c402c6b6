package mocks

import (
	"context"
	"errors"

	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

// MockDashboardService is a mock implementation of the DashboardService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockDashboardService struct {
	GetDashboardFunc func(ctx context.Context, token string) (service.Dashboard, error)
}

// GetDashboard implements the DashboardService interface
func (m *MockDashboardService) GetDashboard(ctx context.Context, token string) (service.Dashboard, error) {
	if m.GetDashboardFunc != nil {
		return m.GetDashboardFunc(ctx, token)
	}
	return service.Dashboard{}, errors.New("GetDashboardFunc not implemented")
}
