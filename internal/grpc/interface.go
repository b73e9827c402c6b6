package grpc

import (
	"context"

	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

type DashboardService interface {
	GetDashboard(ctx context.Context, token string) (service.Dashboard, error)
}
