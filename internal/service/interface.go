package service

import (
	"context"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
)

// MonitorSource loads the monitor payload for a token. Implementations return
// models.ErrMonitorNotFound and models.ErrMonitorExpired for unknown and expired links.
type MonitorSource interface {
	FetchMonitor(ctx context.Context, token string) (models.MonitorPayload, error)
}
