package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	pb "github.com/lucaslnrr/v0-response-monitor/api/v1"
	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/readthrough"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

const defaultGRPCTimeout = 10 * time.Second

type GRPCHandlers struct {
	pb.UnimplementedDashboardServiceServer
	dashboards DashboardService
	cache      *readthrough.Group
	logger     *zap.Logger
}

// NewGRPCHandlers initializes the gRPC handlers. A nil cache group fetches on every call.
func NewGRPCHandlers(dashboards DashboardService, cache *readthrough.Group, logger *zap.Logger) *GRPCHandlers {
	if dashboards == nil {
		panic("nil DashboardService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = readthrough.NewGroup(nil, 0, logger)
	}
	return &GRPCHandlers{
		dashboards: dashboards,
		cache:      cache,
		logger:     logger.Named("grpc-handler"),
	}
}

func (s *GRPCHandlers) handleError(ctx context.Context, op, tokenHash string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return status.Error(codes.InvalidArgument, "token is required")
	case errors.Is(err, service.ErrMonitorNotFound):
		s.logger.Info("monitor not found", zap.String("op", op), zap.String("token_hash", tokenHash))
		return status.Error(codes.NotFound, "monitor not found")
	case errors.Is(err, service.ErrMonitorExpired):
		s.logger.Info("monitor expired", zap.String("op", op), zap.String("token_hash", tokenHash))
		return status.Error(codes.FailedPrecondition, "monitor link expired")
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("source timeout", zap.String("op", op), zap.String("token_hash", tokenHash))
		return status.Error(codes.DeadlineExceeded, "monitor source timed out")
	case errors.Is(err, service.ErrSourceFailure):
		s.logger.Error("source failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Unavailable, "monitor source unavailable")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed", op)
	}
}

func (s *GRPCHandlers) GetDashboard(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	token := strings.TrimSpace(req.GetValue())
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	d, err := readthrough.FindAndCache(ctx, s.cache, service.CacheKey(token), func(fetchCtx context.Context) (service.Dashboard, error) {
		return s.dashboards.GetDashboard(fetchCtx, token)
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetDashboard", models.HashToken(token), err)
	}

	out, err := toStruct(d)
	if err != nil {
		s.logger.Error("failed to encode dashboard", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode dashboard")
	}
	return out, nil
}

// toStruct converts v to a protobuf Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return structpb.NewStruct(m)
}
