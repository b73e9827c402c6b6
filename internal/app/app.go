package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	pb "github.com/lucaslnrr/v0-response-monitor/api/v1"
	"github.com/lucaslnrr/v0-response-monitor/internal/config"
	handler "github.com/lucaslnrr/v0-response-monitor/internal/grpc"
	"github.com/lucaslnrr/v0-response-monitor/internal/httpapi"
	"github.com/lucaslnrr/v0-response-monitor/internal/metrics"
	"github.com/lucaslnrr/v0-response-monitor/internal/monitor"
	"github.com/lucaslnrr/v0-response-monitor/internal/readthrough"
	"github.com/lucaslnrr/v0-response-monitor/internal/repository"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
	"github.com/lucaslnrr/v0-response-monitor/pkg/cache"
	dbbuilder "github.com/lucaslnrr/v0-response-monitor/pkg/database"
	grpcsrv "github.com/lucaslnrr/v0-response-monitor/pkg/grpc/server"
)

const shutdownTimeout = 10 * time.Second

// Source is the configured monitor source with whatever it holds open.
type Source struct {
	service.MonitorSource
	Name string
	db   *sql.DB
}

// Ping checks the underlying database. HTTP sources are always reported healthy.
func (s *Source) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenSource builds the monitor source selected by cfg.SourceKind.
func OpenSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Source, error) {
	switch cfg.SourceKind {
	case config.SourceHTTP:
		client, err := monitor.NewClient(cfg.MonitorAPIURL,
			monitor.WithTimeout(cfg.MonitorAPITimeout),
			monitor.WithRateLimit(cfg.MonitorAPIRPS, 1),
			monitor.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("monitor client init failed: %w", err)
		}
		logger.Info("Monitor API client initialized", zap.String("url", cfg.MonitorAPIURL))
		return &Source{MonitorSource: client, Name: config.SourceHTTP}, nil

	case config.SourceSQLite:
		db, err := dbbuilder.New(ctx,
			dbbuilder.WithDriver(cfg.DBDriver),
			dbbuilder.WithDataSource(cfg.DBPath),
			dbbuilder.WithQueryOnly(true),
			dbbuilder.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
		logger.Info("Database pool initialized", zap.String("path", cfg.DBPath))
		repo := repository.NewMonitorRepository(db, repository.WithRecentLimit(cfg.RecentLimit))
		return &Source{MonitorSource: repo, Name: config.SourceSQLite, db: db}, nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.SourceKind)
	}
}

// NewDashboardService builds the dashboard service over src.
func NewDashboardService(cfg *config.Config, src *Source, m *metrics.Metrics, logger *zap.Logger) *service.DashboardService {
	return service.NewDashboardService(src, logger.Named("dashboard"),
		service.WithSourceName(src.Name),
		service.WithMetrics(m),
		service.WithLocation(cfg.Location()),
	)
}

type App struct {
	logger     *zap.Logger
	source     *Source
	cache      *cache.Cache
	group      *readthrough.Group
	grpcServer *grpcsrv.Server
	httpServer *http.Server
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	src, err := OpenSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		cacheClient *cache.Cache
		cacher      readthrough.Cacher
	)
	if cfg.CacheEnabled() {
		cacheClient, err = cache.New(ctx, cache.WithAddress(cfg.RedisAddr))
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		cacher = cacheClient
		logger.Info("Cache client initialized", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("Cache disabled")
	}
	group := readthrough.NewGroup(cacher, cfg.CacheTTL, logger)

	dashboards := NewDashboardService(cfg, src, m, logger)

	grpcServer, err := grpcsrv.New(
		grpcsrv.WithPort(cfg.GRPCPort),
		grpcsrv.WithLogger(logger),
		grpcsrv.WithReflection(cfg.GRPCReflectionEnabled),
		grpcsrv.WithLogging(true),
		grpcsrv.WithRecovery(true),
		grpcsrv.WithUnaryInterceptors(m.UnaryServerInterceptor()),
	)
	if err != nil {
		_ = src.Close()
		if cacheClient != nil {
			_ = cacheClient.Close()
		}
		return nil, fmt.Errorf("failed to create gRPC server: %w", err)
	}

	grpcHandlers := handler.NewGRPCHandlers(dashboards, group, logger)
	grpcServer.Register(pb.ServiceName, func(r grpc.ServiceRegistrar) {
		pb.RegisterDashboardServiceServer(r, grpcHandlers)
	})

	health := func(ctx context.Context) error {
		if err := src.Ping(ctx); err != nil {
			return err
		}
		if cacheClient != nil {
			return cacheClient.Ping(ctx)
		}
		return nil
	}
	httpHandlers := httpapi.NewHandlers(dashboards, group, logger, httpapi.WithHealthCheck(health))
	router := httpapi.NewRouter(httpHandlers, m, reg)

	return &App{
		logger:     logger,
		source:     src,
		cache:      cacheClient,
		group:      group,
		grpcServer: grpcServer,
		httpServer: httpapi.NewServer(":"+strconv.Itoa(cfg.HTTPPort), router),
	}, nil
}

// Run serves HTTP and gRPC until ctx is cancelled or a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("application starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.grpcServer.Serve)
	g.Go(func() error {
		a.logger.Info("HTTP server starting", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("application shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := a.grpcServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("grpc shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	a.close()

	if err != nil {
		return err
	}
	a.logger.Info("graceful shutdown completed successfully")
	return nil
}

func (a *App) close() {
	a.group.Wait()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("cache shutdown error", zap.Error(err))
		}
	}
	if err := a.source.Close(); err != nil {
		a.logger.Error("database shutdown error", zap.Error(err))
	}
	_ = a.logger.Sync()
}
