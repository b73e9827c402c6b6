// Package server wraps grpc.Server with health reporting, optional reflection and a
// standard interceptor chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

const (
	defaultPort              = 50051
	defaultMaxConnectionIdle = 5 * time.Minute
)

type Option func(*options)

type options struct {
	port              int
	listener          net.Listener
	logger            *zap.Logger
	reflection        bool
	logging           bool
	recovery          bool
	maxConnectionIdle time.Duration
	unaryInterceptors []grpc.UnaryServerInterceptor
}

func WithPort(port int) Option {
	return func(o *options) { o.port = port }
}

// WithListener serves on lis instead of opening a TCP port, e.g. a bufconn listener.
func WithListener(lis net.Listener) Option {
	return func(o *options) { o.listener = lis }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithReflection(enabled bool) Option {
	return func(o *options) { o.reflection = enabled }
}

func WithLogging(enabled bool) Option {
	return func(o *options) { o.logging = enabled }
}

// WithRecovery turns handler panics into codes.Internal.
func WithRecovery(enabled bool) Option {
	return func(o *options) { o.recovery = enabled }
}

// WithMaxConnectionIdle closes client connections idle for longer than d.
func WithMaxConnectionIdle(d time.Duration) Option {
	return func(o *options) { o.maxConnectionIdle = d }
}

// WithUnaryInterceptors appends interceptors after recovery and logging.
func WithUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) Option {
	return func(o *options) {
		o.unaryInterceptors = append(o.unaryInterceptors, interceptors...)
	}
}

type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	lis        net.Listener
	logger     *zap.Logger
}

func New(opts ...Option) (*Server, error) {
	o := &options{
		port:              defaultPort,
		maxConnectionIdle: defaultMaxConnectionIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	lis, err := listen(o)
	if err != nil {
		return nil, err
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{MaxConnectionIdle: o.maxConnectionIdle}),
	}
	if chain := interceptorChain(o); len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}

	grpcServer := grpc.NewServer(serverOpts...)
	if o.reflection {
		reflection.Register(grpcServer)
	}

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		lis:        lis,
		logger:     o.logger.Named("grpc-server"),
	}, nil
}

func listen(o *options) (net.Listener, error) {
	if o.listener != nil {
		return o.listener, nil
	}
	if o.port < 1 || o.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", o.port)
	}
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", o.port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", o.port, err)
	}
	return lis, nil
}

// interceptorChain orders recovery outermost so panics in logging are caught too.
func interceptorChain(o *options) []grpc.UnaryServerInterceptor {
	var chain []grpc.UnaryServerInterceptor
	if o.recovery {
		chain = append(chain, RecoveryInterceptor(o.logger))
	}
	if o.logging {
		chain = append(chain, LoggingInterceptor(o.logger))
	}
	return append(chain, o.unaryInterceptors...)
}

// Register installs a service and reports it as SERVING under name.
func (s *Server) Register(name string, register func(grpc.ServiceRegistrar)) {
	register(s.grpcServer)
	s.SetServing(name, true)
	s.logger.Info("registered service", zap.String("service", name))
}

// SetServing updates the health status reported for name. The empty name is the
// server as a whole.
func (s *Server) SetServing(name string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(name, st)
	s.health.SetServingStatus("", st)
}

// Serve blocks until the server stops. A graceful stop returns nil.
func (s *Server) Serve() error {
	s.logger.Info("gRPC server starting", zap.String("addr", s.lis.Addr().String()))
	if err := s.grpcServer.Serve(s.lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Start runs Serve in a goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.Serve(); err != nil {
			s.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()
}

// Shutdown marks every service NOT_SERVING, then stops gracefully. If ctx expires
// first the remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("gRPC server shutting down")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gRPC server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("forced shutdown due to timeout")
		s.grpcServer.Stop()
		<-done
		return ctx.Err()
	}
}

func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}
