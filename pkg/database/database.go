// Package database opens a pinged *sql.DB pool with bounded startup retries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	connMaxLifetime = 5 * time.Minute
	connMaxIdleTime = 2 * time.Minute
)

type options struct {
	driver        string
	dataSource    string
	queryOnly     bool
	maxOpenConns  int
	maxIdleConns  int
	retryAttempts int
	retryDelay    time.Duration
	logger        *zap.Logger
}

type Option func(*options)

func WithDriver(driver string) Option {
	return func(o *options) { o.driver = driver }
}

func WithDataSource(dsn string) Option {
	return func(o *options) { o.dataSource = dsn }
}

// WithQueryOnly opens sqlite connections that reject every write.
func WithQueryOnly(enabled bool) Option {
	return func(o *options) { o.queryOnly = enabled }
}

// WithPool sizes the pool. An in-memory sqlite database needs maxOpen 1 so every
// query sees the same database.
func WithPool(maxOpen, maxIdle int) Option {
	return func(o *options) {
		o.maxOpenConns = maxOpen
		o.maxIdleConns = maxIdle
	}
}

// WithRetry sets how many times New tries to open and ping. Attempt n waits n*delay
// before the next one.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		o.retryAttempts = attempts
		o.retryDelay = delay
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// dataSourceName appends driver flags to the configured DSN.
func (o *options) dataSourceName() string {
	dsn := o.dataSource
	if !o.queryOnly || o.driver != "sqlite3" {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_query_only=1"
}

func (o *options) validate() error {
	switch {
	case o.driver == "":
		return errors.New("database driver cannot be empty")
	case o.dataSource == "":
		return errors.New("database data source cannot be empty")
	}
	if o.retryAttempts < 1 {
		o.retryAttempts = 1
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return nil
}

func New(ctx context.Context, opts ...Option) (*sql.DB, error) {
	o := &options{
		driver:        "sqlite3",
		dataSource:    ":memory:",
		maxOpenConns:  25,
		maxIdleConns:  5,
		retryAttempts: 3,
		retryDelay:    time.Second,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	dsn := o.dataSourceName()
	var err error
	for attempt := 1; attempt <= o.retryAttempts; attempt++ {
		var db *sql.DB
		if db, err = connect(ctx, o, dsn); err == nil {
			return db, nil
		}

		o.logger.Warn("database connection attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.retryAttempts),
			zap.Error(err))

		if attempt == o.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("database connect canceled: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * o.retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", o.retryAttempts, err)
}

func connect(ctx context.Context, o *options, dsn string) (*sql.DB, error) {
	db, err := sql.Open(o.driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(o.maxOpenConns)
	db.SetMaxIdleConns(o.maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
