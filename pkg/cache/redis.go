// Package cache stores JSON-encoded values in redis under a key prefix.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

const (
	defaultAddress     = "localhost:6379"
	defaultPrefix      = "monitor:"
	defaultDialTimeout = 2 * time.Second
	defaultIOTimeout   = time.Second
)

type Cache struct {
	client *redis.Client
	prefix string
}

type options struct {
	address     string
	password    string
	db          int
	prefix      string
	dialTimeout time.Duration
	ioTimeout   time.Duration
}

type Option func(*options)

// WithAddress accepts host:port or a redis:// / rediss:// URL. Credentials and
// database number in a URL take precedence over WithPassword and WithDB.
func WithAddress(addr string) Option {
	return func(o *options) { o.address = addr }
}

func WithPassword(pass string) Option {
	return func(o *options) { o.password = pass }
}

func WithDB(db int) Option {
	return func(o *options) { o.db = db }
}

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTimeouts bounds connection setup and each read or write.
func WithTimeouts(dial, io time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = dial
		o.ioTimeout = io
	}
}

func clientOptions(o *options) (*redis.Options, error) {
	if strings.HasPrefix(o.address, "redis://") || strings.HasPrefix(o.address, "rediss://") {
		ro, err := redis.ParseURL(o.address)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		ro.DialTimeout = o.dialTimeout
		ro.ReadTimeout = o.ioTimeout
		ro.WriteTimeout = o.ioTimeout
		return ro, nil
	}
	return &redis.Options{
		Addr:         o.address,
		Password:     o.password,
		DB:           o.db,
		DialTimeout:  o.dialTimeout,
		ReadTimeout:  o.ioTimeout,
		WriteTimeout: o.ioTimeout,
	}, nil
}

// New connects and pings the server. The returned Cache must be closed.
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	o := &options{
		address:     defaultAddress,
		prefix:      defaultPrefix,
		dialTimeout: defaultDialTimeout,
		ioTimeout:   defaultIOTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	ro, err := clientOptions(o)
	if err != nil {
		return nil, err
	}

	c := &Cache{client: redis.NewClient(ro), prefix: o.prefix}
	if err := c.Ping(ctx); err != nil {
		_ = c.client.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get decodes the JSON value stored at key into dest.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrMiss
	case err != nil:
		return fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode cached value: %w", err)
	}
	return nil
}

// Set stores value as JSON under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
