// Package watch keeps a dashboard fresh by refetching it on a fixed interval.
package watch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lucaslnrr/v0-response-monitor/internal/metrics"
	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

const (
	DefaultInterval     = 5 * time.Second
	defaultFetchTimeout = 30 * time.Second
)

// ErrNoToken is reported by Refresh when no token has been set.
var ErrNoToken = errors.New("no monitor token set")

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Fetcher loads the dashboard for a token.
type Fetcher interface {
	GetDashboard(ctx context.Context, token string) (service.Dashboard, error)
}

// State is a snapshot of the poller. Dashboard holds the last successful result and
// survives later errors.
type State struct {
	Status    Status
	Dashboard *service.Dashboard
	Err       error
	UpdatedAt time.Time
	// Seq is the sequence number of the fetch that produced this state.
	Seq uint64
}

// Poller refetches the dashboard of the current token every interval. Only the result
// of the most recently issued fetch is applied; older completions are dropped. A tick
// that finds the latest fetch still running is skipped.
//
// A Poller runs once: after Run returns no further fetches are started.
type Poller struct {
	fetcher      Fetcher
	interval     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
	onUpdate     func(State)

	seq atomic.Uint64

	mu    sync.Mutex
	token string
	state State

	// pending is the sequence number of the latest fetch while it is running, else 0.
	pending uint64
	closed  bool

	baseCtx context.Context
	wg      sync.WaitGroup
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.fetchTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithOnUpdate is called with every applied state. It runs on the fetch goroutine
// and must not call back into the poller's mutating methods synchronously.
func WithOnUpdate(fn func(State)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

func New(fetcher Fetcher, opts ...Option) *Poller {
	if fetcher == nil {
		panic("nil Fetcher provided to watch.New")
	}
	p := &Poller{
		fetcher:      fetcher,
		interval:     DefaultInterval,
		fetchTimeout: defaultFetchTimeout,
		logger:       zap.NewNop(),
		now:          time.Now,
		state:        State{Status: StatusIdle},
		baseCtx:      context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.Named("poller")
	return p
}

// Interval is the refresh period.
func (p *Poller) Interval() time.Duration { return p.interval }

// State returns the current snapshot.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetToken switches to a new token, clears the previous dashboard and starts a fetch.
// Any fetch still running for the old token is ignored when it completes.
func (p *Poller) SetToken(token string) {
	p.mu.Lock()
	p.token = token
	p.state = State{Status: StatusLoading, UpdatedAt: p.now()}
	p.mu.Unlock()

	p.issue(false)
}

// Refresh starts a fetch for the current token.
func (p *Poller) Refresh() error {
	p.mu.Lock()
	empty := p.token == ""
	p.mu.Unlock()
	if empty {
		return ErrNoToken
	}
	p.issue(false)
	return nil
}

// issue starts a fetch for the current token. A periodic issue is skipped while the
// latest fetch is still running.
func (p *Poller) issue(periodic bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.token == "" || (periodic && p.pending != 0) {
		return
	}

	token := p.token
	base := p.baseCtx
	seq := p.seq.Add(1)
	p.pending = seq
	if p.state.Status != StatusLoading && p.state.Dashboard == nil {
		p.state.Status = StatusLoading
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.fetch(base, seq, token)
	}()
}

func (p *Poller) fetch(base context.Context, seq uint64, token string) {
	ctx, cancel := context.WithTimeout(base, p.fetchTimeout)
	defer cancel()

	d, err := p.fetcher.GetDashboard(ctx, token)

	p.mu.Lock()
	if seq == p.pending {
		p.pending = 0
	}
	if seq != p.seq.Load() {
		p.mu.Unlock()
		p.metrics.StaleDiscarded()
		p.logger.Debug("discarded stale poll result",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", p.seq.Load()))
		return
	}
	if base.Err() != nil {
		p.mu.Unlock()
		return
	}

	next := p.state
	next.Seq = seq
	next.UpdatedAt = p.now()
	if err != nil {
		next.Status = StatusError
		next.Err = err
	} else {
		next.Status = StatusSuccess
		next.Err = nil
		next.Dashboard = &d
	}
	p.state = next
	onUpdate := p.onUpdate
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("poll failed",
			zap.String("token_hash", models.HashToken(token)),
			zap.Error(err))
	}
	if onUpdate != nil {
		onUpdate(next)
	}
}

// Run fetches immediately and then every interval until ctx is cancelled. It stops
// the ticker and waits for in-flight fetches before returning ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	p.baseCtx = ctx
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer func() {
		ticker.Stop()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.wg.Wait()
	}()

	p.issue(false)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.issue(true)
		}
	}
}
