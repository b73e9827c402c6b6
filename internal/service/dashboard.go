package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucaslnrr/v0-response-monitor/internal/metrics"
	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
)

const defaultSourceTimeout = 5 * time.Second

var (
	ErrInvalidToken    = errors.New("invalid monitor token")
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrMonitorExpired  = errors.New("monitor link expired")
	ErrSourceFailure   = errors.New("monitor source failure")
)

// DashboardService loads monitor payloads and derives the dashboard from them.
type DashboardService struct {
	source     MonitorSource
	logger     *zap.Logger
	metrics    *metrics.Metrics
	sourceName string
	timeout    time.Duration
	location   *time.Location
	now        func() time.Time
}

type Option func(*DashboardService)

// WithLocation sets the timezone used for hourly counts when the payload has none.
func WithLocation(loc *time.Location) Option {
	return func(s *DashboardService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *DashboardService) { s.metrics = m }
}

// WithSourceName labels fetch metrics, e.g. "sqlite" or "http".
func WithSourceName(name string) Option {
	return func(s *DashboardService) { s.sourceName = name }
}

// WithTimeout bounds each source call.
func WithTimeout(d time.Duration) Option {
	return func(s *DashboardService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService creates a new DashboardService instance.
func NewDashboardService(source MonitorSource, logger *zap.Logger, opts ...Option) *DashboardService {
	if source == nil {
		panic("source must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &DashboardService{
		source:     source,
		logger:     logger,
		sourceName: "unknown",
		timeout:    defaultSourceTimeout,
		location:   time.UTC,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetDashboard fetches the payload for token and computes every derived value.
func (s *DashboardService) GetDashboard(ctx context.Context, token string) (Dashboard, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Dashboard{}, ErrInvalidToken
	}

	srcCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	payload, err := s.source.FetchMonitor(srcCtx, token)
	s.metrics.ObserveFetch(s.sourceName, time.Since(start), err)
	if err != nil {
		return Dashboard{}, s.mapSourceError(token, err)
	}

	d := BuildDashboard(payload, s.locationFor(payload), s.now())
	if d.TokenHash == "" {
		d.TokenHash = models.HashToken(token)
	}

	s.logger.Info("built dashboard",
		zap.String("token_hash", d.TokenHash),
		zap.Int("total_responses", d.TotalResponses),
		zap.Int("questions", len(d.Questions)),
		zap.Duration("fetch", time.Since(start)))

	return d, nil
}

func (s *DashboardService) mapSourceError(token string, err error) error {
	switch {
	case errors.Is(err, models.ErrMonitorNotFound):
		return ErrMonitorNotFound
	case errors.Is(err, models.ErrMonitorExpired):
		return ErrMonitorExpired
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("fetch monitor: %w", err)
	default:
		s.logger.Error("failed to fetch monitor",
			zap.String("token_hash", models.HashToken(token)),
			zap.String("source", s.sourceName),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSourceFailure, err)
	}
}

func (s *DashboardService) locationFor(p models.MonitorPayload) *time.Location {
	if p.Timezone == "" {
		return s.location
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		s.logger.Warn("unknown payload timezone", zap.String("timezone", p.Timezone))
		return s.location
	}
	return loc
}

// BuildDashboard derives the dashboard from a payload. Missing lists become empty ones.
func BuildDashboard(p models.MonitorPayload, loc *time.Location, now time.Time) Dashboard {
	if loc == nil {
		loc = time.UTC
	}
	d := Dashboard{
		TokenHash:        p.TokenHash,
		TotalResponses:   p.TotalResponses,
		Usage:            summarizeUsage(p.Usage),
		Scales:           make([]ScaleSummary, 0),
		Factors:          make([]FactorSummary, 0),
		Questions:        make([]QuestionRow, 0, len(p.QuestionStats)),
		RiskDistribution: make([]RiskBucket, 0, len(p.RiskDistribution)),
		RecentResponses:  make([]RecentRow, 0, len(p.RecentResponses)),
		Evolution:        make([]DailyFactorPoint, 0, len(p.DailyFactorStats)),
		Link: LinkInfo{
			Company:   p.Company,
			Research:  p.Research,
			CreatedAt: p.CreatedAt,
			ExpiresAt: p.ExpiresAt,
		},
		GeneratedAt: now.In(loc),
	}

	avg, count := scoring.OverallAverage(p.QuestionStats)
	d.Overall = OverallSummary{Average: avg, Count: count, Severity: scoring.Level(avg)}

	var families []scoring.Family
	for _, a := range scoring.AggregateByScale(p.QuestionStats) {
		family := scoring.FamilyForScale(a.Scale)
		families = append(families, family)
		d.Scales = append(d.Scales, ScaleSummary{
			Scale:           a.Scale,
			WeightedAverage: a.WeightedAverage,
			Count:           a.Count,
			Family:          family,
			Tier:            tierView(scoring.Classify(a.WeightedAverage, family)),
			Severity:        scoring.Level(a.WeightedAverage),
		})
	}
	if count > 0 {
		d.Overall.Tier = tierView(scoring.Classify(avg, commonFamily(families)))
	}

	factorScale := make(map[string]string)
	for _, q := range p.QuestionStats {
		if _, ok := factorScale[q.Factor]; !ok {
			factorScale[q.Factor] = q.Scale
		}
		d.Questions = append(d.Questions, QuestionRow{QuestionStat: q, Severity: scoring.Level(q.Average)})
	}
	for _, a := range scoring.AggregateByFactor(p.QuestionStats) {
		scale := factorScale[a.Key]
		d.Factors = append(d.Factors, FactorSummary{
			Factor:          a.Key,
			Scale:           scale,
			WeightedAverage: a.WeightedAverage,
			Count:           a.Count,
			Tier:            tierView(scoring.Classify(a.WeightedAverage, scoring.FamilyForScale(scale))),
			Severity:        scoring.Level(a.WeightedAverage),
		})
	}

	for _, ds := range p.DailyFactorStats {
		d.Evolution = append(d.Evolution, DailyFactorPoint{
			Date:     ds.Date,
			Factor:   ds.Factor,
			Average:  ds.Average,
			Count:    ds.Count,
			Tier:     tierView(scoring.Classify(ds.Average, scoring.FamilyForScale(ds.Scale))),
			Severity: scoring.Level(ds.Average),
		})
	}

	riskTotal := 0
	for _, r := range p.RiskDistribution {
		riskTotal += r.Count
	}
	for _, r := range p.RiskDistribution {
		b := RiskBucket{RiskLevel: r.RiskLevel, Count: r.Count, Tier: tierView(scoring.ParseRiskLevel(r.RiskLevel))}
		if riskTotal > 0 {
			b.Share = float64(r.Count) / float64(riskTotal)
		}
		d.RiskDistribution = append(d.RiskDistribution, b)
	}

	scores := make([]float64, 0, len(p.RecentResponses))
	for _, r := range p.RecentResponses {
		d.RecentResponses = append(d.RecentResponses, recentRow(r))
		if r.Score != nil {
			scores = append(scores, *r.Score)
		}
	}
	d.ScoreDistribution = scoring.Distribution(scores)
	d.Hourly = hourlyActivity(p.RecentResponses, loc)

	return d
}

// commonFamily is the family shared by every scale, or FamilyUnknown when the scales
// mix families or any of them is unrecognised.
func commonFamily(families []scoring.Family) scoring.Family {
	if len(families) == 0 {
		return scoring.FamilyUnknown
	}
	for _, f := range families[1:] {
		if f != families[0] {
			return scoring.FamilyUnknown
		}
	}
	return families[0]
}

func tierView(t scoring.Tier) *TierView {
	if t == scoring.TierUnknown {
		return nil
	}
	return &TierView{Key: t, Label: t.Label()}
}

func summarizeUsage(u models.Usage) UsageSummary {
	s := UsageSummary{Count: u.Count, Max: u.Max}
	if u.Max != nil {
		remaining := max(0, *u.Max-u.Count)
		s.Remaining = &remaining
		s.Exhausted = u.Count >= *u.Max
	}
	return s
}

// recentRow classifies a response by its stored label, falling back to its score on
// the risk table when the label is missing or unrecognised.
func recentRow(r models.RecentResponse) RecentRow {
	row := RecentRow{ID: r.ID, CreatedAt: r.CreatedAt, Score: r.Score, RiskLevel: r.RiskLevel}

	tier := scoring.TierUnknown
	if r.RiskLevel != nil {
		tier = scoring.ParseRiskLevel(*r.RiskLevel)
	}
	if tier == scoring.TierUnknown && r.Score != nil {
		tier = scoring.Classify(*r.Score, scoring.FamilyRisk)
	}
	row.Tier = tierView(tier)

	if r.Score != nil {
		sev := scoring.Level(*r.Score)
		row.Severity = &sev
	}
	return row
}

var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func parseCreatedAt(v string) (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func hourlyActivity(recent []models.RecentResponse, loc *time.Location) HourlyActivity {
	h := HourlyActivity{Timezone: loc.String(), PeakHour: -1}
	for _, r := range recent {
		t, ok := parseCreatedAt(r.CreatedAt)
		if !ok {
			continue
		}
		h.Counts[t.In(loc).Hour()]++
	}
	for hour, c := range h.Counts {
		if c > 0 && (h.PeakHour < 0 || c > h.Counts[h.PeakHour]) {
			h.PeakHour = hour
		}
	}
	return h
}

// CacheKey is the cache key of a token's dashboard. Only the token hash appears in it.
func CacheKey(token string) string {
	return "dashboard:" + models.HashToken(token)
}
