package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
)

const (
	defaultRecentLimit = 5
	// evolutionDays is how many of the most recent response days the daily factor
	// series covers.
	evolutionDays = 7
)

// MonitorRepository builds monitor payloads straight from the survey database.
type MonitorRepository struct {
	db          *sql.DB
	recentLimit int
	now         func() time.Time
}

type Option func(*MonitorRepository)

// WithRecentLimit caps how many recent responses a payload carries.
func WithRecentLimit(n int) Option {
	return func(r *MonitorRepository) {
		if n > 0 {
			r.recentLimit = n
		}
	}
}

// WithClock overrides the clock used for link expiry.
func WithClock(now func() time.Time) Option {
	return func(r *MonitorRepository) { r.now = now }
}

func NewMonitorRepository(db *sql.DB, opts ...Option) *MonitorRepository {
	r := &MonitorRepository{db: db, recentLimit: defaultRecentLimit, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type linkRow struct {
	id        int64
	surveyID  int64
	tokenHash string
	company   string
	research  string
	usage     int
	usageMax  sql.NullInt64
	createdAt string
	expiresAt sql.NullString
}

// FetchMonitor loads everything the dashboard needs for token in one read-only
// transaction.
func (r *MonitorRepository) FetchMonitor(ctx context.Context, token string) (models.MonitorPayload, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return models.MonitorPayload{}, fmt.Errorf("begin FetchMonitor: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	link, err := r.getLink(ctx, tx, models.HashToken(token))
	if err != nil {
		return models.MonitorPayload{}, err
	}
	if err := r.checkExpiry(link); err != nil {
		return models.MonitorPayload{}, err
	}

	payload := models.MonitorPayload{
		TokenHash: link.tokenHash,
		Usage:     models.Usage{Count: link.usage},
		Company:   link.company,
		Research:  link.research,
		CreatedAt: link.createdAt,
		ExpiresAt: link.expiresAt.String,
	}
	if link.usageMax.Valid {
		m := int(link.usageMax.Int64)
		payload.Usage.Max = &m
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM survey_responses WHERE link_id = ?`, link.id,
	).Scan(&payload.TotalResponses); err != nil {
		return models.MonitorPayload{}, fmt.Errorf("query total responses: %w", err)
	}

	if payload.RiskDistribution, err = r.getRiskDistribution(ctx, tx, link.id); err != nil {
		return models.MonitorPayload{}, err
	}
	if payload.RecentResponses, err = r.getRecentResponses(ctx, tx, link.id); err != nil {
		return models.MonitorPayload{}, err
	}
	if payload.QuestionStats, err = r.getQuestionStats(ctx, tx, link); err != nil {
		return models.MonitorPayload{}, err
	}
	if payload.DailyFactorStats, err = r.getDailyFactorStats(ctx, tx, link.id); err != nil {
		return models.MonitorPayload{}, err
	}
	return payload, nil
}

func (r *MonitorRepository) getLink(ctx context.Context, tx *sql.Tx, tokenHash string) (linkRow, error) {
	const query = `
		SELECT id, survey_id, token_hash, company, research, usage_count, usage_max, created_at, expires_at
		FROM monitor_links
		WHERE token_hash = ?
	`
	var l linkRow
	err := tx.QueryRowContext(ctx, query, tokenHash).Scan(
		&l.id, &l.surveyID, &l.tokenHash, &l.company, &l.research,
		&l.usage, &l.usageMax, &l.createdAt, &l.expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return linkRow{}, models.ErrMonitorNotFound
	}
	if err != nil {
		return linkRow{}, fmt.Errorf("query monitor link: %w", err)
	}
	return l, nil
}

func (r *MonitorRepository) checkExpiry(l linkRow) error {
	if !l.expiresAt.Valid || l.expiresAt.String == "" {
		return nil
	}
	expires, err := time.Parse(time.RFC3339, l.expiresAt.String)
	if err != nil {
		return fmt.Errorf("parse expires_at %q: %w", l.expiresAt.String, err)
	}
	if !r.now().Before(expires) {
		return models.ErrMonitorExpired
	}
	return nil
}

func (r *MonitorRepository) getRiskDistribution(ctx context.Context, tx *sql.Tx, linkID int64) ([]models.RiskCount, error) {
	const query = `
		SELECT risk_level, COUNT(*) AS total
		FROM survey_responses
		WHERE link_id = ? AND risk_level IS NOT NULL
		GROUP BY risk_level
		ORDER BY total DESC, risk_level
	`
	rows, err := tx.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("query risk distribution: %w", err)
	}
	defer rows.Close()

	out := make([]models.RiskCount, 0)
	for rows.Next() {
		var rc models.RiskCount
		if err := rows.Scan(&rc.RiskLevel, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan risk distribution row: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk distribution: %w", err)
	}
	return out, nil
}

func (r *MonitorRepository) getRecentResponses(ctx context.Context, tx *sql.Tx, linkID int64) ([]models.RecentResponse, error) {
	const query = `
		SELECT id, created_at, score, risk_level
		FROM survey_responses
		WHERE link_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := tx.QueryContext(ctx, query, linkID, r.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("query recent responses: %w", err)
	}
	defer rows.Close()

	out := make([]models.RecentResponse, 0, r.recentLimit)
	for rows.Next() {
		var (
			id    int64
			rr    models.RecentResponse
			score sql.NullFloat64
			risk  sql.NullString
		)
		if err := rows.Scan(&id, &rr.CreatedAt, &score, &risk); err != nil {
			return nil, fmt.Errorf("scan recent response row: %w", err)
		}
		rr.ID = strconv.FormatInt(id, 10)
		if score.Valid {
			rr.Score = &score.Float64
		}
		if risk.Valid {
			rr.RiskLevel = &risk.String
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent responses: %w", err)
	}
	return out, nil
}

// getQuestionStats averages the answers given through this link, per question.
// Questions nobody answered yet come back with a zero count.
func (r *MonitorRepository) getQuestionStats(ctx context.Context, tx *sql.Tx, l linkRow) ([]scoring.QuestionStat, error) {
	const query = `
		SELECT
			q.id,
			q.label,
			q.factor,
			q.scale,
			COALESCE(AVG(CAST(a.value AS REAL)), 0) AS average,
			COUNT(a.id) AS answers
		FROM questions AS q
		LEFT JOIN answers AS a
			ON a.question_id = q.id
			AND a.response_id IN (SELECT id FROM survey_responses WHERE link_id = ?)
		WHERE q.survey_id = ?
		GROUP BY q.id, q.label, q.factor, q.scale
		ORDER BY q.position, q.id
	`
	rows, err := tx.QueryContext(ctx, query, l.id, l.surveyID)
	if err != nil {
		return nil, fmt.Errorf("query question stats: %w", err)
	}
	defer rows.Close()

	out := make([]scoring.QuestionStat, 0)
	for rows.Next() {
		var (
			id int64
			qs scoring.QuestionStat
		)
		if err := rows.Scan(&id, &qs.Label, &qs.Factor, &qs.Scale, &qs.Average, &qs.Count); err != nil {
			return nil, fmt.Errorf("scan question stats row: %w", err)
		}
		qs.ID = strconv.FormatInt(id, 10)
		out = append(out, qs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question stats: %w", err)
	}
	return out, nil
}

// getDailyFactorStats averages answers per factor for each of the last evolutionDays
// days that received responses, oldest day first.
func (r *MonitorRepository) getDailyFactorStats(ctx context.Context, tx *sql.Tx, linkID int64) ([]models.DailyFactorStat, error) {
	const query = `
		SELECT
			substr(r.created_at, 1, 10) AS day,
			q.factor,
			q.scale,
			AVG(CAST(a.value AS REAL)) AS average,
			COUNT(a.id) AS answers
		FROM survey_responses AS r
		JOIN answers AS a ON a.response_id = r.id
		JOIN questions AS q ON q.id = a.question_id
		WHERE r.link_id = ?
			AND substr(r.created_at, 1, 10) IN (
				SELECT DISTINCT substr(created_at, 1, 10)
				FROM survey_responses
				WHERE link_id = ?
				ORDER BY 1 DESC
				LIMIT ?
			)
		GROUP BY day, q.factor, q.scale
		ORDER BY day, MIN(q.position), q.factor
	`
	rows, err := tx.QueryContext(ctx, query, linkID, linkID, evolutionDays)
	if err != nil {
		return nil, fmt.Errorf("query daily factor stats: %w", err)
	}
	defer rows.Close()

	out := make([]models.DailyFactorStat, 0)
	for rows.Next() {
		var s models.DailyFactorStat
		if err := rows.Scan(&s.Date, &s.Factor, &s.Scale, &s.Average, &s.Count); err != nil {
			return nil, fmt.Errorf("scan daily factor stats row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily factor stats: %w", err)
	}
	return out, nil
}
