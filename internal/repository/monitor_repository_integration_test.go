package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/repository"
)

const demoToken = "demo-token-7f3a"

var baseTime = time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.SeedDemo(context.Background(), db, demoToken, baseTime))
	return db
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMonitorRepository_Integration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewMonitorRepository(db, repository.WithClock(fixedClock(baseTime)))

	t.Run("FetchMonitor", func(t *testing.T) {
		p, err := repo.FetchMonitor(ctx, demoToken)
		require.NoError(t, err)

		assert.Equal(t, models.HashToken(demoToken), p.TokenHash)
		assert.Equal(t, 2, p.TotalResponses)
		assert.Equal(t, 2, p.Usage.Count)
		require.NotNil(t, p.Usage.Max)
		assert.Equal(t, 100, *p.Usage.Max)
		assert.Equal(t, "Ivexia Demo", p.Company)
		assert.NotEmpty(t, p.ExpiresAt)

		require.Len(t, p.QuestionStats, 14)
		first := p.QuestionStats[0]
		assert.Equal(t, "Em meu trabalho, incentiva-se a idolatria dos chefes", first.Label)
		assert.Equal(t, "Estilo Individualista", first.Factor)
		assert.Equal(t, "Escala dos Estilos de Gestão", first.Scale)
		assert.InDelta(t, 2.5, first.Average, 1e-9)
		assert.Equal(t, 2, first.Count)
		assert.InDelta(t, 1.5, p.QuestionStats[6].Average, 1e-9)

		require.Len(t, p.RecentResponses, 2)
		assert.Equal(t, "2", p.RecentResponses[0].ID, "newest first")
		require.NotNil(t, p.RecentResponses[0].Score)
		require.NotNil(t, p.RecentResponses[0].RiskLevel)
		assert.Equal(t, "Moderado", *p.RecentResponses[0].RiskLevel)

		require.Len(t, p.RiskDistribution, 1)
		assert.Equal(t, models.RiskCount{RiskLevel: "Moderado", Count: 2}, p.RiskDistribution[0])
	})

	t.Run("token is trimmed before hashing", func(t *testing.T) {
		p, err := repo.FetchMonitor(ctx, "  "+demoToken+"\n")
		require.NoError(t, err)
		assert.Equal(t, 2, p.TotalResponses)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := repo.FetchMonitor(ctx, "nope")
		assert.ErrorIs(t, err, models.ErrMonitorNotFound)
	})

	t.Run("expired link", func(t *testing.T) {
		late := repository.NewMonitorRepository(db,
			repository.WithClock(fixedClock(baseTime.Add(repository.DemoLinkTTL))))
		_, err := late.FetchMonitor(ctx, demoToken)
		assert.ErrorIs(t, err, models.ErrMonitorExpired)
	})

	t.Run("recent limit", func(t *testing.T) {
		limited := repository.NewMonitorRepository(db,
			repository.WithClock(fixedClock(baseTime)),
			repository.WithRecentLimit(1))
		p, err := limited.FetchMonitor(ctx, demoToken)
		require.NoError(t, err)
		assert.Len(t, p.RecentResponses, 1)
	})
}

func TestMonitorRepository_UnansweredQuestion(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, err := db.Exec(`INSERT INTO questions (survey_id, position, label, factor, scale)
		VALUES (1, 99, 'Pergunta nova', 'Fator', 'Escala de Danos Relacionados ao Trabalho')`)
	require.NoError(t, err)

	repo := repository.NewMonitorRepository(db, repository.WithClock(fixedClock(baseTime)))
	p, err := repo.FetchMonitor(ctx, demoToken)
	require.NoError(t, err)

	require.Len(t, p.QuestionStats, 15)
	last := p.QuestionStats[14]
	assert.Equal(t, "Pergunta nova", last.Label)
	assert.Equal(t, 0, last.Count)
	assert.Equal(t, 0.0, last.Average)
}

func TestMonitorRepository_NoExpiry(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, err := db.Exec(`INSERT INTO monitor_links (survey_id, token_hash, created_at) VALUES (1, ?, ?)`,
		models.HashToken("open-link"), baseTime.Format(time.RFC3339))
	require.NoError(t, err)

	repo := repository.NewMonitorRepository(db, repository.WithClock(fixedClock(baseTime.AddDate(5, 0, 0))))
	p, err := repo.FetchMonitor(ctx, "open-link")
	require.NoError(t, err)

	assert.Equal(t, 0, p.TotalResponses)
	assert.Nil(t, p.Usage.Max)
	assert.Empty(t, p.RecentResponses)
	assert.Empty(t, p.RiskDistribution)
	require.Len(t, p.QuestionStats, 14)
	assert.Equal(t, 0, p.QuestionStats[0].Count)
	assert.Empty(t, p.DailyFactorStats)
}

func TestMonitorRepository_QueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, survey_id, token_hash").
		WithArgs(models.HashToken("tok")).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	repo := repository.NewMonitorRepository(db)
	_, err = repo.FetchMonitor(context.Background(), "tok")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query monitor link")
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NotErrorIs(t, err, models.ErrMonitorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMonitorRepository_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	repo := repository.NewMonitorRepository(db)
	_, err = repo.FetchMonitor(context.Background(), "tok")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin FetchMonitor")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func insertResponse(t *testing.T, db *sql.DB, at time.Time, answers map[int64]int) {
	t.Helper()
	res, err := db.Exec(`INSERT INTO survey_responses (link_id, created_at, score, risk_level) VALUES (1, ?, NULL, NULL)`,
		at.UTC().Format(time.RFC3339))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	for q, v := range answers {
		_, err := db.Exec(`INSERT INTO answers (response_id, question_id, value) VALUES (?, ?, ?)`, id, q, v)
		require.NoError(t, err)
	}
}

func TestMonitorRepository_DailyFactorStats(t *testing.T) {
	ctx := context.Background()

	t.Run("per day and factor, oldest first", func(t *testing.T) {
		db := setupTestDB(t)
		insertResponse(t, db, baseTime.AddDate(0, 0, -1), map[int64]int{1: 5, 11: 1})

		repo := repository.NewMonitorRepository(db, repository.WithClock(fixedClock(baseTime)))
		p, err := repo.FetchMonitor(ctx, demoToken)
		require.NoError(t, err)

		require.Len(t, p.DailyFactorStats, 4)
		assert.Equal(t, models.DailyFactorStat{
			Date: "2025-10-17", Factor: "Estilo Individualista", Scale: "Escala dos Estilos de Gestão", Average: 5, Count: 1,
		}, p.DailyFactorStats[0])
		assert.Equal(t, "Estilo Coletivista", p.DailyFactorStats[1].Factor)
		assert.Equal(t, 1.0, p.DailyFactorStats[1].Average)

		today := p.DailyFactorStats[2]
		assert.Equal(t, "2025-10-18", today.Date)
		assert.Equal(t, "Estilo Individualista", today.Factor)
		assert.Equal(t, 20, today.Count)
		assert.InDelta(t, 59.0/20.0, today.Average, 1e-9)
		assert.Equal(t, 8, p.DailyFactorStats[3].Count)
		assert.InDelta(t, 22.0/8.0, p.DailyFactorStats[3].Average, 1e-9)
	})

	t.Run("covers the last seven response days", func(t *testing.T) {
		db := setupTestDB(t)
		for days := 1; days <= 7; days++ {
			insertResponse(t, db, baseTime.AddDate(0, 0, -days), map[int64]int{1: 3})
		}

		repo := repository.NewMonitorRepository(db, repository.WithClock(fixedClock(baseTime)))
		p, err := repo.FetchMonitor(ctx, demoToken)
		require.NoError(t, err)

		dates := map[string]bool{}
		for _, s := range p.DailyFactorStats {
			dates[s.Date] = true
		}
		assert.Len(t, dates, 7)
		assert.False(t, dates["2025-10-11"], "eighth day back is dropped")
		assert.True(t, dates["2025-10-12"])
		assert.Equal(t, "2025-10-12", p.DailyFactorStats[0].Date)
	})
}
