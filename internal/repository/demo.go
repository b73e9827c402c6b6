package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
)

// DemoLinkTTL is how long a demo monitor link stays valid.
const DemoLinkTTL = 10 * 24 * time.Hour

type demoQuestion struct {
	label  string
	factor string
	// low and high are the two answers recorded for the question.
	low, high int
}

const demoScale = "Escala dos Estilos de Gestão"

var demoQuestions = []demoQuestion{
	{"Em meu trabalho, incentiva-se a idolatria dos chefes", "Estilo Individualista", 2, 3},
	{"Os gestores desta organização se consideram insubstituíveis", "Estilo Individualista", 3, 4},
	{"Aqui os gestores preferem trabalhar individualmente", "Estilo Individualista", 2, 3},
	{"Nesta organização os gestores se consideram o centro do mundo", "Estilo Individualista", 2, 3},
	{"Os gestores desta organização fazem qualquer coisa para chamar a atenção", "Estilo Individualista", 2, 2},
	{"É creditada grande importância para as regras nesta organização", "Estilo Individualista", 4, 4},
	{"A hierarquia é valorizada nesta organização", "Estilo Individualista", 1, 2},
	{"Os laços afetivos são fracos entre as pessoas desta organização", "Estilo Individualista", 3, 4},
	{"Há forte controle do trabalho", "Estilo Individualista", 3, 3},
	{"O ambiente de trabalho se desorganiza com mudanças", "Estilo Individualista", 4, 5},
	{"As pessoas são comprometidas com a organização mesmo quando não há retorno adequado", "Estilo Coletivista", 3, 3},
	{"O mérito das conquistas na empresa é de todos", "Estilo Coletivista", 2, 3},
	{"O trabalho coletivo é valorizado pelos gestores", "Estilo Coletivista", 2, 3},
	{"Para esta organização, o resultado do trabalho é visto como uma realização do grupo", "Estilo Coletivista", 3, 3},
}

// SeedDemo creates the schema and a demo survey reachable through token. It is meant
// for local databases only.
func SeedDemo(ctx context.Context, db *sql.DB, token string, now time.Time) (err error) {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SeedDemo: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const surveyID = 1
	res, err := tx.ExecContext(ctx, `
		INSERT INTO monitor_links (survey_id, token_hash, company, research, usage_count, usage_max, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, surveyID, models.HashToken(token), "Ivexia Demo", "PROART - Estilos de Gestão", 2, 100,
		now.Add(-time.Hour).UTC().Format(time.RFC3339), now.Add(DemoLinkTTL).UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert demo link: %w", err)
	}
	linkID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("demo link id: %w", err)
	}

	questionIDs := make([]int64, len(demoQuestions))
	for i, q := range demoQuestions {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (survey_id, position, label, factor, scale) VALUES (?, ?, ?, ?, ?)`,
			surveyID, i+1, q.label, q.factor, demoScale)
		if err != nil {
			return fmt.Errorf("insert demo question %d: %w", i+1, err)
		}
		if questionIDs[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("demo question id: %w", err)
		}
	}

	pick := []func(demoQuestion) int{
		func(q demoQuestion) int { return q.low },
		func(q demoQuestion) int { return q.high },
	}
	for n, answer := range pick {
		total := 0
		for _, q := range demoQuestions {
			total += answer(q)
		}
		score := float64(total) / float64(len(demoQuestions))
		risk := scoring.Classify(score, scoring.FamilyRisk).Label()
		created := now.Add(-time.Duration(len(pick)-n) * 17 * time.Minute).UTC().Format(time.RFC3339)

		res, err := tx.ExecContext(ctx,
			`INSERT INTO survey_responses (link_id, created_at, score, risk_level) VALUES (?, ?, ?, ?)`,
			linkID, created, score, risk)
		if err != nil {
			return fmt.Errorf("insert demo response: %w", err)
		}
		responseID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("demo response id: %w", err)
		}
		for i, q := range demoQuestions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO answers (response_id, question_id, value) VALUES (?, ?, ?)`,
				responseID, questionIDs[i], answer(q)); err != nil {
				return fmt.Errorf("insert demo answer: %w", err)
			}
		}
	}

	return tx.Commit()
}
