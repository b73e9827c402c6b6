package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func setEnv(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SOURCE_KIND", "sqlite")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REDIS_ADDR", "")
}

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.db")
	out, err := run(t, context.Background(), "demo-db", "--path", path, "--token", "cli-token")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded")
	return path
}

func TestDashboardCommand_JSON(t *testing.T) {
	setEnv(t)
	path := seed(t)

	out, err := run(t, context.Background(), "dashboard", "--db", path, "--token", "cli-token", "--json")
	require.NoError(t, err)

	var d service.Dashboard
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 2, d.TotalResponses)
	require.Len(t, d.Scales, 1)
	assert.Equal(t, scoring.TierModeratePresence, d.Scales[0].Tier.Key)
}

func TestDashboardCommand_Text(t *testing.T) {
	setEnv(t)
	path := seed(t)

	out, err := run(t, context.Background(), "dashboard", "--db", path, "--token", "cli-token")
	require.NoError(t, err)

	assert.Contains(t, out, "Ivexia Demo")
	assert.Contains(t, out, "Escala dos Estilos de Gestão")
	assert.Contains(t, out, "Estilo Coletivista")
	assert.Contains(t, out, "Responses: 2")
	assert.Contains(t, out, "Daily average by factor:")
}

func TestDashboardCommand_Errors(t *testing.T) {
	setEnv(t)
	path := seed(t)

	_, err := run(t, context.Background(), "dashboard", "--db", path, "--token", "wrong")
	assert.ErrorIs(t, err, service.ErrMonitorNotFound)

	_, err = run(t, context.Background(), "dashboard", "--db", path)
	assert.Error(t, err, "token flag is required")

	_, err = run(t, context.Background(), "dashboard", "--source", "ftp", "--token", "x")
	assert.Error(t, err)
}

func TestWatchCommand_StopsOnCancel(t *testing.T) {
	setEnv(t)
	path := seed(t)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	out, err := run(t, ctx, "watch", "--db", path, "--token", "cli-token", "--interval", "20ms")
	require.NoError(t, err)
	assert.Contains(t, out, "responses=2")
}

func TestLegendCommand(t *testing.T) {
	out, err := run(t, context.Background(), "legend")
	require.NoError(t, err)

	assert.Contains(t, out, "risk (canonical)")
	assert.Contains(t, out, "severity (display-severity)")
	assert.Contains(t, out, "Predominante           > 3.50")
	assert.Contains(t, out, ">= 2.50 and <= 3.50")
	assert.Contains(t, out, "Baixo                  >= 3.70")
}
