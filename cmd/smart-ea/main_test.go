package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("JOURNAL_DB_PATH", filepath.Join(dir, "journal.db"))
	t.Setenv("FALLBACK_LOG_PATH", filepath.Join(dir, "fallback_logs.txt"))
	t.Setenv("POSTGREST_URL", "")
	t.Setenv("VOLATILITY_URL", "")
	t.Setenv("SENTIMENT_URL", "")
	t.Setenv("GRAPH_URL", "")
	t.Setenv("HISTORY_URL", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("STATE_DIR", filepath.Join(dir, "state"))
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "smart-ea v")
}

func TestStatusCommand(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, "status", "--env", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Contains(t, out, "STRATEGIES")
	assert.Contains(t, out, "RISK")
}

func TestSelectCommand(t *testing.T) {
	dir := isolate(t)
	out, err := execute(t, "select", "--env", filepath.Join(dir, "missing.env"), "--balance", "5000")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy:")
	assert.Contains(t, out, "Lot:")
}

func TestExportCommand(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "report.xlsx")
	out, err := execute(t, "export", "--env", filepath.Join(dir, "missing.env"), "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()
	assert.Contains(t, fx.GetSheetList(), "Strategies")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "export", "--env", filepath.Join(dir, "missing.env"), "-o", filepath.Join(dir, "report.txt"))
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	dir := isolate(t)
	t.Setenv("RISK_MAX_DRAWDOWN", "2")
	_, err := execute(t, "status", "--env", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestRetrainCommand(t *testing.T) {
	dir := isolate(t)
	env := filepath.Join(dir, "missing.env")

	out, err := execute(t, "retrain", "--env", env)
	require.NoError(t, err)
	assert.Contains(t, out, "not due")

	out, err = execute(t, "retrain", "--env", env, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")

	out, err = execute(t, "retrain", "--env", env, "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "not due")
}
