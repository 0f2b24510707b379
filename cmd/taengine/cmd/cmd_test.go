package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/taengine/config"
	"github.com/rustyeddy/taengine/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeBars writes n daily SPY and QQQ bars following a zig-zag.
func writeBars(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,instrument,open,high,low,close,volume\n")
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 100 + float64(i%10)
		if (i/10)%2 == 1 {
			c = 110 - float64(i%10)
		}
		ts := day.AddDate(0, 0, i).Format(time.RFC3339)
		fmt.Fprintf(&b, "%s,SPY,%g,%g,%g,%g,1000\n", ts, c, c+1, c-1, c)
		fmt.Fprintf(&b, "%s,QQQ,%g,%g,%g,%g,500\n", ts, 2*c, 2*c+2, 2*c-2, 2*c)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "taengine version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "ema-cross SPY (12/26)")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("run:\n  name: x\n"), 0644))
	_, err = execute(t, "config", "validate", "-f", bad)
	assert.Error(t, err)
}

func TestIndicatorsList(t *testing.T) {
	out, err := execute(t, "indicators")
	require.NoError(t, err)
	assert.Contains(t, out, "fast,slow,line,signal,divergence")
	assert.Contains(t, out, "CAPM")
	assert.Contains(t, out, "benchmark")
}

func TestRunAndShow(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "bars.csv")
	writeBars(t, data, 40)

	cfg := config.Default()
	cfg.Run.Name = "cli"
	cfg.Run.Data = data
	cfg.Indicators = append(cfg.Indicators, config.IndicatorConfig{
		Name: "capm", Type: "CAPM", Instrument: "QQQ", Params: map[string]float64{"period": 10},
	})
	cfg.Journal.DBPath = filepath.Join(dir, "run.db")
	cfg.Log.Level = "error"
	cfg.Metrics.File = filepath.Join(dir, "run.prom")
	cfgPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	report := filepath.Join(dir, "run.org")
	out, err := execute(t, "run", "-f", cfgPath, "--report", report)
	require.NoError(t, err)
	assert.Contains(t, out, "* RUN: cli ema-cross+indicators")
	assert.Contains(t, out, ":BARS:        40")
	assert.Contains(t, out, "| ema.fast | SPY | 39 |")
	assert.Contains(t, out, "| capm.beta | QQQ | 39 |")
	assert.NotContains(t, out, "** Failure")

	org, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, out, string(org))

	prom, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "taengine_memo_computes_total")
	assert.Contains(t, string(prom), "taengine_memo_hits_total")

	j, err := journal.NewSQLite(cfg.Journal.DBPath)
	require.NoError(t, err)
	runs, err := j.ListRuns()
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.Len(t, runs, 1)
	id := runs[0].RunID

	out, err = execute(t, "show", "-d", cfg.Journal.DBPath, "--value", "")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	out, err = execute(t, "show", "-d", cfg.Journal.DBPath, id)
	require.NoError(t, err)
	assert.Contains(t, out, ":RUN_ID:      "+id)
	assert.Contains(t, out, "| rsi | SPY | 39 |")

	out, err = execute(t, "show", "-d", cfg.Journal.DBPath, id, "--value", "ema.position")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 40)
	showValue = ""
}

func TestRunReportsFailure(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(data, []byte(`time,instrument,open,high,low,close
2024-01-03T00:00:00Z,SPY,1,1,1,1
2024-01-02T00:00:00Z,SPY,1,1,1,1
`), 0644))

	cfg := config.Default()
	cfg.Run.Data = data
	cfg.Journal = config.JournalConfig{Type: "csv",
		ValuesFile: filepath.Join(dir, "values.csv"), RunsFile: filepath.Join(dir, "runs.csv")}
	cfg.Log.Level = "error"
	cfgPath := filepath.Join(dir, "run.json")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	out, err := execute(t, "run", "-f", cfgPath, "--report", "")
	require.Error(t, err)
	assert.Contains(t, out, "** Failure")
	assert.Contains(t, out, ":BARS:        1")

	runs, err := os.ReadFile(cfg.Journal.RunsFile)
	require.NoError(t, err)
	assert.Contains(t, string(runs), "out of order")
}

func TestRunMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
