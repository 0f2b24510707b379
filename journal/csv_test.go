package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	rows, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	vp := filepath.Join(dir, "values.csv")
	rp := filepath.Join(dir, "runs.csv")

	j, err := NewCSV(vp, rp)
	require.NoError(t, err)

	require.NoError(t, j.RecordValue(ValueRecord{RunID: "R1", Bar: 3, Time: t0, Instrument: "SPY", Name: "rsi", Value: 55.25}))
	require.NoError(t, j.RecordRun(RunRecord{RunID: "R1", Name: "demo", Bars: 4, Computes: 10}))
	require.NoError(t, j.Close())

	values := readCSV(t, vp)
	require.Len(t, values, 2)
	assert.Equal(t, []string{"run_id", "bar", "time", "instrument", "name", "value"}, values[0])
	assert.Equal(t, []string{"R1", "3", "2024-01-02T03:04:05Z", "SPY", "rsi", "55.25"}, values[1])

	runs := readCSV(t, rp)
	require.Len(t, runs, 2)
	assert.Equal(t, "R1", runs[1][0])
	assert.Equal(t, "demo", runs[1][1])
	assert.Equal(t, "4", runs[1][7])
}

func TestNewCSVBadPath(t *testing.T) {
	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "v.csv"), "r.csv")
	assert.Error(t, err)
}
