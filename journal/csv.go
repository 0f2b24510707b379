package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

// CSV writes values and runs to two files, flushing after every record.
type CSV struct {
	values *csv.Writer
	runs   *csv.Writer
	vf, rf *os.File
}

func NewCSV(valuesPath, runsPath string) (*CSV, error) {
	vf, err := os.Create(valuesPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(runsPath)
	if err != nil {
		vf.Close()
		return nil, err
	}

	vw := csv.NewWriter(vf)
	rw := csv.NewWriter(rf)

	j := &CSV{values: vw, runs: rw, vf: vf, rf: rf}
	if err := j.write(vw, []string{"run_id", "bar", "time", "instrument", "name", "value"}); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(rw, []string{
		"run_id", "name", "algorithm", "dataset", "created", "start", "end",
		"bars", "values", "entries", "hits", "computes", "error",
	}); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordValue(v ValueRecord) error {
	return j.write(j.values, []string{
		v.RunID,
		strconv.Itoa(v.Bar),
		v.Time.Format(time.RFC3339),
		v.Instrument,
		v.Name,
		f(v.Value),
	})
}

func (j *CSV) RecordRun(r RunRecord) error {
	return j.write(j.runs, []string{
		r.RunID,
		r.Name,
		r.Algorithm,
		r.Dataset,
		r.Created.Format(time.RFC3339),
		r.Start.Format(time.RFC3339),
		r.End.Format(time.RFC3339),
		strconv.Itoa(r.Bars),
		strconv.Itoa(r.Values),
		strconv.Itoa(r.Entries),
		strconv.Itoa(r.Hits),
		strconv.Itoa(r.Computes),
		r.Error,
	})
}

func (j *CSV) Close() error {
	j.values.Flush()
	j.runs.Flush()
	return multierr.Combine(
		j.values.Error(),
		j.runs.Error(),
		j.vf.Close(),
		j.rf.Close(),
	)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
