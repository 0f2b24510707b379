package journal

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `run_id, name, algorithm, dataset, created, start_time, end_time,
	bars, value_count, entries, hits, computes, config, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	err := s.Scan(
		&r.RunID,
		&r.Name,
		&r.Algorithm,
		&r.Dataset,
		&r.Created,
		&r.Start,
		&r.End,
		&r.Bars,
		&r.Values,
		&r.Entries,
		&r.Hits,
		&r.Computes,
		&r.Config,
		&r.Error,
	)
	return r, err
}

// GetRun returns a single run record by ID.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrRunNotFound)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns() ([]RunRecord, error) {
	rows, err := j.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListValues returns a run's values in bar order. An empty name returns
// every value.
func (j *SQLite) ListValues(runID, name string) ([]ValueRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, bar, time, instrument, name, value
		FROM indicator_values
		WHERE run_id = ? AND (? = '' OR name = ?)
		ORDER BY bar ASC, rowid ASC`, runID, name, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValueRecord
	for rows.Next() {
		var v ValueRecord
		if err := rows.Scan(
			&v.RunID,
			&v.Bar,
			&v.Time,
			&v.Instrument,
			&v.Name,
			&v.Value,
		); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Latest returns the last value of each name emitted by a run, in name
// order.
func (j *SQLite) Latest(runID string) ([]ValueRecord, error) {
	rows, err := j.db.Query(`
		SELECT v.run_id, v.bar, v.time, v.instrument, v.name, v.value
		FROM indicator_values v
		JOIN (
			SELECT name, MAX(bar) AS bar FROM indicator_values
			WHERE run_id = ? GROUP BY name
		) last ON last.name = v.name AND last.bar = v.bar
		WHERE v.run_id = ?
		ORDER BY v.name ASC`, runID, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValueRecord
	for rows.Next() {
		var v ValueRecord
		if err := rows.Scan(&v.RunID, &v.Bar, &v.Time, &v.Instrument, &v.Name, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
