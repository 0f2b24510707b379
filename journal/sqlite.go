package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema %s: %w", path, err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordValue(v ValueRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO indicator_values
		(run_id, bar, time, instrument, name, value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		v.RunID, v.Bar, v.Time, v.Instrument, v.Name, v.Value,
	)
	return err
}

// RecordRun inserts r, replacing an earlier record of the same run.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, name, algorithm, dataset, created, start_time, end_time,
		 bars, value_count, entries, hits, computes, config, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.Algorithm, r.Dataset, r.Created, r.Start, r.End,
		r.Bars, r.Values, r.Entries, r.Hits, r.Computes, r.Config, r.Error,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
