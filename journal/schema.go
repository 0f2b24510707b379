package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	algorithm TEXT NOT NULL,
	dataset TEXT NOT NULL,
	created DATETIME NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	value_count INTEGER NOT NULL,
	entries INTEGER NOT NULL,
	hits INTEGER NOT NULL,
	computes INTEGER NOT NULL,
	config BLOB,
	error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS indicator_values (
	run_id TEXT NOT NULL,
	bar INTEGER NOT NULL,
	time DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	name TEXT NOT NULL,
	value REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_values_run ON indicator_values(run_id, name, bar);
`
