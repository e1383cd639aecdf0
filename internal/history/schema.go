package history

// schemaVersion is the runs schema understood by this build.
const schemaVersion = 1

// schema is the DDL for a fresh history database.
var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at       TEXT NOT NULL,
	runner_version   TEXT NOT NULL,
	model_type       TEXT NOT NULL,
	checkpoint       TEXT NOT NULL,
	output_vcf       TEXT NOT NULL,
	intermediate_dir TEXT NOT NULL,
	num_shards       INTEGER NOT NULL,
	stages_run       INTEGER NOT NULL,
	exit_code        INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL
);
`
