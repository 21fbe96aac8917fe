package store

// schemaVersionV1 is the first persisted layout.
const schemaVersionV1 = 1

// schemaV1 keeps the immutable outcome tree (builds, cases) apart from the
// mutable quarantine annotations (records).
var schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS builds (
	number     INTEGER PRIMARY KEY,
	started_at TEXT NOT NULL,
	verdict    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cases (
	build       INTEGER NOT NULL REFERENCES builds(number) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	suite       TEXT NOT NULL,
	name        TEXT NOT NULL,
	full_name   TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	output      TEXT,
	PRIMARY KEY (build, full_name)
);
CREATE INDEX IF NOT EXISTS idx_cases_full_name ON cases(full_name, build);

CREATE TABLE IF NOT EXISTS records (
	build          INTEGER NOT NULL,
	full_name      TEXT NOT NULL,
	quarantined    INTEGER NOT NULL DEFAULT 0,
	quarantined_by TEXT,
	reason         TEXT,
	changed_at     TEXT,
	PRIMARY KEY (build, full_name),
	FOREIGN KEY (build, full_name) REFERENCES cases(build, full_name) ON DELETE CASCADE
);
`
