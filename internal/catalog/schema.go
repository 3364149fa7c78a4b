package catalog

// Schema creates the catalog tables.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	descriptor  TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	summary     TEXT NOT NULL DEFAULT '',
	chunk_count INTEGER NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS queries (
	id            TEXT PRIMARY KEY,
	document_id   TEXT NOT NULL REFERENCES documents(id),
	question      TEXT NOT NULL,
	answer        TEXT NOT NULL,
	justification TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queries_document ON queries(document_id, created_at);

CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`
