package store

import "fmt"

// schemaSQL creates every relational table, the two FTS5 lexical indices, and the triggers that
// keep each FTS5 table synchronized with its source table. It does not create the embedding
// tables; those are sized by the configured dimension and created separately by ensureMetadata.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS index_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY,
	path          TEXT UNIQUE NOT NULL,
	last_modified REAL NOT NULL,
	file_hash     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
	id               INTEGER PRIMARY KEY,
	name             TEXT NOT NULL,
	kind             TEXT NOT NULL,
	file_id          INTEGER NOT NULL REFERENCES files(id),
	line_start       INTEGER NOT NULL,
	line_end         INTEGER NOT NULL,
	parent_symbol_id INTEGER,
	source_text      TEXT NOT NULL,
	UNIQUE(file_id, name, kind, line_start)
);

CREATE INDEX IF NOT EXISTS idx_symbols_file_id ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	name,
	source_text,
	content=symbols,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
	INSERT INTO symbols_fts(rowid, name, source_text) VALUES (new.id, new.name, new.source_text);
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, source_text)
	VALUES ('delete', old.id, old.name, old.source_text);
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, source_text)
	VALUES ('delete', old.id, old.name, old.source_text);
	INSERT INTO symbols_fts(rowid, name, source_text) VALUES (new.id, new.name, new.source_text);
END;

CREATE TABLE IF NOT EXISTS references_ (
	id          INTEGER PRIMARY KEY,
	symbol_name TEXT NOT NULL,
	file_id     INTEGER NOT NULL REFERENCES files(id),
	line_number INTEGER NOT NULL,
	UNIQUE(symbol_name, file_id, line_number)
);

CREATE INDEX IF NOT EXISTS idx_references_symbol_name ON references_(symbol_name);

CREATE TABLE IF NOT EXISTS doc_files (
	id            INTEGER PRIMARY KEY,
	path          TEXT UNIQUE NOT NULL,
	last_modified REAL NOT NULL,
	file_hash     TEXT NOT NULL,
	doc_type      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS doc_chunks (
	id            INTEGER PRIMARY KEY,
	doc_file_id   INTEGER NOT NULL REFERENCES doc_files(id),
	chunk_index   INTEGER NOT NULL,
	section_title TEXT,
	content       TEXT NOT NULL,
	line_start    INTEGER NOT NULL,
	line_end      INTEGER NOT NULL,
	UNIQUE(doc_file_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_doc_chunks_doc_file_id ON doc_chunks(doc_file_id);

CREATE VIRTUAL TABLE IF NOT EXISTS doc_chunks_fts USING fts5(
	content,
	section_title,
	content=doc_chunks,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS doc_chunks_ai AFTER INSERT ON doc_chunks BEGIN
	INSERT INTO doc_chunks_fts(rowid, content, section_title)
	VALUES (new.id, new.content, new.section_title);
END;

CREATE TRIGGER IF NOT EXISTS doc_chunks_ad AFTER DELETE ON doc_chunks BEGIN
	INSERT INTO doc_chunks_fts(doc_chunks_fts, rowid, content, section_title)
	VALUES ('delete', old.id, old.content, old.section_title);
END;

CREATE TRIGGER IF NOT EXISTS doc_chunks_au AFTER UPDATE ON doc_chunks BEGIN
	INSERT INTO doc_chunks_fts(doc_chunks_fts, rowid, content, section_title)
	VALUES ('delete', old.id, old.content, old.section_title);
	INSERT INTO doc_chunks_fts(rowid, content, section_title)
	VALUES (new.id, new.content, new.section_title);
END;
`

// embeddingTablesSQL creates the two blob-backed embedding tables sized for dim float32 lanes
// each. There is no sqlite vector-search extension in the dependency set available to this
// module, so nearest-neighbor search itself is served by the in-memory HNSW graph in vector.go;
// these tables exist purely as the durable, authoritative source it is rebuilt from.
func embeddingTablesSQL(dim int) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS symbol_embeddings (
	symbol_id INTEGER PRIMARY KEY REFERENCES symbols(id),
	embedding BLOB NOT NULL CHECK (length(embedding) = %d)
);

CREATE TABLE IF NOT EXISTS doc_embeddings (
	chunk_id  INTEGER PRIMARY KEY REFERENCES doc_chunks(id),
	embedding BLOB NOT NULL CHECK (length(embedding) = %d)
);
`, dim*4, dim*4)
}

const dropEmbeddingTablesSQL = `
DROP TABLE IF EXISTS symbol_embeddings;
DROP TABLE IF EXISTS doc_embeddings;
`

const purgeAllDataSQL = `
DELETE FROM symbols;
DELETE FROM references_;
DELETE FROM files;
DELETE FROM doc_chunks;
DELETE FROM doc_files;
`
