package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no CGO

	codeerr "github.com/kapillamba4/codememory/internal/errors"
)

// DatabaseFileName is the name of the single SQLite file a project's index lives in.
const DatabaseFileName = "code_memory.db"

const (
	metadataKeyModel = "embedding_model"
	metadataKeyDim   = "embedding_dim"
)

// Store is the single-writer, process-local persistence layer for one project's index. It wraps
// one SQLite database, an advisory cross-process file lock, and two in-memory vector indices (one
// for symbols, one for documentation chunks) rebuilt from the database at Open.
type Store struct {
	db   *sql.DB
	dir  string
	lock *processLock

	vecSymbols *vectorIndex
	vecDocs    *vectorIndex

	model string
	dim   int
}

// Open creates or opens the database at dir/code_memory.db, ensures schema and triggers, acquires
// the cross-process write lock, and reconciles the embedding model identity. If the store already
// has data for a different model or dimension, all derived rows (symbols, references, doc chunks,
// embeddings, files) are purged and the embedding tables recreated at the new dimension.
func Open(ctx context.Context, dir, model string, dim int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "create index directory").WithDetail("dir", dir).WithDetail("cause", err.Error())
	}

	lock := newProcessLock(dir)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "acquire process lock").WithDetail("cause", err.Error())
	}
	if !ok {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "index is already open by another process").WithDetail("dir", dir)
	}

	path := filepath.Join(dir, DatabaseFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "open database").WithDetail("cause", err.Error())
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "set pragma").WithDetail("pragma", p).WithDetail("cause", err.Error())
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "create schema").WithDetail("cause", err.Error())
	}

	s := &Store{db: db, dir: dir, lock: lock, model: model, dim: dim, vecSymbols: newVectorIndex(), vecDocs: newVectorIndex()}

	if err := s.ensureMetadata(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	if err := s.rebuildVectorIndices(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return s, nil
}

// ensureMetadata reads the stored embedding identity; on first open it writes the configured
// model/dimension and creates the embedding tables. On a mismatch it purges every derived row and
// recreates the embedding tables at the new dimension (the reset described in the contract).
func (s *Store) ensureMetadata(ctx context.Context) error {
	storedModel, hasModel, err := s.getMetadata(ctx, metadataKeyModel)
	if err != nil {
		return err
	}
	storedDimStr, hasDim, err := s.getMetadata(ctx, metadataKeyDim)
	if err != nil {
		return err
	}

	changed := !hasModel || !hasDim || storedModel != s.model || storedDimStr != fmt.Sprintf("%d", s.dim)

	if !changed {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "begin reset transaction").WithDetail("cause", err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	if hasModel {
		if _, err := tx.ExecContext(ctx, dropEmbeddingTablesSQL); err != nil {
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "drop embedding tables").WithDetail("cause", err.Error())
		}
		if _, err := tx.ExecContext(ctx, purgeAllDataSQL); err != nil {
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "purge stale index").WithDetail("cause", err.Error())
		}
	}

	if _, err := tx.ExecContext(ctx, embeddingTablesSQL(s.dim)); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "create embedding tables").WithDetail("cause", err.Error())
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metadataKeyModel, s.model); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "write model metadata").WithDetail("cause", err.Error())
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metadataKeyDim, fmt.Sprintf("%d", s.dim)); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "write dimension metadata").WithDetail("cause", err.Error())
	}

	return tx.Commit()
}

func (s *Store) getMetadata(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "read metadata").WithDetail("key", key).WithDetail("cause", err.Error())
	}
	return value, true, nil
}

// rebuildVectorIndices repopulates both in-memory HNSW graphs from the authoritative blob rows.
func (s *Store) rebuildVectorIndices(ctx context.Context) error {
	if err := s.rebuildOne(ctx, s.vecSymbols, `SELECT symbol_id, embedding FROM symbol_embeddings`); err != nil {
		return err
	}
	return s.rebuildOne(ctx, s.vecDocs, `SELECT chunk_id, embedding FROM doc_embeddings`)
}

func (s *Store) rebuildOne(ctx context.Context, idx *vectorIndex, query string) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "rebuild vector index").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageOpen, "scan embedding row").WithDetail("cause", err.Error())
		}
		idx.upsert(id, decodeVector(blob))
	}
	return rows.Err()
}

// Close releases the database handle and the cross-process lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lock.Unlock()
	if dbErr != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "close database").WithDetail("cause", dbErr.Error())
	}
	return lockErr
}

// Transaction runs fn inside a write transaction, rolling back on any error from fn itself or
// from commit.
func (s *Store) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "begin transaction").WithDetail("cause", err.Error())
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "commit transaction").WithDetail("cause", err.Error())
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx, letting every upsert run standalone or as part
// of a caller-managed transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) exec() execer { return s.db }

// UpsertFile inserts or updates a file record by path and returns its id.
func (s *Store) UpsertFile(ctx context.Context, q execer, path string, lastModified time.Time, fileHash string) (int64, error) {
	if q == nil {
		q = s.exec()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO files (path, last_modified, file_hash) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET last_modified = excluded.last_modified, file_hash = excluded.file_hash`,
		path, float64(lastModified.UnixNano())/1e9, fileHash)
	if err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "upsert file").WithDetail("path", path).WithDetail("cause", err.Error())
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "read file id").WithDetail("path", path).WithDetail("cause", err.Error())
	}
	return id, nil
}

// DeleteFileData removes every symbol-embedding, symbol, and reference owned by fileID, in that
// order, so re-indexing the same file is idempotent.
func (s *Store) DeleteFileData(ctx context.Context, q execer, fileID int64) error {
	if q == nil {
		q = s.exec()
	}
	rows, err := q.QueryContext(ctx, `SELECT id FROM symbols WHERE file_id = ?`, fileID)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "list symbols").WithDetail("cause", err.Error())
	}
	var symIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "scan symbol id").WithDetail("cause", err.Error())
		}
		symIDs = append(symIDs, id)
	}
	rows.Close()

	for _, id := range symIDs {
		if _, err := q.ExecContext(ctx, `DELETE FROM symbol_embeddings WHERE symbol_id = ?`, id); err != nil {
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete symbol embedding").WithDetail("cause", err.Error())
		}
		s.vecSymbols.delete(id)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete symbols").WithDetail("cause", err.Error())
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM references_ WHERE file_id = ?`, fileID); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete references").WithDetail("cause", err.Error())
	}
	return nil
}

// UpsertSymbol inserts or updates a symbol identified by (file_id, name, kind, line_start) and
// returns its id.
func (s *Store) UpsertSymbol(ctx context.Context, q execer, sym Symbol) (int64, error) {
	if q == nil {
		q = s.exec()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO symbols (name, kind, file_id, line_start, line_end, parent_symbol_id, source_text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, name, kind, line_start) DO UPDATE SET
			line_end = excluded.line_end, parent_symbol_id = excluded.parent_symbol_id, source_text = excluded.source_text`,
		sym.Name, string(sym.Kind), sym.FileID, sym.LineStart, sym.LineEnd, sym.ParentSymbolID, sym.SourceText)
	if err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "upsert symbol").WithDetail("name", sym.Name).WithDetail("cause", err.Error())
	}
	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM symbols WHERE file_id = ? AND name = ? AND kind = ? AND line_start = ?`,
		sym.FileID, sym.Name, string(sym.Kind), sym.LineStart).Scan(&id); err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "read symbol id").WithDetail("cause", err.Error())
	}
	return id, nil
}

// UpsertReference inserts a reference, ignoring the insert if the exact triple already exists.
func (s *Store) UpsertReference(ctx context.Context, q execer, ref Reference) error {
	if q == nil {
		q = s.exec()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO references_ (symbol_name, file_id, line_number) VALUES (?, ?, ?)
		ON CONFLICT(symbol_name, file_id, line_number) DO NOTHING`,
		ref.SymbolName, ref.FileID, ref.LineNumber)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "upsert reference").WithDetail("cause", err.Error())
	}
	return nil
}

// UpsertDocFile inserts or updates a documentation file record and returns its id.
func (s *Store) UpsertDocFile(ctx context.Context, q execer, path string, lastModified time.Time, fileHash string, docType DocType) (int64, error) {
	if q == nil {
		q = s.exec()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO doc_files (path, last_modified, file_hash, doc_type) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET last_modified = excluded.last_modified, file_hash = excluded.file_hash, doc_type = excluded.doc_type`,
		path, float64(lastModified.UnixNano())/1e9, fileHash, string(docType))
	if err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "upsert doc file").WithDetail("path", path).WithDetail("cause", err.Error())
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM doc_files WHERE path = ?`, path).Scan(&id); err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "read doc file id").WithDetail("cause", err.Error())
	}
	return id, nil
}

// DeleteDocFileData removes every chunk and doc-embedding owned by docFileID.
func (s *Store) DeleteDocFileData(ctx context.Context, q execer, docFileID int64) error {
	if q == nil {
		q = s.exec()
	}
	rows, err := q.QueryContext(ctx, `SELECT id FROM doc_chunks WHERE doc_file_id = ?`, docFileID)
	if err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "list doc chunks").WithDetail("cause", err.Error())
	}
	var chunkIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "scan doc chunk id").WithDetail("cause", err.Error())
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	for _, id := range chunkIDs {
		if _, err := q.ExecContext(ctx, `DELETE FROM doc_embeddings WHERE chunk_id = ?`, id); err != nil {
			return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete doc embedding").WithDetail("cause", err.Error())
		}
		s.vecDocs.delete(id)
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM doc_chunks WHERE doc_file_id = ?`, docFileID); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete doc chunks").WithDetail("cause", err.Error())
	}
	return nil
}

// UpsertDocChunk inserts or updates a chunk identified by (doc_file_id, chunk_index) and returns
// its id.
func (s *Store) UpsertDocChunk(ctx context.Context, q execer, chunk DocChunk) (int64, error) {
	if q == nil {
		q = s.exec()
	}
	var sectionTitle any
	if chunk.SectionTitle != "" {
		sectionTitle = chunk.SectionTitle
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO doc_chunks (doc_file_id, chunk_index, section_title, content, line_start, line_end)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_file_id, chunk_index) DO UPDATE SET
			section_title = excluded.section_title, content = excluded.content,
			line_start = excluded.line_start, line_end = excluded.line_end`,
		chunk.DocFileID, chunk.ChunkIndex, sectionTitle, chunk.Content, chunk.LineStart, chunk.LineEnd)
	if err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "upsert doc chunk").WithDetail("cause", err.Error())
	}
	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM doc_chunks WHERE doc_file_id = ? AND chunk_index = ?`,
		chunk.DocFileID, chunk.ChunkIndex).Scan(&id); err != nil {
		return 0, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "read doc chunk id").WithDetail("cause", err.Error())
	}
	return id, nil
}

// UpsertEmbedding replaces a symbol's dense vector, in the database and in the in-memory index.
func (s *Store) UpsertEmbedding(ctx context.Context, q execer, symbolID int64, vec []float32) error {
	if q == nil {
		q = s.exec()
	}
	if len(vec) != s.dim {
		return codeerr.New(codeerr.KindEmbedding, codeerr.CodeEmbeddingDimension, "vector dimension does not match index dimension").
			WithDetail("expected", s.dim).WithDetail("got", len(vec))
	}
	blob := encodeVector(vec)
	if _, err := q.ExecContext(ctx, `DELETE FROM symbol_embeddings WHERE symbol_id = ?`, symbolID); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete old symbol embedding").WithDetail("cause", err.Error())
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO symbol_embeddings (symbol_id, embedding) VALUES (?, ?)`, symbolID, blob); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "insert symbol embedding").WithDetail("cause", err.Error())
	}
	s.vecSymbols.upsert(symbolID, vec)
	return nil
}

// UpsertDocEmbedding replaces a doc chunk's dense vector, in the database and in the in-memory
// index.
func (s *Store) UpsertDocEmbedding(ctx context.Context, q execer, chunkID int64, vec []float32) error {
	if q == nil {
		q = s.exec()
	}
	if len(vec) != s.dim {
		return codeerr.New(codeerr.KindEmbedding, codeerr.CodeEmbeddingDimension, "vector dimension does not match index dimension").
			WithDetail("expected", s.dim).WithDetail("got", len(vec))
	}
	blob := encodeVector(vec)
	if _, err := q.ExecContext(ctx, `DELETE FROM doc_embeddings WHERE chunk_id = ?`, chunkID); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "delete old doc embedding").WithDetail("cause", err.Error())
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO doc_embeddings (chunk_id, embedding) VALUES (?, ?)`, chunkID, blob); err != nil {
		return codeerr.New(codeerr.KindStorage, codeerr.CodeStorageWrite, "insert doc embedding").WithDetail("cause", err.Error())
	}
	s.vecDocs.upsert(chunkID, vec)
	return nil
}

// BM25Search runs a lexical match against either "symbols" or "doc_chunks" and returns rows
// ordered by ascending BM25 score (lower is better). An unparseable query yields an empty result
// rather than an error.
func (s *Store) BM25Search(ctx context.Context, table, query string, limit int) ([]BM25Row, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	var ftsTable string
	switch table {
	case "symbols":
		ftsTable = "symbols_fts"
	case "doc_chunks":
		ftsTable = "doc_chunks_fts"
	default:
		return nil, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidQuery, "unknown search table").WithDetail("table", table)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT rowid, bm25(%s) AS score FROM %s WHERE %s MATCH ?
		ORDER BY score LIMIT ?`, ftsTable, ftsTable, ftsTable)

	rows, err := s.db.QueryContext(ctx, sqlQuery, sanitizeMatchQuery(query), limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return nil, nil
		}
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "lexical search failed").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	var results []BM25Row
	for rows.Next() {
		var r BM25Row
		if err := rows.Scan(&r.ID, &r.Score); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan lexical result").WithDetail("cause", err.Error())
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// sanitizeMatchQuery quotes each term so FTS5 query-syntax characters in the raw search string
// (hyphens, colons, asterisks) can't be misread as match operators.
func sanitizeMatchQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}

// Snippet returns an FTS5 highlighted excerpt of the text column for table's row id, matched
// against query. It returns ("", nil) if id didn't match query (e.g. it was a vector-only hit).
func (s *Store) Snippet(ctx context.Context, table, query string, id int64) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	var ftsTable string
	var col int
	switch table {
	case "symbols":
		ftsTable, col = "symbols_fts", 1 // source_text
	case "doc_chunks":
		ftsTable, col = "doc_chunks_fts", 0 // content
	default:
		return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidQuery, "unknown search table").WithDetail("table", table)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT snippet(%s, %d, '**', '**', '...', 20)
		FROM %s WHERE %s MATCH ? AND rowid = ?`, ftsTable, col, ftsTable, ftsTable)

	var snippet string
	err := s.db.QueryRowContext(ctx, sqlQuery, sanitizeMatchQuery(query), id).Scan(&snippet)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return "", nil
		}
		return "", codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "snippet failed").WithDetail("cause", err.Error())
	}
	return snippet, nil
}

// VectorSearch runs a k-nearest-neighbor search against the in-memory index for "symbols" or
// "doc_chunks", returning rows ordered by ascending distance.
func (s *Store) VectorSearch(table string, queryVec []float32, k int) ([]VectorRow, error) {
	var idx *vectorIndex
	switch table {
	case "symbols":
		idx = s.vecSymbols
	case "doc_chunks":
		idx = s.vecDocs
	default:
		return nil, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidQuery, "unknown search table").WithDetail("table", table)
	}
	results := idx.search(queryVec, k)
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	return results, nil
}

// GetFileByPath returns the file record for path, or nil if not tracked.
func (s *Store) GetFileByPath(ctx context.Context, path string) (*File, error) {
	var f File
	var lastModified float64
	err := s.db.QueryRowContext(ctx, `SELECT id, path, last_modified, file_hash FROM files WHERE path = ?`, path).
		Scan(&f.ID, &f.Path, &lastModified, &f.FileHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read file").WithDetail("cause", err.Error())
	}
	f.LastModified = time.Unix(0, int64(lastModified*1e9))
	return &f, nil
}

// GetDocFileByPath returns the doc file record for path, or nil if not tracked.
func (s *Store) GetDocFileByPath(ctx context.Context, path string) (*DocFile, error) {
	var f DocFile
	var lastModified float64
	var docType string
	err := s.db.QueryRowContext(ctx, `SELECT id, path, last_modified, file_hash, doc_type FROM doc_files WHERE path = ?`, path).
		Scan(&f.ID, &f.Path, &lastModified, &f.FileHash, &docType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read doc file").WithDetail("cause", err.Error())
	}
	f.LastModified = time.Unix(0, int64(lastModified*1e9))
	f.DocType = DocType(docType)
	return &f, nil
}

// GetSymbol returns a symbol by id, or nil if it doesn't exist.
func (s *Store) GetSymbol(ctx context.Context, id int64) (*Symbol, error) {
	return s.scanSymbol(s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, file_id, line_start, line_end, parent_symbol_id, source_text FROM symbols WHERE id = ?`, id))
}

func (s *Store) scanSymbol(row *sql.Row) (*Symbol, error) {
	var sym Symbol
	var kind string
	var parent sql.NullInt64
	if err := row.Scan(&sym.ID, &sym.Name, &kind, &sym.FileID, &sym.LineStart, &sym.LineEnd, &parent, &sym.SourceText); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read symbol").WithDetail("cause", err.Error())
	}
	sym.Kind = SymbolKind(kind)
	if parent.Valid {
		sym.ParentSymbolID = &parent.Int64
	}
	return &sym, nil
}

// ListSymbolsByFile returns every symbol owned by fileID ordered by start line.
func (s *Store) ListSymbolsByFile(ctx context.Context, fileID int64) ([]*Symbol, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file_id, line_start, line_end, parent_symbol_id, source_text
		 FROM symbols WHERE file_id = ? ORDER BY line_start`, fileID)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "list symbols").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		var sym Symbol
		var kind string
		var parent sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.Name, &kind, &sym.FileID, &sym.LineStart, &sym.LineEnd, &parent, &sym.SourceText); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan symbol").WithDetail("cause", err.Error())
		}
		sym.Kind = SymbolKind(kind)
		if parent.Valid {
			sym.ParentSymbolID = &parent.Int64
		}
		out = append(out, &sym)
	}
	return out, rows.Err()
}

// FindSymbolsByName returns every symbol whose name exactly matches name.
func (s *Store) FindSymbolsByName(ctx context.Context, name string) ([]*Symbol, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, file_id, line_start, line_end, parent_symbol_id, source_text
		 FROM symbols WHERE name = ?`, name)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "find symbols by name").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		var sym Symbol
		var kind string
		var parent sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.Name, &kind, &sym.FileID, &sym.LineStart, &sym.LineEnd, &parent, &sym.SourceText); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan symbol").WithDetail("cause", err.Error())
		}
		sym.Kind = SymbolKind(kind)
		if parent.Valid {
			sym.ParentSymbolID = &parent.Int64
		}
		out = append(out, &sym)
	}
	return out, rows.Err()
}

// FindReferencesByName returns every reference to symbolName.
func (s *Store) FindReferencesByName(ctx context.Context, symbolName string) ([]*Reference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol_name, file_id, line_number FROM references_ WHERE symbol_name = ? ORDER BY file_id, line_number`, symbolName)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "find references").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	var out []*Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.ID, &r.SymbolName, &r.FileID, &r.LineNumber); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan reference").WithDetail("cause", err.Error())
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// GetFileByID returns a file by its primary key, or nil if it doesn't exist.
func (s *Store) GetFileByID(ctx context.Context, id int64) (*File, error) {
	var f File
	var lastModified float64
	err := s.db.QueryRowContext(ctx, `SELECT id, path, last_modified, file_hash FROM files WHERE id = ?`, id).
		Scan(&f.ID, &f.Path, &lastModified, &f.FileHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read file by id").WithDetail("cause", err.Error())
	}
	f.LastModified = time.Unix(0, int64(lastModified*1e9))
	return &f, nil
}

// GetDocChunk returns a doc chunk by id, or nil if it doesn't exist.
func (s *Store) GetDocChunk(ctx context.Context, id int64) (*DocChunk, error) {
	var c DocChunk
	var sectionTitle sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_file_id, chunk_index, section_title, content, line_start, line_end FROM doc_chunks WHERE id = ?`, id).
		Scan(&c.ID, &c.DocFileID, &c.ChunkIndex, &sectionTitle, &c.Content, &c.LineStart, &c.LineEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read doc chunk").WithDetail("cause", err.Error())
	}
	c.SectionTitle = sectionTitle.String
	return &c, nil
}

// ListDocChunksByFile returns every chunk owned by docFileID, ordered by chunk index.
func (s *Store) ListDocChunksByFile(ctx context.Context, docFileID int64) ([]*DocChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_file_id, chunk_index, section_title, content, line_start, line_end
		 FROM doc_chunks WHERE doc_file_id = ? ORDER BY chunk_index`, docFileID)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "list doc chunks").WithDetail("cause", err.Error())
	}
	defer rows.Close()

	var out []*DocChunk
	for rows.Next() {
		var c DocChunk
		var sectionTitle sql.NullString
		if err := rows.Scan(&c.ID, &c.DocFileID, &c.ChunkIndex, &sectionTitle, &c.Content, &c.LineStart, &c.LineEnd); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan doc chunk").WithDetail("cause", err.Error())
		}
		c.SectionTitle = sectionTitle.String
		out = append(out, &c)
	}
	return out, rows.Err()
}

// GetDocChunkByIndex returns the chunk at docFileID's chunk_index, or nil if none exists.
func (s *Store) GetDocChunkByIndex(ctx context.Context, docFileID int64, index int) (*DocChunk, error) {
	var c DocChunk
	var sectionTitle sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, doc_file_id, chunk_index, section_title, content, line_start, line_end
		 FROM doc_chunks WHERE doc_file_id = ? AND chunk_index = ?`, docFileID, index).
		Scan(&c.ID, &c.DocFileID, &c.ChunkIndex, &sectionTitle, &c.Content, &c.LineStart, &c.LineEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read doc chunk by index").WithDetail("cause", err.Error())
	}
	c.SectionTitle = sectionTitle.String
	return &c, nil
}

// GetDocFileByID returns a doc file by its primary key, or nil if it doesn't exist.
func (s *Store) GetDocFileByID(ctx context.Context, id int64) (*DocFile, error) {
	var f DocFile
	var lastModified float64
	var docType string
	err := s.db.QueryRowContext(ctx, `SELECT id, path, last_modified, file_hash, doc_type FROM doc_files WHERE id = ?`, id).
		Scan(&f.ID, &f.Path, &lastModified, &f.FileHash, &docType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "read doc file by id").WithDetail("cause", err.Error())
	}
	f.LastModified = time.Unix(0, int64(lastModified*1e9))
	f.DocType = DocType(docType)
	return &f, nil
}

// Stats computes the full get_index_stats snapshot described in the store's expanded contract.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats

	counts := []struct {
		table string
		dest  *int
	}{
		{"files", &st.FileCount},
		{"symbols", &st.SymbolCount},
		{"references_", &st.ReferenceCount},
		{"doc_files", &st.DocFileCount},
		{"doc_chunks", &st.DocChunkCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)).Scan(c.dest); err != nil {
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "count rows").WithDetail("table", c.table).WithDetail("cause", err.Error())
		}
	}

	kindRows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM symbols GROUP BY kind ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "symbol kind histogram").WithDetail("cause", err.Error())
	}
	for kindRows.Next() {
		var kc SymbolKindCount
		if err := kindRows.Scan(&kc.Kind, &kc.Count); err != nil {
			kindRows.Close()
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan symbol kind").WithDetail("cause", err.Error())
		}
		st.SymbolKinds = append(st.SymbolKinds, kc)
	}
	kindRows.Close()

	extRows, err := s.db.QueryContext(ctx, `
		SELECT substr(path, instr(path, '.')) AS ext, COUNT(*) AS cnt
		FROM files WHERE path LIKE '%.%' GROUP BY ext ORDER BY cnt DESC LIMIT 10`)
	if err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "extension histogram").WithDetail("cause", err.Error())
	}
	for extRows.Next() {
		var ec ExtensionCount
		if err := extRows.Scan(&ec.Extension, &ec.Count); err != nil {
			extRows.Close()
			return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "scan extension").WithDetail("cause", err.Error())
		}
		st.TopExtensions = append(st.TopExtensions, ec)
	}
	extRows.Close()

	var lastFile, lastDoc sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(last_modified) FROM files`).Scan(&lastFile); err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "max file timestamp").WithDetail("cause", err.Error())
	}
	if lastFile.Valid {
		t := time.Unix(0, int64(lastFile.Float64*1e9))
		st.LastFileIndexed = &t
	}
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(last_modified) FROM doc_files`).Scan(&lastDoc); err != nil {
		return nil, codeerr.New(codeerr.KindStorage, codeerr.CodeStorageQuery, "max doc timestamp").WithDetail("cause", err.Error())
	}
	if lastDoc.Valid {
		t := time.Unix(0, int64(lastDoc.Float64*1e9))
		st.LastDocFileIndexed = &t
	}

	st.EmbeddingModel = s.model
	st.EmbeddingDimension = s.dim

	dbPath := filepath.Join(s.dir, DatabaseFileName)
	if info, err := os.Stat(dbPath); err == nil {
		st.DatabaseSizeBytes = info.Size()
	}
	if info, err := os.Stat(dbPath + "-wal"); err == nil {
		st.WALPresent = true
		st.WALSizeBytes = info.Size()
	}

	var journalMode string
	if err := s.db.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&journalMode); err == nil {
		st.JournalMode = journalMode
	}

	return &st, nil
}

// encodeVector serializes a float32 vector to a little-endian byte blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector deserializes a little-endian byte blob into a float32 vector.
func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
