// Package store provides durable, single-writer, process-local storage for a project's indexed
// code and documentation, backed by a single SQLite database with three coexisting access modes:
// relational tables, an FTS5 lexical index, and an in-memory vector index rebuilt from blob rows.
package store

import "time"

// SymbolKind classifies an extracted code symbol.
type SymbolKind string

const (
	SymbolKindFunction SymbolKind = "function"
	SymbolKindMethod   SymbolKind = "method"
	SymbolKindClass    SymbolKind = "class"
	SymbolKindVariable SymbolKind = "variable"
	SymbolKindFile     SymbolKind = "file"
)

// DocType classifies a tracked documentation file.
type DocType string

const (
	DocTypeMarkdown  DocType = "markdown"
	DocTypeReadme    DocType = "readme"
	DocTypeDocstring DocType = "docstring"
)

// File is a tracked source file, keyed by its path relative to the project root.
type File struct {
	ID           int64
	Path         string
	LastModified time.Time
	FileHash     string // 64-bit non-cryptographic fingerprint, hex-encoded
}

// Symbol is a parsed code symbol owned by a file, optionally nested under a parent symbol.
type Symbol struct {
	ID             int64
	Name           string
	Kind           SymbolKind
	FileID         int64
	LineStart      int
	LineEnd        int
	ParentSymbolID *int64
	SourceText     string
}

// Reference is a heuristic, unresolved occurrence of an identifier.
type Reference struct {
	ID         int64
	SymbolName string
	FileID     int64
	LineNumber int
}

// DocFile is a tracked documentation file.
type DocFile struct {
	ID           int64
	Path         string
	LastModified time.Time
	FileHash     string
	DocType      DocType
}

// DocChunk is a sequentially-indexed slice of a documentation file's content.
type DocChunk struct {
	ID           int64
	DocFileID    int64
	ChunkIndex   int
	SectionTitle string
	Content      string
	LineStart    int
	LineEnd      int
}

// BM25Row is a single lexical search hit. Score follows SQLite FTS5 convention: lower is better.
type BM25Row struct {
	ID    int64
	Score float64
}

// VectorRow is a single nearest-neighbor hit, ordered by ascending distance.
type VectorRow struct {
	ID       int64
	Distance float32
}

// SymbolKindCount pairs a symbol kind with its occurrence count, for the stats histogram.
type SymbolKindCount struct {
	Kind  string
	Count int
}

// ExtensionCount pairs a file extension with its occurrence count, for the stats histogram.
type ExtensionCount struct {
	Extension string
	Count     int
}

// Stats summarizes the current state of the index, grounding get_index_stats.
type Stats struct {
	FileCount      int
	SymbolCount    int
	ReferenceCount int
	DocFileCount   int
	DocChunkCount  int

	SymbolKinds   []SymbolKindCount
	TopExtensions []ExtensionCount

	LastFileIndexed    *time.Time
	LastDocFileIndexed *time.Time

	EmbeddingModel     string
	EmbeddingDimension int

	DatabaseSizeBytes int64
	JournalMode       string
	WALPresent        bool
	WALSizeBytes      int64
}
