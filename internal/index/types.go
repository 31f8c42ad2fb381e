// Package index drives an end-to-end incremental index of a directory tree: a bounded-parallel
// parse phase, a sequential batch embed phase, and a sequential per-file persist phase.
package index

import "time"

// DefaultWorkers is the parse-phase worker pool size used when Options.Workers is unset.
const DefaultWorkers = 4

// DefaultEmbedBatchSize is the number of embedding texts sent to the embedder per call.
const DefaultEmbedBatchSize = 64

// ProgressFunc reports orchestrator progress. It is invoked at least once per file in the parse
// phase, once per phase boundary, and once at completion.
type ProgressFunc func(current, total int, message string)

// Options configures one indexing run.
type Options struct {
	// RootDir is the project root directory to index.
	RootDir string

	// Workers bounds the parse-phase worker pool (default DefaultWorkers).
	Workers int

	// EmbedBatchSize bounds how many texts are embedded per call (default DefaultEmbedBatchSize).
	EmbedBatchSize int

	// IncludePatterns and ExcludePatterns are forwarded to the directory scanner.
	IncludePatterns []string
	ExcludePatterns []string

	// Progress, if set, receives progress callbacks.
	Progress ProgressFunc
}

// FileOutcome records the per-file result of one indexing run.
type FileOutcome struct {
	Path    string
	Skipped bool
	Err     error
}

// Result summarizes one indexing run.
type Result struct {
	FilesScanned    int
	FilesIndexed    int
	FilesSkipped    int
	DocFilesIndexed int
	SymbolCount     int
	DocChunkCount   int
	Outcomes        []FileOutcome
	Duration        time.Duration
}

func (r *Result) hasErrors() bool {
	for _, o := range r.Outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}
