// Package errors provides the structured error type used across the codememory engine.
//
// Every error raised above the lowest-level I/O call is tagged with one of five kinds
// (validation, storage, indexing, git, embedding) so that callers can apply the propagation
// policy without inspecting message text.
package errors

// Kind classifies an Error into one of the engine's five error taxonomies.
type Kind string

const (
	// KindValidation marks malformed or missing caller input. Never logged as a fault.
	KindValidation Kind = "validation"
	// KindStorage marks an underlying database or extension failure.
	KindStorage Kind = "storage"
	// KindIndexing marks a file read, grammar, or embedding failure scoped to one file.
	KindIndexing Kind = "indexing"
	// KindGit marks an absent/inaccessible repository or unresolvable revision.
	KindGit Kind = "git"
	// KindEmbedding marks a model load or dimension-mismatch failure.
	KindEmbedding Kind = "embedding"
)

// Stable, documented codes. New codes should be appended, never renumbered.
const (
	CodeInvalidQuery       = "ERR_VALIDATION_QUERY"
	CodeInvalidTopK        = "ERR_VALIDATION_TOP_K"
	CodeInvalidLineRange   = "ERR_VALIDATION_LINE_RANGE"
	CodeInvalidDirectory   = "ERR_VALIDATION_DIRECTORY"
	CodeInvalidSearchType  = "ERR_VALIDATION_SEARCH_TYPE"
	CodeInvalidCommitHash  = "ERR_VALIDATION_COMMIT_HASH"
	CodeInvalidPath        = "ERR_VALIDATION_PATH"
	CodeStorageOpen        = "ERR_STORAGE_OPEN"
	CodeStorageWrite       = "ERR_STORAGE_WRITE"
	CodeStorageQuery       = "ERR_STORAGE_QUERY"
	CodeStorageReset       = "ERR_STORAGE_RESET"
	CodeIndexParse         = "ERR_INDEXING_PARSE"
	CodeIndexPersist       = "ERR_INDEXING_PERSIST"
	CodeGitNoRepository    = "ERR_GIT_NO_REPOSITORY"
	CodeGitRevision        = "ERR_GIT_REVISION"
	CodeGitOperation       = "ERR_GIT_OPERATION"
	CodeEmbeddingLoad      = "ERR_EMBEDDING_LOAD"
	CodeEmbeddingDimension = "ERR_EMBEDDING_DIMENSION"
)
