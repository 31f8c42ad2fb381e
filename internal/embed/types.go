// Package embed turns text into fixed-width dense vectors for semantic search.
package embed

import (
	"context"
	"math"
)

// Batch-size bounds shared by every backend.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256
	DefaultBatchSize = 64
)

// StaticDimensions is the vector width produced by the built-in deterministic backend.
const StaticDimensions = 256

// DefaultTaskType is the task type used to embed both indexed content and search queries, so
// code and query vectors share the same embedding space.
const DefaultTaskType = "nl2code"

// Embedder turns text into dense, L2-normalized vectors of a fixed dimension.
//
// TaskType is a short string ("nl2code", "code2nl", ...) prepended to the input before
// encoding, selecting the model's embedding head where the backend supports it.
type Embedder interface {
	// Dimension returns the vector width produced by this embedder.
	Dimension() int

	// ModelName returns the opaque model identifier recorded in index metadata.
	ModelName() string

	// EncodeOne embeds a single text under the given task type.
	EncodeOne(ctx context.Context, text, taskType string) ([]float32, error)

	// EncodeBatch embeds texts under the given task type, preserving input order. This is the
	// only path used by bulk indexing.
	EncodeBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)

	// Warmup loads any backing model and runs one encode to amortize cold-start latency.
	Warmup(ctx context.Context) error

	// Close releases any resources held by the embedder.
	Close() error
}

// WithTaskType prepends the task-type prefix convention used by every backend.
func WithTaskType(taskType, text string) string {
	if taskType == "" {
		return text
	}
	return taskType + ": " + text
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
