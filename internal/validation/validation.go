// Package validation implements the boundary-input contracts of the request surface: every
// check a caller-supplied argument must pass before it reaches the engine.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	codeerr "github.com/kapillamba4/codememory/internal/errors"
)

var commitHashPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Directory validates that path exists and is a directory, returning its absolute form.
func Directory(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", codeerr.Validation(codeerr.CodeInvalidDirectory, "directory path cannot be empty")
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", codeerr.Wrap(codeerr.KindValidation, codeerr.CodeInvalidDirectory, err)
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return "", codeerr.Validation(codeerr.CodeInvalidDirectory, fmt.Sprintf("directory not found: %s", path))
	}
	if !info.IsDir() {
		return "", codeerr.Validation(codeerr.CodeInvalidDirectory, fmt.Sprintf("path is not a directory: %s", path))
	}
	return resolved, nil
}

// File validates that path exists and is a regular file, returning its absolute form.
func File(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", codeerr.Validation(codeerr.CodeInvalidPath, "file path cannot be empty")
	}
	resolved, err := filepath.Abs(path)
	if err != nil {
		return "", codeerr.Wrap(codeerr.KindValidation, codeerr.CodeInvalidPath, err)
	}
	info, statErr := os.Stat(resolved)
	if statErr != nil {
		return "", codeerr.Validation(codeerr.CodeInvalidPath, fmt.Sprintf("file not found: %s", path))
	}
	if info.IsDir() {
		return "", codeerr.Validation(codeerr.CodeInvalidPath, fmt.Sprintf("path is not a file: %s", path))
	}
	return resolved, nil
}

// Query validates and trims a free-text query, enforcing length in [1, 1000].
func Query(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < 1 {
		return "", codeerr.Validation(codeerr.CodeInvalidQuery, "query too short (minimum 1 character)")
	}
	if len(trimmed) > 1000 {
		return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidQuery, "query too long (maximum 1000 characters)").
			WithDetail("length", len(trimmed)).WithDetail("maximum", 1000)
	}
	return trimmed, nil
}

// SearchType validates that searchType is one of allowed.
func SearchType(searchType string, allowed []string) (string, error) {
	if searchType == "" {
		return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidSearchType, "search type is required").
			WithDetail("allowed_values", allowed)
	}
	for _, a := range allowed {
		if a == searchType {
			return searchType, nil
		}
	}
	return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidSearchType,
		fmt.Sprintf("invalid search type: %q", searchType)).
		WithDetail("allowed_values", allowed).WithDetail("provided", searchType)
}

// LineNumber validates an optional 1-indexed line number; nil is always accepted.
func LineNumber(value *int, name string) (*int, error) {
	if value == nil {
		return nil, nil
	}
	if *value < 1 {
		return nil, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidLineRange,
			fmt.Sprintf("%s must be >= 1", name)).WithDetail("provided", *value)
	}
	return value, nil
}

// LineRange validates an optional [start, end] pair: both ≥ 1, and start ≤ end when both given.
func LineRange(lineStart, lineEnd *int) (*int, *int, error) {
	start, err := LineNumber(lineStart, "line_start")
	if err != nil {
		return nil, nil, err
	}
	end, err := LineNumber(lineEnd, "line_end")
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && *start > *end {
		return nil, nil, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidLineRange,
			"line_start cannot be greater than line_end").
			WithDetail("line_start", *start).WithDetail("line_end", *end)
	}
	return start, end, nil
}

// TopK validates a result-count parameter, applying default when value is 0.
func TopK(value, minVal, maxVal, def int) (int, error) {
	if value == 0 {
		return def, nil
	}
	if value < minVal {
		return 0, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidTopK,
			fmt.Sprintf("top_k must be >= %d", minVal)).WithDetail("provided", value)
	}
	if value > maxVal {
		return 0, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidTopK,
			fmt.Sprintf("top_k must be <= %d", maxVal)).WithDetail("provided", value)
	}
	return value, nil
}

// PathInDirectory validates that path, once resolved, lies within baseDir (prevents path
// traversal escapes via "..").
func PathInDirectory(path, baseDir string) (string, error) {
	if path == "" {
		return "", codeerr.Validation(codeerr.CodeInvalidPath, "path cannot be empty")
	}
	resolvedPath, err := filepath.Abs(path)
	if err != nil {
		return "", codeerr.Wrap(codeerr.KindValidation, codeerr.CodeInvalidPath, err)
	}
	resolvedBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", codeerr.Wrap(codeerr.KindValidation, codeerr.CodeInvalidPath, err)
	}
	rel, err := filepath.Rel(resolvedBase, resolvedPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidPath,
			fmt.Sprintf("path escapes base directory: %s", path)).
			WithDetail("base_directory", resolvedBase)
	}
	return resolvedPath, nil
}

// SanitizeFTSQuery escapes a free-text query for safe use in an FTS5 MATCH expression.
func SanitizeFTSQuery(query string) string {
	sanitized := strings.ReplaceAll(query, `"`, `""`)
	if strings.ContainsAny(query, `-*^():"`) {
		sanitized = `"` + sanitized + `"`
	}
	return sanitized
}

// CommitHash validates a git commit hash: 7-40 lowercase hexadecimal characters.
func CommitHash(hash string) (string, error) {
	if hash == "" {
		return "", codeerr.Validation(codeerr.CodeInvalidCommitHash, "commit hash cannot be empty")
	}
	sanitized := strings.ToLower(strings.TrimSpace(hash))
	if !commitHashPattern.MatchString(sanitized) {
		return "", codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidCommitHash,
			fmt.Sprintf("invalid commit hash format: %s", hash)).
			WithDetail("expected", "7-40 hexadecimal characters")
	}
	return sanitized, nil
}
