package index

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kapillamba4/codememory/internal/chunk"
	"github.com/kapillamba4/codememory/internal/store"
)

// fingerprint computes the hex-encoded 64-bit non-cryptographic fingerprint of a file's content.
func fingerprint(content []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}

var readmePattern = regexp.MustCompile(`(?i)^readme(\.md|\.markdown|\.txt)?$`)

// docExtensions are the recognized documentation extensions.
var docExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
}

// knownSourceExtensions are extensions recognized as source code regardless of whether a
// tree-sitter grammar is registered for them; a candidate in this set with no grammar still gets
// indexed, via the whole-file fallback symbol in parseOne.
var knownSourceExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".java": true,
	".go": true, ".rs": true, ".c": true, ".h": true, ".cpp": true, ".hpp": true, ".cc": true, ".cxx": true,
	".rb": true, ".cs": true, ".swift": true, ".kt": true, ".kts": true, ".scala": true, ".lua": true,
	".sh": true, ".bash": true, ".zsh": true, ".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".html": true, ".css": true, ".scss": true, ".sql": true, ".txt": true,
	".dockerfile": true, ".makefile": true,
}

// classify determines whether relPath is a code candidate (known source extension or grammar
// available), a doc candidate (.md/.markdown), or not a candidate at all.
func classify(relPath string) (isCode, isDoc bool) {
	ext := strings.ToLower(filepath.Ext(relPath))
	if docExtensions[ext] {
		return false, true
	}
	if knownSourceExtensions[ext] {
		return true, false
	}
	if _, ok := chunk.DefaultRegistry().GetByExtension(ext); ok {
		return true, false
	}
	return false, false
}

// docType classifies a documentation file's role from its filename.
func docType(relPath string) store.DocType {
	if readmePattern.MatchString(filepath.Base(relPath)) {
		return store.DocTypeReadme
	}
	return store.DocTypeMarkdown
}
