package search

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kapillamba4/codememory/internal/embed"
	codeerr "github.com/kapillamba4/codememory/internal/errors"
	"github.com/kapillamba4/codememory/internal/store"
)

// Engine composes the store's lexical and vector search primitives into the five query
// operations. It holds no mutable state beyond its dependencies.
type Engine struct {
	store    *store.Store
	embedder embed.Embedder
	rootDir  string
}

// New creates an Engine bound to st and embedder, rooted at rootDir: the store tracks files by
// path relative to rootDir, so callers passing absolute paths (GetFileStructure) and reads from
// disk on demand (FindReferences context) both need it to resolve against the tracked paths.
func New(st *store.Store, embedder embed.Embedder, rootDir string) *Engine {
	return &Engine{store: st, embedder: embedder, rootDir: rootDir}
}

// absPath resolves a path stored relative to rootDir back to an absolute path.
func (e *Engine) absPath(relPath string) string {
	if relPath == "" {
		return ""
	}
	return filepath.Join(e.rootDir, relPath)
}

// hybridSearch runs the shared BM25+vector+RRF primitive over table ("symbols" or "doc_chunks")
// and returns the top n fused hits.
func (e *Engine) hybridSearch(ctx context.Context, table, query string, n int) ([]*hybridHit, error) {
	bm25, err := e.store.BM25Search(ctx, table, query, DefaultHybridLimit)
	if err != nil {
		return nil, err
	}

	var vec []store.VectorRow
	queryVec, err := e.embedder.EncodeOne(ctx, query, embed.DefaultTaskType)
	if err != nil {
		return nil, codeerr.Wrap(codeerr.KindEmbedding, codeerr.CodeEmbeddingLoad, err)
	}
	vec, err = e.store.VectorSearch(table, queryVec, DefaultHybridLimit)
	if err != nil {
		return nil, err
	}

	return fuse(bm25, vec, n), nil
}

func (e *Engine) snippets(ctx context.Context, table, query, sourceText string, id int64) []string {
	snippet, err := e.store.Snippet(ctx, table, query, id)
	if err == nil && snippet != "" {
		return []string{snippet}
	}
	return fallbackSnippets(sourceText, query, 3)
}

// fallbackSnippets returns up to max lines of text containing any whitespace-delimited term of
// query, case-insensitively, when the FTS5 snippet primitive can't produce one (e.g. the hit
// came from the vector leg only).
func fallbackSnippets(text, query string, max int) []string {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				out = append(out, strings.TrimSpace(line))
				break
			}
		}
		if len(out) >= max {
			break
		}
	}
	return out
}

// signature derives a symbol's one-line signature: the first non-empty line of its source text,
// truncated to SignatureMaxLength characters with an ellipsis.
func signature(sourceText string) string {
	for _, line := range strings.Split(sourceText, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > SignatureMaxLength {
			return trimmed[:SignatureMaxLength] + "..."
		}
		return trimmed
	}
	return ""
}

// FindDefinition runs hybrid search for name, post-filters to case-sensitive exact matches (or
// falls back to the top 5 best guesses), and optionally enriches each result with its parent
// symbol, owning docstring, and signature.
func (e *Engine) FindDefinition(ctx context.Context, name string, withContext bool) ([]*Definition, error) {
	hits, err := e.hybridSearch(ctx, "symbols", name, 20)
	if err != nil {
		return nil, err
	}

	defs := make([]*Definition, 0, len(hits))
	for _, h := range hits {
		sym, err := e.store.GetSymbol(ctx, h.id)
		if err != nil {
			return nil, err
		}
		if sym == nil {
			continue
		}
		file, err := e.store.GetFileByID(ctx, sym.FileID)
		if err != nil {
			return nil, err
		}
		filePath := ""
		if file != nil {
			filePath = file.Path
		}
		defs = append(defs, &Definition{
			SymbolID:    sym.ID,
			Name:        sym.Name,
			Kind:        string(sym.Kind),
			FilePath:    filePath,
			LineStart:   sym.LineStart,
			LineEnd:     sym.LineEnd,
			SourceText:  sym.SourceText,
			Confidence:  h.confidence,
			MatchReason: h.matchReason,
			Snippets:    e.snippets(ctx, "symbols", name, sym.SourceText, sym.ID),
		})
	}

	var results []*Definition
	for _, d := range defs {
		if d.Name == name {
			results = append(results, d)
		}
	}
	if len(results) == 0 {
		if len(defs) > 5 {
			results = defs[:5]
		} else {
			results = defs
		}
	}

	if withContext {
		for _, d := range results {
			if err := e.enrichDefinition(ctx, d); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

func (e *Engine) enrichDefinition(ctx context.Context, d *Definition) error {
	d.Signature = signature(d.SourceText)

	sym, err := e.store.GetSymbol(ctx, d.SymbolID)
	if err != nil {
		return err
	}
	if sym == nil {
		return nil
	}

	if sym.ParentSymbolID != nil {
		parent, err := e.store.GetSymbol(ctx, *sym.ParentSymbolID)
		if err != nil {
			return err
		}
		if parent != nil {
			d.Parent = &SymbolRef{Name: parent.Name, Kind: string(parent.Kind)}
		}
	}

	fileDocChunk, err := e.docstringFor(ctx, sym)
	if err != nil {
		return err
	}
	d.Docstring = fileDocChunk
	return nil
}

// docstringFor finds the doc chunk owned by the documentation file matching sym's source file
// path whose line range contains sym's starting line.
func (e *Engine) docstringFor(ctx context.Context, sym *store.Symbol) (string, error) {
	file, err := e.store.GetFileByID(ctx, sym.FileID)
	if err != nil || file == nil {
		return "", err
	}
	docFile, err := e.store.GetDocFileByPath(ctx, file.Path)
	if err != nil || docFile == nil {
		return "", err
	}
	chunks, err := e.store.ListDocChunksByFile(ctx, docFile.ID)
	if err != nil {
		return "", err
	}
	for _, c := range chunks {
		if c.LineStart <= sym.LineStart && sym.LineStart <= c.LineEnd {
			return c.Content, nil
		}
	}
	return "", nil
}

// FindReferences returns every exact-name reference to name, ordered by (file, line), optionally
// enriched with the source line and the innermost containing symbol.
func (e *Engine) FindReferences(ctx context.Context, name string, withContext bool) ([]*Reference, error) {
	refs, err := e.store.FindReferencesByName(ctx, name)
	if err != nil {
		return nil, err
	}

	fileCache := make(map[int64]*store.File)
	results := make([]*Reference, 0, len(refs))
	for _, r := range refs {
		file, ok := fileCache[r.FileID]
		if !ok {
			file, err = e.store.GetFileByID(ctx, r.FileID)
			if err != nil {
				return nil, err
			}
			fileCache[r.FileID] = file
		}
		filePath := ""
		if file != nil {
			filePath = file.Path
		}
		rr := &Reference{SymbolName: r.SymbolName, FilePath: filePath, LineNumber: r.LineNumber}
		if withContext {
			if err := e.enrichReference(ctx, rr, r); err != nil {
				return nil, err
			}
		}
		results = append(results, rr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FilePath != results[j].FilePath {
			return results[i].FilePath < results[j].FilePath
		}
		return results[i].LineNumber < results[j].LineNumber
	})
	return results, nil
}

func (e *Engine) enrichReference(ctx context.Context, rr *Reference, r *store.Reference) error {
	rr.SourceLine = readLine(e.absPath(rr.FilePath), r.LineNumber)

	symbols, err := e.store.ListSymbolsByFile(ctx, r.FileID)
	if err != nil {
		return err
	}
	var innermost *store.Symbol
	for _, s := range symbols {
		if s.LineStart <= r.LineNumber && r.LineNumber <= s.LineEnd {
			if innermost == nil || (s.LineEnd-s.LineStart) < (innermost.LineEnd-innermost.LineStart) {
				innermost = s
			}
		}
	}
	if innermost != nil {
		rr.ContainingSymbol = &SymbolRef{Name: innermost.Name, Kind: string(innermost.Kind)}
	}
	return nil
}

func readLine(path string, line int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		if n == line {
			return scanner.Text()
		}
	}
	return ""
}

// GetFileStructure lists every symbol in path, ordered by starting line, with each symbol's
// parent name resolved. path may be absolute or relative to the indexed root.
func (e *Engine) GetFileStructure(ctx context.Context, path string) ([]*StructureEntry, error) {
	relPath := path
	if abs, err := filepath.Abs(path); err == nil {
		if rel, err := filepath.Rel(e.rootDir, abs); err == nil && !strings.HasPrefix(rel, "..") {
			relPath = rel
		}
	}

	file, err := e.store.GetFileByPath(ctx, relPath)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidPath, "file not tracked").WithDetail("path", path)
	}

	symbols, err := e.store.ListSymbolsByFile(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*store.Symbol, len(symbols))
	for _, s := range symbols {
		byID[s.ID] = s
	}

	entries := make([]*StructureEntry, 0, len(symbols))
	for _, s := range symbols {
		parentName := ""
		if s.ParentSymbolID != nil {
			if p, ok := byID[*s.ParentSymbolID]; ok {
				parentName = p.Name
			} else if p, err := e.store.GetSymbol(ctx, *s.ParentSymbolID); err == nil && p != nil {
				parentName = p.Name
			}
		}
		entries = append(entries, &StructureEntry{
			Name:       s.Name,
			Kind:       string(s.Kind),
			LineStart:  s.LineStart,
			LineEnd:    s.LineEnd,
			ParentName: parentName,
		})
	}
	return entries, nil
}

// DiscoverTopic runs hybrid search over symbols for topic, aggregates hits by file, and returns
// the top-relevance files with their matched symbol names/kinds and up to two illustrative code
// snippets each.
func (e *Engine) DiscoverTopic(ctx context.Context, topic string, limit int) ([]*TopicFile, error) {
	if limit <= 0 {
		limit = DefaultTopicFiles
	}
	hits, err := e.hybridSearch(ctx, "symbols", topic, 50)
	if err != nil {
		return nil, err
	}

	type agg struct {
		path        string
		relevance   float64
		names       []string
		kinds       map[string]bool
		topSymbols  []*store.Symbol
		topScores   []float64
	}
	byFile := make(map[int64]*agg)
	var order []int64

	for _, h := range hits {
		sym, err := e.store.GetSymbol(ctx, h.id)
		if err != nil || sym == nil {
			continue
		}
		a, ok := byFile[sym.FileID]
		if !ok {
			a = &agg{kinds: make(map[string]bool)}
			byFile[sym.FileID] = a
			order = append(order, sym.FileID)
		}
		a.relevance += h.score
		a.names = append(a.names, sym.Name)
		a.kinds[string(sym.Kind)] = true
		a.topSymbols = append(a.topSymbols, sym)
		a.topScores = append(a.topScores, h.score)
	}

	results := make([]*TopicFile, 0, len(byFile))
	for _, fileID := range order {
		a := byFile[fileID]
		file, err := e.store.GetFileByID(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if file != nil {
			a.path = file.Path
		}

		kinds := make([]string, 0, len(a.kinds))
		for k := range a.kinds {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)

		snippets := topSnippets(a.topSymbols, a.topScores, 2)

		results = append(results, &TopicFile{
			FilePath:    a.path,
			Relevance:   a.relevance,
			SymbolNames: a.names,
			SymbolKinds: kinds,
			Snippets:    snippets,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// topSnippets picks the n highest-scoring symbols and renders each one's source text truncated
// to TopicSnippetMaxLines lines and TopicSnippetMaxChars characters.
func topSnippets(symbols []*store.Symbol, scores []float64, n int) []string {
	type pair struct {
		sym   *store.Symbol
		score float64
	}
	pairs := make([]pair, len(symbols))
	for i := range symbols {
		pairs[i] = pair{symbols[i], scores[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	var out []string
	for i := 0; i < len(pairs) && i < n; i++ {
		out = append(out, truncateSnippet(pairs[i].sym.SourceText, TopicSnippetMaxLines, TopicSnippetMaxChars))
	}
	return out
}

func truncateSnippet(text string, maxLines, maxChars int) string {
	lines := strings.Split(text, "\n")
	truncated := false
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		truncated = true
	}
	out := strings.Join(lines, "\n")
	if len(out) > maxChars {
		out = out[:maxChars]
		truncated = true
	}
	if truncated {
		out += "\n... (truncated)"
	}
	return out
}

// SearchDocumentation runs hybrid search over documentation chunks, optionally enriching each
// result with its previous/current/next adjacent chunks.
func (e *Engine) SearchDocumentation(ctx context.Context, query string, k int, withContext bool) ([]*DocResult, error) {
	if k <= 0 {
		k = 10
	}
	hits, err := e.hybridSearch(ctx, "doc_chunks", query, k)
	if err != nil {
		return nil, err
	}

	results := make([]*DocResult, 0, len(hits))
	for _, h := range hits {
		chunk, err := e.store.GetDocChunk(ctx, h.id)
		if err != nil || chunk == nil {
			continue
		}
		docFile, err := e.store.GetDocFileByID(ctx, chunk.DocFileID)
		if err != nil {
			return nil, err
		}
		filePath := ""
		if docFile != nil {
			filePath = docFile.Path
		}

		dr := &DocResult{
			ChunkID:      chunk.ID,
			FilePath:     filePath,
			SectionTitle: chunk.SectionTitle,
			Content:      chunk.Content,
			LineStart:    chunk.LineStart,
			LineEnd:      chunk.LineEnd,
			Confidence:   h.confidence,
			MatchReason:  h.matchReason,
		}
		if withContext {
			dr.Context = e.adjacentChunks(ctx, chunk)
		}
		results = append(results, dr)
	}
	return results, nil
}

func (e *Engine) adjacentChunks(ctx context.Context, c *store.DocChunk) []AdjacentChunk {
	var out []AdjacentChunk
	if c.ChunkIndex > 0 {
		if prev, err := e.store.GetDocChunkByIndex(ctx, c.DocFileID, c.ChunkIndex-1); err == nil && prev != nil {
			out = append(out, AdjacentChunk{Type: "previous", Content: truncateChars(prev.Content, SnippetAdjacentMaxLength)})
		}
	}
	out = append(out, AdjacentChunk{Type: "current", Content: truncateChars(c.Content, SnippetAdjacentMaxLength)})
	if next, err := e.store.GetDocChunkByIndex(ctx, c.DocFileID, c.ChunkIndex+1); err == nil && next != nil {
		out = append(out, AdjacentChunk{Type: "next", Content: truncateChars(next.Content, SnippetAdjacentMaxLength)})
	}
	return out
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
