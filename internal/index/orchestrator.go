package index

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kapillamba4/codememory/internal/chunk"
	"github.com/kapillamba4/codememory/internal/embed"
	codeerr "github.com/kapillamba4/codememory/internal/errors"
	"github.com/kapillamba4/codememory/internal/scanner"
	"github.com/kapillamba4/codememory/internal/store"
)

// Orchestrator drives one incremental index run against a Store, using the Source/Doc Parser to
// extract symbols, references, and doc chunks, and an Embedder to encode them.
type Orchestrator struct {
	store    *store.Store
	embedder embed.Embedder
	symbols  *chunk.SymbolExtractor
	docs     *chunk.DocParser
}

// New creates an Orchestrator bound to st and embedder.
func New(st *store.Store, embedder embed.Embedder) *Orchestrator {
	return &Orchestrator{
		store:    st,
		embedder: embedder,
		symbols:  chunk.NewSymbolExtractor(),
		docs:     chunk.NewDocParser(),
	}
}

// normalizeSymbolKind maps a grammar-table kind onto the store's closed symbol-kind set: "type"
// (interfaces, structs, type aliases) is class-like, and "constant" is a variable binding.
func normalizeSymbolKind(kind string) store.SymbolKind {
	switch kind {
	case "type":
		return store.SymbolKindClass
	case "constant":
		return store.SymbolKindVariable
	default:
		return store.SymbolKind(kind)
	}
}

// flatSymbol is one node of a depth-first, parent-first flattening of a symbol tree: parentIdx
// indexes into the same flat slice, or -1 for a top-level symbol.
type flatSymbol struct {
	sym       *chunk.ParsedSymbol
	parentIdx int
}

func flattenSymbols(syms []*chunk.ParsedSymbol) []flatSymbol {
	var out []flatSymbol
	var walk func(s *chunk.ParsedSymbol, parentIdx int)
	walk = func(s *chunk.ParsedSymbol, parentIdx int) {
		out = append(out, flatSymbol{sym: s, parentIdx: parentIdx})
		myIdx := len(out) - 1
		for _, c := range s.Children {
			walk(c, myIdx)
		}
	}
	for _, s := range syms {
		walk(s, -1)
	}
	return out
}

// parsedUnit is the parse phase's output for one candidate file, ready for the embed and persist
// phases. No database writes happen while building one of these.
type parsedUnit struct {
	relPath string
	absPath string
	modTime time.Time
	isDoc   bool
	skip    bool
	fp      string

	flatSymbols []flatSymbol
	symbolVecs  [][]float32
	refs        []*chunk.ParsedReference

	docChunks []*chunk.ParsedDocChunk
	docVecs   [][]float32
}

// Run scans opts.RootDir, then executes the parse/embed/persist pipeline against every candidate
// file found. A parse-phase error for one file does not abort the run; it surfaces in the
// returned Result's Outcomes.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	batchSize := opts.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}

	candidates, scanned, err := o.discover(ctx, opts, workers)
	if err != nil {
		return nil, err
	}

	total := len(candidates)
	report := func(current int, message string) {
		if opts.Progress != nil {
			opts.Progress(current, total, message)
		}
	}
	report(0, "parsing")

	units := make([]*parsedUnit, total)
	outcomes := make([]FileOutcome, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var mu sync.Mutex
	var done int

	for i, f := range candidates {
		i, f := i, f
		g.Go(func() error {
			unit, outcome := o.parseOne(gctx, f)
			units[i] = unit
			outcomes[i] = outcome

			mu.Lock()
			done++
			report(done, fmt.Sprintf("parsed %s", f.Path))
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-file errors are captured in outcomes, never abort the batch

	report(total, "embedding")
	if err := o.embedAll(ctx, units, batchSize); err != nil {
		return nil, err
	}

	report(total, "persisting")
	result := &Result{FilesScanned: scanned, Outcomes: outcomes}
	for i, u := range units {
		if u == nil {
			continue
		}
		if u.skip {
			result.FilesSkipped++
			continue
		}
		if err := o.persistOne(ctx, u); err != nil {
			outcomes[i] = FileOutcome{Path: u.relPath, Err: err}
			continue
		}
		if u.isDoc {
			result.DocFilesIndexed++
			result.DocChunkCount += len(u.docChunks)
		} else {
			result.FilesIndexed++
			result.SymbolCount += len(u.flatSymbols)
		}
	}
	result.Outcomes = outcomes

	report(total, "complete")
	result.Duration = time.Since(start)
	return result, nil
}

// discover scans the directory tree and filters to candidate files: a file qualifies if it has a
// known source extension, a registered tree-sitter grammar, or a recognized documentation
// extension. Generated files are never candidates.
func (o *Orchestrator) discover(ctx context.Context, opts Options, workers int) ([]*scanner.FileInfo, int, error) {
	sc, err := scanner.New()
	if err != nil {
		return nil, 0, codeerr.Wrap(codeerr.KindIndexing, codeerr.CodeIndexParse, err)
	}

	results, err := sc.Scan(ctx, &scanner.ScanOptions{
		RootDir:          opts.RootDir,
		IncludePatterns:  opts.IncludePatterns,
		ExcludePatterns:  opts.ExcludePatterns,
		RespectGitignore: true,
		Workers:          workers,
	})
	if err != nil {
		return nil, 0, codeerr.Wrap(codeerr.KindIndexing, codeerr.CodeIndexParse, err)
	}

	var candidates []*scanner.FileInfo
	scanned := 0
	for r := range results {
		if r.Error != nil {
			continue
		}
		scanned++
		if r.File.IsGenerated {
			continue
		}
		isCode, isDoc := classify(r.File.Path)
		if !isCode && !isDoc {
			continue
		}
		candidates = append(candidates, r.File)
	}
	return candidates, scanned, nil
}

// parseOne reads one file, applies the skip-if-unchanged check against stored (mtime,
// fingerprint), and otherwise parses it into symbols/references or doc chunks.
func (o *Orchestrator) parseOne(ctx context.Context, f *scanner.FileInfo) (*parsedUnit, FileOutcome) {
	isCode, isDoc := classify(f.Path)
	u := &parsedUnit{relPath: f.Path, absPath: f.AbsPath, modTime: f.ModTime, isDoc: isDoc}

	content, err := os.ReadFile(f.AbsPath)
	if err != nil {
		return nil, FileOutcome{Path: f.Path, Err: codeerr.Wrap(codeerr.KindIndexing, codeerr.CodeIndexParse, err)}
	}
	u.fp = fingerprint(content)

	var storedModTime time.Time
	var storedFP string
	var tracked bool
	if isDoc {
		df, err := o.store.GetDocFileByPath(ctx, f.Path)
		if err != nil {
			return nil, FileOutcome{Path: f.Path, Err: err}
		}
		if df != nil {
			storedModTime, storedFP, tracked = df.LastModified, df.FileHash, true
		}
	} else {
		sf, err := o.store.GetFileByPath(ctx, f.Path)
		if err != nil {
			return nil, FileOutcome{Path: f.Path, Err: err}
		}
		if sf != nil {
			storedModTime, storedFP, tracked = sf.LastModified, sf.FileHash, true
		}
	}

	if tracked && !f.ModTime.After(storedModTime) && u.fp == storedFP {
		u.skip = true
		return u, FileOutcome{Path: f.Path, Skipped: true}
	}

	if isDoc {
		u.docChunks = o.docs.Parse(content)
		return u, FileOutcome{Path: f.Path}
	}

	if !isCode {
		return nil, FileOutcome{Path: f.Path, Err: fmt.Errorf("not a code or doc candidate")}
	}

	cfg, ok := chunk.DefaultRegistry().GetByExtension(filepath.Ext(f.Path))
	if !ok {
		u.flatSymbols = []flatSymbol{fallbackSymbol(f.Path, content)}
		return u, FileOutcome{Path: f.Path}
	}

	// Tree-sitter parsers are not safe to share across goroutines; each worker gets its own.
	parser := chunk.NewParser()
	defer parser.Close()

	tree, err := parser.Parse(ctx, content, cfg.Name)
	if err != nil {
		return nil, FileOutcome{Path: f.Path, Err: codeerr.Wrap(codeerr.KindIndexing, codeerr.CodeIndexParse, err)}
	}

	symbols, refs := o.symbols.Extract(tree, content)
	u.flatSymbols = flattenSymbols(symbols)
	u.refs = refs
	return u, FileOutcome{Path: f.Path}
}

// maxFallbackSourceBytes bounds the source text captured for a whole-file fallback symbol.
const maxFallbackSourceBytes = 5000

// fallbackSymbol builds the single whole-file symbol emitted for a code candidate with no
// registered grammar, so the file is still searchable by name and content.
func fallbackSymbol(relPath string, content []byte) flatSymbol {
	source := content
	if len(source) > maxFallbackSourceBytes {
		source = source[:maxFallbackSourceBytes]
	}
	lines := bytes.Count(content, []byte("\n"))
	if len(content) == 0 || content[len(content)-1] != '\n' {
		lines++
	}
	return flatSymbol{
		sym: &chunk.ParsedSymbol{
			Name:       filepath.Base(relPath),
			Kind:       "file",
			LineStart:  1,
			LineEnd:    lines,
			SourceText: string(source),
		},
		parentIdx: -1,
	}
}

// embedRef points back from a flat embedding-text slot to the unit and symbol/chunk it came from.
type embedRef struct {
	unitIdx int
	isDoc   bool
	itemIdx int // index into flatSymbols, or into docChunks
}

// embedAll collates embedding texts across every parsed (non-skipped) unit, then encodes them in
// fixed-size batches and scatters the resulting vectors back onto their units.
func (o *Orchestrator) embedAll(ctx context.Context, units []*parsedUnit, batchSize int) error {
	var texts []string
	var refs []embedRef

	for i, u := range units {
		if u == nil || u.skip {
			continue
		}
		if u.isDoc {
			u.docVecs = make([][]float32, len(u.docChunks))
			for j, c := range u.docChunks {
				texts = append(texts, fmt.Sprintf("%s: %s", c.SectionTitle, c.Content))
				refs = append(refs, embedRef{unitIdx: i, isDoc: true, itemIdx: j})
			}
			continue
		}
		u.symbolVecs = make([][]float32, len(u.flatSymbols))
		for j, fs := range u.flatSymbols {
			source := fs.sym.SourceText
			if len(source) > 1000 {
				source = source[:1000]
			}
			texts = append(texts, fmt.Sprintf("%s %s: %s", fs.sym.Kind, fs.sym.Name, source))
			refs = append(refs, embedRef{unitIdx: i, isDoc: false, itemIdx: j})
		}
	}

	if len(texts) == 0 {
		return nil
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := o.embedder.EncodeBatch(ctx, texts[start:end], embed.DefaultTaskType)
		if err != nil {
			return codeerr.Wrap(codeerr.KindEmbedding, codeerr.CodeEmbeddingLoad, err)
		}
		for k, vec := range vecs {
			ref := refs[start+k]
			u := units[ref.unitIdx]
			if ref.isDoc {
				u.docVecs[ref.itemIdx] = vec
			} else {
				u.symbolVecs[ref.itemIdx] = vec
			}
		}
	}
	return nil
}

// persistOne writes one parsed file's derived data inside a single transaction: upsert the file
// row, delete its prior derived data, then insert the new symbols/chunks, embeddings, and
// references.
func (o *Orchestrator) persistOne(ctx context.Context, u *parsedUnit) error {
	if u.isDoc {
		return o.store.Transaction(ctx, func(tx *sql.Tx) error {
			docFileID, err := o.store.UpsertDocFile(ctx, tx, u.relPath, u.modTime, u.fp, docType(u.relPath))
			if err != nil {
				return err
			}
			if err := o.store.DeleteDocFileData(ctx, tx, docFileID); err != nil {
				return err
			}
			for idx, c := range u.docChunks {
				chunkID, err := o.store.UpsertDocChunk(ctx, tx, store.DocChunk{
					DocFileID:    docFileID,
					ChunkIndex:   idx,
					SectionTitle: c.SectionTitle,
					Content:      c.Content,
					LineStart:    c.LineStart,
					LineEnd:      c.LineEnd,
				})
				if err != nil {
					return err
				}
				if vec := u.docVecs[idx]; vec != nil {
					if err := o.store.UpsertDocEmbedding(ctx, tx, chunkID, vec); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	return o.store.Transaction(ctx, func(tx *sql.Tx) error {
		fileID, err := o.store.UpsertFile(ctx, tx, u.relPath, u.modTime, u.fp)
		if err != nil {
			return err
		}
		if err := o.store.DeleteFileData(ctx, tx, fileID); err != nil {
			return err
		}

		ids := make([]int64, len(u.flatSymbols))
		for idx, fs := range u.flatSymbols {
			var parentID *int64
			if fs.parentIdx >= 0 {
				parentID = &ids[fs.parentIdx]
			}
			id, err := o.store.UpsertSymbol(ctx, tx, store.Symbol{
				Name:           fs.sym.Name,
				Kind:           normalizeSymbolKind(fs.sym.Kind),
				FileID:         fileID,
				LineStart:      fs.sym.LineStart,
				LineEnd:        fs.sym.LineEnd,
				ParentSymbolID: parentID,
				SourceText:     fs.sym.SourceText,
			})
			if err != nil {
				return err
			}
			ids[idx] = id
			if vec := u.symbolVecs[idx]; vec != nil {
				if err := o.store.UpsertEmbedding(ctx, tx, id, vec); err != nil {
					return err
				}
			}
		}

		for _, r := range u.refs {
			if err := o.store.UpsertReference(ctx, tx, store.Reference{
				SymbolName: r.Name,
				FileID:     fileID,
				LineNumber: r.Line,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
