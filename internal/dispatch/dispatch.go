package dispatch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kapillamba4/codememory/internal/config"
	"github.com/kapillamba4/codememory/internal/embed"
	codeerr "github.com/kapillamba4/codememory/internal/errors"
	"github.com/kapillamba4/codememory/internal/history"
	"github.com/kapillamba4/codememory/internal/index"
	"github.com/kapillamba4/codememory/internal/search"
	"github.com/kapillamba4/codememory/internal/store"
	"github.com/kapillamba4/codememory/internal/validation"
)

const dataDirName = ".codememory"

// embedderFor constructs the project's configured embedder.
func embedderFor(cfg *config.Config) (embed.Embedder, error) {
	return embed.New(cfg.Embeddings.Provider, cfg.Embeddings.CacheSize)
}

// toErrorRecord maps an internal error onto the uniform response-failure shape. Errors built with
// internal/errors carry a Kind the caller can branch on without inspecting message text; anything
// else is reported as an internal error.
func toErrorRecord(err error) *ErrorRecord {
	if err == nil {
		return nil
	}
	kind := codeerr.KindOf(err)
	if kind == "" {
		kind = "internal"
	}
	rec := &ErrorRecord{Error: true, Type: string(kind), Message: err.Error()}
	var e *codeerr.Error
	if as, ok := err.(*codeerr.Error); ok {
		e = as
	}
	if e != nil && len(e.Details) > 0 {
		rec.Details = e.Details
	}
	return rec
}

func resolveDir(directory string) (string, *ErrorRecord) {
	dir, err := validation.Directory(directory)
	if err != nil {
		return "", toErrorRecord(err)
	}
	return dir, nil
}

func openStore(ctx context.Context, directory string) (*store.Store, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, toErrorRecord(codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidDirectory, err.Error()))
	}
	embedder, err := embedderFor(cfg)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	st, err := store.Open(ctx, filepath.Join(dir, dataDirName), embedder.ModelName(), embedder.Dimension())
	if err != nil {
		return nil, toErrorRecord(err)
	}
	return st, nil
}

// CheckIndexStatus reports whether a project has an on-disk index, without opening it as a writer.
func CheckIndexStatus(directory string) (*IndexStatus, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	dbPath := filepath.Join(dir, dataDirName, store.DatabaseFileName)
	if _, err := os.Stat(dbPath); err != nil {
		return &IndexStatus{Exists: false}, nil
	}
	return &IndexStatus{Exists: true, DatabasePath: dbPath}, nil
}

// GetIndexStats opens the store read-write (the store has no read-only mode) just long enough to
// gather table counts and distributions, then releases it.
func GetIndexStats(ctx context.Context, directory string) (*store.Stats, *ErrorRecord) {
	st, errRec := openStore(ctx, directory)
	if errRec != nil {
		return nil, errRec
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	return stats, nil
}

// IndexCodebase runs a full index/reindex pass over directory, forwarding progress events to sink
// if non-nil.
func IndexCodebase(ctx context.Context, directory string, sink index.ProgressFunc) (*index.Result, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, toErrorRecord(codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidDirectory, err.Error()))
	}
	embedder, err := embedderFor(cfg)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	st, err := store.Open(ctx, filepath.Join(dir, dataDirName), embedder.ModelName(), embedder.Dimension())
	if err != nil {
		return nil, toErrorRecord(err)
	}
	defer st.Close()

	orch := index.New(st, embedder)
	result, err := orch.Run(ctx, index.Options{
		RootDir:         dir,
		Workers:         cfg.Index.Workers,
		EmbedBatchSize:  cfg.Embeddings.BatchSize,
		IncludePatterns: cfg.Paths.Include,
		ExcludePatterns: cfg.Paths.Exclude,
		Progress:        sink,
	})
	if err != nil {
		return nil, toErrorRecord(err)
	}
	return result, nil
}

// SearchCode dispatches to the Query Engine operation named by searchType.
func SearchCode(ctx context.Context, directory, query, searchType, path string, withContext bool, limit int) (any, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	searchType, err := validation.SearchType(searchType, []string{
		SearchTypeTopicDiscovery, SearchTypeDefinition, SearchTypeReferences, SearchTypeFileStructure,
	})
	if err != nil {
		return nil, toErrorRecord(err)
	}

	st, errRec := openStore(ctx, directory)
	if errRec != nil {
		return nil, errRec
	}
	defer st.Close()

	cfg, loadErr := config.Load(dir)
	if loadErr != nil {
		return nil, toErrorRecord(codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidDirectory, loadErr.Error()))
	}
	embedder, err := embedderFor(cfg)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	engine := search.New(st, embedder, dir)

	switch searchType {
	case SearchTypeDefinition:
		q, err := validation.Query(query)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		defs, err := engine.FindDefinition(ctx, q, withContext)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return defs, nil
	case SearchTypeReferences:
		q, err := validation.Query(query)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		refs, err := engine.FindReferences(ctx, q, withContext)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return refs, nil
	case SearchTypeFileStructure:
		p, err := validation.File(path)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		entries, err := engine.GetFileStructure(ctx, p)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return entries, nil
	default: // SearchTypeTopicDiscovery
		q, err := validation.Query(query)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		n, err := validation.TopK(limit, 1, 100, search.DefaultTopicFiles)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		files, err := engine.DiscoverTopic(ctx, q, n)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return files, nil
	}
}

// SearchDocs runs documentation search; results always include surrounding-chunk context.
func SearchDocs(ctx context.Context, directory, query string, topK int) ([]*search.DocResult, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	q, err := validation.Query(query)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	k, err := validation.TopK(topK, 1, 100, 10)
	if err != nil {
		return nil, toErrorRecord(err)
	}

	st, errRec := openStore(ctx, directory)
	if errRec != nil {
		return nil, errRec
	}
	defer st.Close()

	cfg, loadErr := config.Load(dir)
	if loadErr != nil {
		return nil, toErrorRecord(codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidDirectory, loadErr.Error()))
	}
	embedder, err := embedderFor(cfg)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	engine := search.New(st, embedder, dir)

	results, err := engine.SearchDocumentation(ctx, q, k, true)
	if err != nil {
		return nil, toErrorRecord(err)
	}
	return results, nil
}

// repoRelativeFile converts an absolute target-file path (as validation.File returns) into a path
// relative to the git repository's worktree root: go-git matches LogOptions.FileName, git.Blame,
// and DiffTree change names against repo-relative tree paths, not filesystem-absolute ones. A
// path that is already relative is passed through unchanged.
func repoRelativeFile(repo *history.Repository, path string) (string, *ErrorRecord) {
	if path == "" || !filepath.IsAbs(path) {
		return path, nil
	}
	root, err := repo.Root()
	if err != nil {
		return "", toErrorRecord(err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", toErrorRecord(codeerr.New(codeerr.KindGit, codeerr.CodeGitOperation, err.Error()))
	}
	return filepath.ToSlash(rel), nil
}

// SearchHistory dispatches to the History Extractor operation named by searchType.
func SearchHistory(ctx context.Context, directory, query, searchType, targetFile string, lineStart, lineEnd *int) (any, *ErrorRecord) {
	dir, errRec := resolveDir(directory)
	if errRec != nil {
		return nil, errRec
	}
	searchType, err := validation.SearchType(searchType, []string{
		HistoryTypeCommits, HistoryTypeFileHistory, HistoryTypeBlame, HistoryTypeCommitDetail,
	})
	if err != nil {
		return nil, toErrorRecord(err)
	}
	start, end, err := validation.LineRange(lineStart, lineEnd)
	if err != nil {
		return nil, toErrorRecord(err)
	}

	repo, err := history.Resolve(dir)
	if err != nil {
		return nil, toErrorRecord(err)
	}

	const defaultLimit = 20

	switch searchType {
	case HistoryTypeCommits:
		q, err := validation.Query(query)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		relFile, errRec := repoRelativeFile(repo, targetFile)
		if errRec != nil {
			return nil, errRec
		}
		commits, err := repo.SearchCommits(q, relFile, defaultLimit)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return commits, nil
	case HistoryTypeFileHistory:
		f, err := validation.File(targetFile)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		relFile, errRec := repoRelativeFile(repo, f)
		if errRec != nil {
			return nil, errRec
		}
		commits, err := repo.FileHistory(relFile, defaultLimit)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return commits, nil
	case HistoryTypeCommitDetail:
		hash, err := validation.CommitHash(query)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		relFile, errRec := repoRelativeFile(repo, targetFile)
		if errRec != nil {
			return nil, errRec
		}
		detail, err := repo.CommitDetail(hash, relFile)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return detail, nil
	default: // HistoryTypeBlame
		f, err := validation.File(targetFile)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		relFile, errRec := repoRelativeFile(repo, f)
		if errRec != nil {
			return nil, errRec
		}
		s, e := 0, 0
		if start != nil {
			s = *start
		}
		if end != nil {
			e = *end
		}
		entries, err := repo.Blame(relFile, s, e)
		if err != nil {
			return nil, toErrorRecord(err)
		}
		return entries, nil
	}
}
