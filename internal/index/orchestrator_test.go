package index_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/embed"
	"github.com/kapillamba4/codememory/internal/index"
	"github.com/kapillamba4/codememory/internal/store"
)

func newTestOrchestrator(t *testing.T) (*index.Orchestrator, *store.Store) {
	t.Helper()
	embedder, err := embed.New("static", 8)
	require.NoError(t, err)

	st, err := store.Open(context.Background(), t.TempDir(), embedder.ModelName(), embedder.Dimension())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return index.New(st, embedder), st
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunIndexesCodeAndDocFiles(t *testing.T) {
	orch, st := newTestOrchestrator(t)
	root := t.TempDir()

	writeFile(t, root, "main.go", `package main

func Greet(name string) string {
	return "hello " + name
}

func main() {
	Greet("world")
}
`)
	writeFile(t, root, "README.md", "# Title\n\nSome prose about the project.\n")

	var progressCalls int
	result, err := orch.Run(context.Background(), index.Options{
		RootDir:  root,
		Progress: func(current, total int, message string) { progressCalls++ },
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.FilesIndexed)
	require.Equal(t, 1, result.DocFilesIndexed)
	require.Greater(t, result.SymbolCount, 0)
	require.Greater(t, result.DocChunkCount, 0)
	require.Greater(t, progressCalls, 0)

	for _, o := range result.Outcomes {
		require.NoError(t, o.Err)
	}

	file, err := st.GetFileByPath(context.Background(), "main.go")
	require.NoError(t, err)
	require.NotNil(t, file)

	docFile, err := st.GetDocFileByPath(context.Background(), "README.md")
	require.NoError(t, err)
	require.NotNil(t, docFile)
	require.Equal(t, store.DocTypeReadme, docFile.DocType)
}

func TestRunSkipsUnchangedFileOnSecondPass(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	ctx := context.Background()
	first, err := orch.Run(ctx, index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 1, first.FilesIndexed)
	require.Equal(t, 0, first.FilesSkipped)

	second, err := orch.Run(ctx, index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 0, second.FilesIndexed)
	require.Equal(t, 1, second.FilesSkipped)
}

func TestRunReindexesChangedFile(t *testing.T) {
	orch, st := newTestOrchestrator(t)
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc A() {}\n")

	ctx := context.Background()
	_, err := orch.Run(ctx, index.Options{RootDir: root})
	require.NoError(t, err)

	writeFile(t, root, "main.go", "package main\n\nfunc A() {}\n\nfunc B() {}\n")
	result, err := orch.Run(ctx, index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)

	file, err := st.GetFileByPath(ctx, "main.go")
	require.NoError(t, err)
	require.NotNil(t, file)
}

func TestRunSkipsNonCandidateFiles(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	root := t.TempDir()
	writeFile(t, root, "data.bin", "\x00\x01\x02binary")
	writeFile(t, root, "image.png", "not really a png, but an unrecognized extension")

	result, err := orch.Run(context.Background(), index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 0, result.FilesIndexed)
	require.Equal(t, 0, result.DocFilesIndexed)
}

func TestRunFallsBackToWholeFileSymbolWithoutGrammar(t *testing.T) {
	orch, st := newTestOrchestrator(t)
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "plain text with no tree-sitter grammar registered for it\nsecond line\n")

	result, err := orch.Run(context.Background(), index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
	require.Equal(t, 1, result.SymbolCount)

	for _, o := range result.Outcomes {
		require.NoError(t, o.Err)
	}

	file, err := st.GetFileByPath(context.Background(), "notes.txt")
	require.NoError(t, err)
	require.NotNil(t, file)

	symbols, err := st.ListSymbolsByFile(context.Background(), file.ID)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, store.SymbolKindFile, symbols[0].Kind)
	require.Equal(t, "notes.txt", symbols[0].Name)
	require.Equal(t, 1, symbols[0].LineStart)
	require.Equal(t, 2, symbols[0].LineEnd)
}

func TestRunNestedSymbolsResolveParentID(t *testing.T) {
	orch, st := newTestOrchestrator(t)
	root := t.TempDir()
	writeFile(t, root, "widget.go", `package widget

type Widget struct{}

func (w *Widget) Render() string {
	return "widget"
}
`)

	result, err := orch.Run(context.Background(), index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)

	file, err := st.GetFileByPath(context.Background(), "widget.go")
	require.NoError(t, err)
	require.NotNil(t, file)
}
