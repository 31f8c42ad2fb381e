package search_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/embed"
	"github.com/kapillamba4/codememory/internal/index"
	"github.com/kapillamba4/codememory/internal/search"
	"github.com/kapillamba4/codememory/internal/store"
)

func buildIndexedProject(t *testing.T) (*store.Store, embed.Embedder, string) {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("widget.go", `package widget

// Widget renders a UI element.
type Widget struct{}

// Render draws the widget to a string.
func (w *Widget) Render() string {
	return "widget"
}

func NewWidget() *Widget {
	return &Widget{}
}

func useWidget() {
	w := NewWidget()
	w.Render()
}
`)
	write("README.md", "# Widget Library\n\n## Usage\n\nCall NewWidget to construct a widget, then Render it.\n\n## Installation\n\nImport the package.\n")

	embedder, err := embed.New("static", 8)
	require.NoError(t, err)

	st, err := store.Open(context.Background(), t.TempDir(), embedder.ModelName(), embedder.Dimension())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	orch := index.New(st, embedder)
	result, err := orch.Run(context.Background(), index.Options{RootDir: root})
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
	require.Equal(t, 1, result.DocFilesIndexed)

	return st, embedder, root
}

func TestFindDefinitionExactMatch(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	defs, err := engine.FindDefinition(context.Background(), "NewWidget", false)
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	for _, d := range defs {
		require.Equal(t, "NewWidget", d.Name)
	}
}

func TestFindDefinitionWithContext(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	defs, err := engine.FindDefinition(context.Background(), "Render", true)
	require.NoError(t, err)
	require.NotEmpty(t, defs)
	require.NotEmpty(t, defs[0].Signature)
}

func TestFindReferences(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	refs, err := engine.FindReferences(context.Background(), "NewWidget", false)
	require.NoError(t, err)
	require.NotEmpty(t, refs)
	require.Equal(t, "widget.go", refs[0].FilePath)
}

func TestGetFileStructure(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	entries, err := engine.GetFileStructure(context.Background(), filepath.Join(root, "widget.go"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["Widget"])
	require.True(t, names["NewWidget"])
}

func TestGetFileStructureUntracked(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	_, err := engine.GetFileStructure(context.Background(), filepath.Join(root, "missing.go"))
	require.Error(t, err)
}

func TestDiscoverTopic(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	files, err := engine.DiscoverTopic(context.Background(), "widget", 5)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "widget.go", files[0].FilePath)
}

func TestSearchDocumentation(t *testing.T) {
	st, embedder, root := buildIndexedProject(t)
	engine := search.New(st, embedder, root)

	results, err := engine.SearchDocumentation(context.Background(), "installation", 5, true)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.NotEmpty(t, results[0].Context)
}
