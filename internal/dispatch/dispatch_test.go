package dispatch_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/dispatch"
)

// runGit shells out to the system git binary to build a fixture repository. The dispatch layer
// itself never shells out; this is test scaffolding only.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoErrorf(t, err, "git %v: %s", args, out)
}

func writeGitProject(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	root := writeProject(t)
	runGit(t, root, "init", "-b", "main")
	runGit(t, root, "config", "user.email", "test@example.com")
	runGit(t, root, "config", "user.name", "Test")
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-m", "initial commit: add widget")
	return root
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("widget.go", "package widget\n\nfunc Widget() string {\n\treturn \"v1\"\n}\n")
	write("README.md", "# Widget\n\n## Usage\n\nCall Widget to get a value.\n")
	return root
}

func TestCheckIndexStatusBeforeAndAfterIndexing(t *testing.T) {
	root := writeProject(t)

	status, errRec := dispatch.CheckIndexStatus(root)
	require.Nil(t, errRec)
	require.False(t, status.Exists)

	_, errRec = dispatch.IndexCodebase(context.Background(), root, nil)
	require.Nil(t, errRec)

	status, errRec = dispatch.CheckIndexStatus(root)
	require.Nil(t, errRec)
	require.True(t, status.Exists)
}

func TestCheckIndexStatusRejectsMissingDirectory(t *testing.T) {
	_, errRec := dispatch.CheckIndexStatus(filepath.Join(t.TempDir(), "nope"))
	require.NotNil(t, errRec)
	require.Equal(t, "validation", errRec.Type)
}

func TestIndexCodebaseThenStats(t *testing.T) {
	root := writeProject(t)
	ctx := context.Background()

	result, errRec := dispatch.IndexCodebase(ctx, root, nil)
	require.Nil(t, errRec)
	require.Equal(t, 1, result.FilesIndexed)
	require.Equal(t, 1, result.DocFilesIndexed)

	stats, errRec := dispatch.GetIndexStats(ctx, root)
	require.Nil(t, errRec)
	require.Equal(t, 1, stats.FileCount)
	require.Equal(t, 1, stats.DocFileCount)
}

func TestSearchCodeDefinitionAfterIndexing(t *testing.T) {
	root := writeProject(t)
	ctx := context.Background()
	_, errRec := dispatch.IndexCodebase(ctx, root, nil)
	require.Nil(t, errRec)

	result, errRec := dispatch.SearchCode(ctx, root, "Widget", dispatch.SearchTypeDefinition, "", false, 0)
	require.Nil(t, errRec)
	require.NotNil(t, result)
}

func TestSearchCodeRejectsUnknownSearchType(t *testing.T) {
	root := writeProject(t)
	ctx := context.Background()
	_, errRec := dispatch.IndexCodebase(ctx, root, nil)
	require.Nil(t, errRec)

	_, errRec = dispatch.SearchCode(ctx, root, "Widget", "not_a_type", "", false, 0)
	require.NotNil(t, errRec)
	require.Equal(t, "validation", errRec.Type)
}

func TestSearchDocsAfterIndexing(t *testing.T) {
	root := writeProject(t)
	ctx := context.Background()
	_, errRec := dispatch.IndexCodebase(ctx, root, nil)
	require.Nil(t, errRec)

	results, errRec := dispatch.SearchDocs(ctx, root, "usage", 5)
	require.Nil(t, errRec)
	require.NotEmpty(t, results)
}

func TestSearchHistoryWithoutRepoFails(t *testing.T) {
	root := writeProject(t)
	ctx := context.Background()
	_, errRec := dispatch.IndexCodebase(ctx, root, nil)
	require.Nil(t, errRec)

	_, errRec = dispatch.SearchHistory(ctx, root, "fix", dispatch.HistoryTypeCommits, "", nil, nil)
	require.NotNil(t, errRec)
	require.Equal(t, "git", errRec.Type)
}

// TestSearchHistoryFileHistoryResolvesAbsolutePath guards against regressing the dispatch-layer
// fix that relativizes target_file against the repository root: validation.File resolves the
// caller-supplied path to an absolute one, and without the fix go-git's tree-relative matching
// silently returns nothing.
func TestSearchHistoryFileHistoryResolvesAbsolutePath(t *testing.T) {
	root := writeGitProject(t)
	ctx := context.Background()

	result, errRec := dispatch.SearchHistory(ctx, root, "", dispatch.HistoryTypeFileHistory,
		filepath.Join(root, "widget.go"), nil, nil)
	require.Nil(t, errRec)
	require.NotEmpty(t, result)
}

func TestSearchHistoryBlameResolvesAbsolutePath(t *testing.T) {
	root := writeGitProject(t)
	ctx := context.Background()

	result, errRec := dispatch.SearchHistory(ctx, root, "", dispatch.HistoryTypeBlame,
		filepath.Join(root, "widget.go"), nil, nil)
	require.Nil(t, errRec)
	require.NotEmpty(t, result)
}
