package history_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/history"
)

// runGit shells out to the system git binary to build a fixture repository. The History
// Extractor itself never shells out; this is test scaffolding only.
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

func buildFixtureRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test")

	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("widget.go", "package widget\n\nfunc Widget() string {\n\treturn \"v1\"\n}\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial commit: add widget")

	write("widget.go", "package widget\n\nfunc Widget() string {\n\treturn \"v2\"\n}\n")
	runGit(t, dir, "commit", "-am", "fix widget rendering bug")

	write("README.md", "# widget\n")
	runGit(t, dir, "add", "README.md")
	runGit(t, dir, "commit", "-m", "add readme")

	return dir
}

func TestResolveFindsRepoFromSubdirectory(t *testing.T) {
	dir := buildFixtureRepo(t)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	repo, err := history.Resolve(sub)
	require.NoError(t, err)
	require.NotNil(t, repo)
}

func TestResolveFailsWithoutRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := history.Resolve(dir)
	require.Error(t, err)
}

func TestSearchCommitsFindsByMessage(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	commits, err := repo.SearchCommits("fix", "", 10)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Contains(t, commits[0].Message, "fix widget")
}

func TestSearchCommitsRestrictsToFile(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	commits, err := repo.SearchCommits("commit", "widget.go", 10)
	require.NoError(t, err)
	require.NotEmpty(t, commits)
	for _, c := range commits {
		require.NotContains(t, c.Message, "readme")
	}
}

func TestFileHistoryReturnsAllTouchingCommits(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	commits, err := repo.FileHistory("widget.go", 10)
	require.NoError(t, err)
	require.Len(t, commits, 2)
}

func TestCommitDetailIncludesStatsAndDiff(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	commits, err := repo.FileHistory("widget.go", 1)
	require.NoError(t, err)
	require.NotEmpty(t, commits)

	detail, err := repo.CommitDetail(commits[0].Hash, "widget.go")
	require.NoError(t, err)
	require.NotEmpty(t, detail.ParentHashes)
	require.NotEmpty(t, detail.Stats)
	require.Contains(t, detail.Diff, "widget.go")
}

func TestCommitDetailRootCommitHasNoParents(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	commits, err := repo.FileHistory("widget.go", 10)
	require.NoError(t, err)
	root := commits[len(commits)-1]

	detail, err := repo.CommitDetail(root.Hash, "")
	require.NoError(t, err)
	require.Empty(t, detail.ParentHashes)
	require.NotEmpty(t, detail.Stats)
}

func TestRootReturnsWorktreeRoot(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	root, err := repo.Root()
	require.NoError(t, err)

	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	resolvedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	require.Equal(t, resolvedDir, resolvedRoot)
}

func TestBlameGroupsConsecutiveLinesAndFiltersRange(t *testing.T) {
	dir := buildFixtureRepo(t)
	repo, err := history.Resolve(dir)
	require.NoError(t, err)

	entries, err := repo.Blame("widget.go", 0, 0)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	total := 0
	for _, e := range entries {
		total += e.EndLine - e.StartLine + 1
	}
	require.Equal(t, 5, total)

	filtered, err := repo.Blame("widget.go", 1, 1)
	require.NoError(t, err)
	for _, e := range filtered {
		require.LessOrEqual(t, e.StartLine, 1)
		require.GreaterOrEqual(t, e.EndLine, 1)
	}
}
