package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

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

func runCmd(t *testing.T, c *cobra.Command, args ...string) string {
	t.Helper()
	buf := &bytes.Buffer{}
	c.SetOut(buf)
	c.SetErr(buf)
	c.SetArgs(args)
	require.NoError(t, c.Execute())
	return buf.String()
}

func TestIndexThenStatsThenStatus(t *testing.T) {
	root := writeProject(t)

	indexOut := runCmd(t, newIndexCmd(), root, "--plain")
	require.Contains(t, indexOut, "Complete:")

	statsOut := runCmd(t, newStatsCmd(), "--dir", root, "--json")
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(statsOut), &stats))
	require.EqualValues(t, 1, stats["FileCount"])

	statusOut := runCmd(t, newStatusCmd(), "--dir", root)
	require.Contains(t, statusOut, "Files:")
}

func TestSearchAfterIndexing(t *testing.T) {
	root := writeProject(t)
	runCmd(t, newIndexCmd(), root, "--plain")

	out := runCmd(t, newSearchCmd(), "Widget", "--dir", root, "--type", "definition")
	require.Contains(t, out, "Widget")
}

func TestDocsAfterIndexing(t *testing.T) {
	root := writeProject(t)
	runCmd(t, newIndexCmd(), root, "--plain")

	out := runCmd(t, newDocsCmd(), "usage", "--dir", root)
	require.NotEmpty(t, out)
}

func TestHistoryWithoutGitRepoFails(t *testing.T) {
	root := writeProject(t)
	runCmd(t, newIndexCmd(), root, "--plain")

	buf := &bytes.Buffer{}
	c := newHistoryCmd()
	c.SetOut(buf)
	c.SetErr(buf)
	c.SetArgs([]string{"fix", "--dir", root})
	err := c.Execute()
	require.Error(t, err)
}
