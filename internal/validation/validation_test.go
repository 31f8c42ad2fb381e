package validation_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/validation"
)

func intPtr(i int) *int { return &i }

func TestDirectoryValid(t *testing.T) {
	dir := t.TempDir()
	resolved, err := validation.Directory(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))
}

func TestDirectoryMissing(t *testing.T) {
	_, err := validation.Directory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDirectoryEmpty(t *testing.T) {
	_, err := validation.Directory("  ")
	assert.Error(t, err)
}

func TestQueryBounds(t *testing.T) {
	_, err := validation.Query("")
	assert.Error(t, err)

	big := make([]byte, 1001)
	for i := range big {
		big[i] = 'a'
	}
	_, err = validation.Query(string(big))
	assert.Error(t, err)

	q, err := validation.Query("  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", q)
}

func TestSearchType(t *testing.T) {
	allowed := []string{"definition", "references"}
	_, err := validation.SearchType("bogus", allowed)
	assert.Error(t, err)

	v, err := validation.SearchType("definition", allowed)
	require.NoError(t, err)
	assert.Equal(t, "definition", v)
}

func TestLineRange(t *testing.T) {
	_, _, err := validation.LineRange(intPtr(10), intPtr(5))
	assert.Error(t, err)

	start, end, err := validation.LineRange(intPtr(5), intPtr(10))
	require.NoError(t, err)
	assert.Equal(t, 5, *start)
	assert.Equal(t, 10, *end)

	start, end, err = validation.LineRange(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, start)
	assert.Nil(t, end)
}

func TestTopKDefaultAndBounds(t *testing.T) {
	v, err := validation.TopK(0, 1, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	_, err = validation.TopK(101, 1, 100, 10)
	assert.Error(t, err)

	_, err = validation.TopK(-1, 1, 100, 10)
	assert.Error(t, err)
}

func TestPathInDirectoryRejectsEscape(t *testing.T) {
	base := t.TempDir()
	_, err := validation.PathInDirectory(filepath.Join(base, "..", "escape.txt"), base)
	assert.Error(t, err)

	inside, err := validation.PathInDirectory(filepath.Join(base, "ok.txt"), base)
	require.NoError(t, err)
	assert.Contains(t, inside, base)
}

func TestSanitizeFTSQuery(t *testing.T) {
	assert.Equal(t, `"foo-bar"`, validation.SanitizeFTSQuery("foo-bar"))
	assert.Equal(t, "plain", validation.SanitizeFTSQuery("plain"))
}

func TestCommitHash(t *testing.T) {
	v, err := validation.CommitHash("ABCDEF1")
	require.NoError(t, err)
	assert.Equal(t, "abcdef1", v)

	_, err = validation.CommitHash("xyz")
	assert.Error(t, err)
}
