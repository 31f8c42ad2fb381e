package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codeerr "github.com/kapillamba4/codememory/internal/errors"
)

func TestNewAndError(t *testing.T) {
	e := codeerr.New(codeerr.KindValidation, codeerr.CodeInvalidQuery, "query is empty")
	assert.Equal(t, "[ERR_VALIDATION_QUERY] query is empty", e.Error())
	assert.Equal(t, codeerr.KindValidation, codeerr.KindOf(e))
	assert.Equal(t, codeerr.CodeInvalidQuery, codeerr.CodeOf(e))
}

func TestWrapNil(t *testing.T) {
	require.Nil(t, codeerr.Wrap(codeerr.KindStorage, codeerr.CodeStorageOpen, nil))
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	e := codeerr.Storage(codeerr.CodeStorageWrite, cause)
	require.ErrorIs(t, e, cause)
	assert.Equal(t, cause, stderrors.Unwrap(e))
}

func TestIsMatchesKindAndCode(t *testing.T) {
	sentinel := codeerr.New(codeerr.KindGit, codeerr.CodeGitNoRepository, "")
	actual := codeerr.New(codeerr.KindGit, codeerr.CodeGitNoRepository, "no repo at /tmp/x")
	assert.True(t, stderrors.Is(actual, sentinel))

	other := codeerr.New(codeerr.KindGit, codeerr.CodeGitRevision, "bad revision")
	assert.False(t, stderrors.Is(other, sentinel))
}

func TestWithDetail(t *testing.T) {
	e := codeerr.Validation(codeerr.CodeInvalidTopK, "top_k out of range").
		WithDetail("top_k", 500)
	assert.Equal(t, 500, e.Details["top_k"])
}

func TestFormatKnownError(t *testing.T) {
	e := codeerr.Embedding(codeerr.CodeEmbeddingDimension, stderrors.New("expected 384 got 768"))
	rec := codeerr.Format(e)
	assert.True(t, rec.Error)
	assert.Equal(t, "embedding", rec.ErrorType)
	assert.Contains(t, rec.Message, "768")
}

func TestFormatUnknownError(t *testing.T) {
	rec := codeerr.Format(stderrors.New("boom"))
	assert.True(t, rec.Error)
	assert.Equal(t, "internal", rec.ErrorType)
}

func TestFormatNil(t *testing.T) {
	assert.Equal(t, codeerr.Record{}, codeerr.Format(nil))
}
