package embed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/embed"
)

func TestStaticEmbedderDimension(t *testing.T) {
	e := embed.NewStaticEmbedder()
	assert.Equal(t, embed.StaticDimensions, e.Dimension())
	assert.Equal(t, "static", e.ModelName())
}

func TestStaticEmbedderDeterministic(t *testing.T) {
	e := embed.NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.EncodeOne(ctx, "func HandleRequest(w http.ResponseWriter)", "nl2code")
	require.NoError(t, err)
	v2, err := e.EncodeOne(ctx, "func HandleRequest(w http.ResponseWriter)", "nl2code")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	v3, err := e.EncodeOne(ctx, "func HandleRequest(w http.ResponseWriter)", "code2nl")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v3, "different task type should change the prefixed text and vector")
}

func TestStaticEmbedderEmptyText(t *testing.T) {
	e := embed.NewStaticEmbedder()
	vec, err := e.EncodeOne(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Len(t, vec, embed.StaticDimensions)
	for _, f := range vec {
		assert.Zero(t, f)
	}
}

func TestStaticEmbedderNormalized(t *testing.T) {
	e := embed.NewStaticEmbedder()
	vec, err := e.EncodeOne(context.Background(), "parseCommitHash(hashStr string)", "nl2code")
	require.NoError(t, err)

	var sumSquares float64
	for _, f := range vec {
		sumSquares += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, sumSquares, 0.001)
}

func TestStaticEmbedderBatchMatchesSingle(t *testing.T) {
	e := embed.NewStaticEmbedder()
	ctx := context.Background()
	texts := []string{"alpha", "beta", "gamma"}

	batch, err := e.EncodeBatch(ctx, texts, "nl2code")
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.EncodeOne(ctx, text, "nl2code")
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedderClosedFails(t *testing.T) {
	e := embed.NewStaticEmbedder()
	require.NoError(t, e.Close())
	_, err := e.EncodeOne(context.Background(), "x", "nl2code")
	assert.Error(t, err)
}
