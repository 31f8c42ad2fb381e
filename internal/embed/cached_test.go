package embed_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapillamba4/codememory/internal/embed"
)

type countingEmbedder struct {
	embed.Embedder
	calls int64
}

func (c *countingEmbedder) EncodeOne(ctx context.Context, text, taskType string) ([]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.Embedder.EncodeOne(ctx, text, taskType)
}

func (c *countingEmbedder) EncodeBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	atomic.AddInt64(&c.calls, int64(len(texts)))
	return c.Embedder.EncodeBatch(ctx, texts, taskType)
}

func TestCachedEmbedderEncodeOneHitsCache(t *testing.T) {
	inner := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	cached := embed.NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	_, err := cached.EncodeOne(ctx, "foo", "nl2code")
	require.NoError(t, err)
	_, err = cached.EncodeOne(ctx, "foo", "nl2code")
	require.NoError(t, err)

	assert.EqualValues(t, 1, inner.calls)
}

func TestCachedEmbedderDistinguishesTaskType(t *testing.T) {
	inner := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	cached := embed.NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	_, err := cached.EncodeOne(ctx, "foo", "nl2code")
	require.NoError(t, err)
	_, err = cached.EncodeOne(ctx, "foo", "code2nl")
	require.NoError(t, err)

	assert.EqualValues(t, 2, inner.calls)
}

func TestCachedEmbedderEncodeBatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{Embedder: embed.NewStaticEmbedder()}
	cached := embed.NewCachedEmbedder(inner, 16)
	ctx := context.Background()

	_, err := cached.EncodeOne(ctx, "a", "nl2code")
	require.NoError(t, err)

	batch, err := cached.EncodeBatch(ctx, []string{"a", "b", "c"}, "nl2code")
	require.NoError(t, err)
	assert.Len(t, batch, 3)
	assert.EqualValues(t, 3, inner.calls) // 1 for "a" + 2 for the miss batch
}

func TestCachedEmbedderEmptyBatch(t *testing.T) {
	cached := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 16)
	batch, err := cached.EncodeBatch(context.Background(), nil, "nl2code")
	require.NoError(t, err)
	assert.Empty(t, batch)
}
