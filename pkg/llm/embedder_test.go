package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddings struct {
	vectors [][]float32
	err     error
}

func (f fakeEmbeddings) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return f.vectors, f.err
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := NewEmbedderWithConfig(EmbedderConfig{})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text:latest", emb.Config.Model)
	assert.Equal(t, "http://localhost:11434", emb.Config.BaseURL)
}

func TestCreateEmbedding(t *testing.T) {
	emb := &Embedder{embed: fakeEmbeddings{vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}}}}

	vectors, err := emb.CreateEmbedding(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)

	vectors, err = emb.CreateEmbedding(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestCreateEmbeddingMismatch(t *testing.T) {
	emb := &Embedder{embed: fakeEmbeddings{vectors: [][]float32{{0.1}}}}
	_, err := emb.CreateEmbedding(context.Background(), []string{"a", "b"})
	assert.Error(t, err)

	emb = &Embedder{embed: fakeEmbeddings{err: errors.New("model not found")}}
	_, err = emb.CreateEmbedding(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "model not found")
}
