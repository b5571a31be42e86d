package qa

import (
	"context"
	"fmt"

	"github.com/xhad/askpdf/internal/models"
	"github.com/xhad/askpdf/internal/types"
)

// Retriever narrows a document to the chunks most similar to a question.
type Retriever struct {
	embedder types.Embedder
	store    types.ChunkStore
	topK     int
}

func NewRetriever(embedder types.Embedder, store types.ChunkStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

func (r *Retriever) Index(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := r.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	if err := r.store.Store(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

func (r *Retriever) Relevant(ctx context.Context, documentID, question string) ([]models.Chunk, error) {
	embeddings, err := r.embedder.CreateEmbedding(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("failed to embed question: no vector returned")
	}
	return r.store.Query(ctx, documentID, embeddings[0], r.topK)
}

func (r *Retriever) Forget(ctx context.Context, documentID string) error {
	return r.store.Delete(ctx, documentID)
}
