package types

import (
	"context"
	"io"

	"github.com/xhad/askpdf/internal/models"
)

// Core interfaces
type Extractor interface {
	ExtractDocument(name string, r io.Reader) (*models.Document, error)
}

type Recorder interface {
	Record(ctx context.Context) (models.Audio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio models.Audio) (string, error)
}

type Answerer interface {
	Answer(ctx context.Context, question, passage string) (models.Answer, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type ChunkStore interface {
	Store(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error
	Query(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.Chunk, error)
	Delete(ctx context.Context, documentID string) error
	Close()
}
