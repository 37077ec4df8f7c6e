package types

import (
	"context"

	"github.com/xhad/sitekb/internal/models"
)

// Core interfaces

// Extractor turns one document into a title and flattened body text.
type Extractor interface {
	Extract(ctx context.Context, doc models.Document) (models.ExtractedContent, error)
}

// Backend is the generative service used to answer a single prompt.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordStore receives a finished knowledge base.
type RecordStore interface {
	Import(ctx context.Context, records []models.Record, replace bool) (int, error)
	Close()
}
