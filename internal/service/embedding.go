package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/corpusd/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingContentRepository defines the repository interface for embedding operations
type EmbeddingContentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ContentUnit, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService generates and stores embeddings for content units.
// Every unit embeds exactly its stored text: a bulk unit embeds the
// rendered row, a chunk embeds the chunk slice, an unchunked upload
// embeds the whole document.
type EmbeddingService struct {
	client EmbeddingClient
	repo   EmbeddingContentRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, repo EmbeddingContentRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		repo:   repo,
	}
}

// GenerateEmbedding generates and stores the embedding for one content
// unit. This method is called by the background worker.
func (s *EmbeddingService) GenerateEmbedding(ctx context.Context, contentID string) error {
	unit, err := s.repo.GetByID(ctx, contentID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, unit.Text)
	if err != nil {
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.repo.UpdateEmbedding(ctx, contentID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}
