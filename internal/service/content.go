package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/pagination"
	"github.com/cloo-solutions/corpusd/internal/pipeline"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
	"github.com/google/uuid"
)

// ContentRepositoryInterface defines the repository interface for content persistence
type ContentRepositoryInterface interface {
	Create(ctx context.Context, unit *domain.ContentUnit) error
	GetByID(ctx context.Context, id string) (*domain.ContentUnit, error)
	ListByProvenance(ctx context.Context, provenance domain.Provenance) ([]*domain.ContentUnit, error)
	ListWithCursor(ctx context.Context, provenance domain.Provenance, cursor *pagination.Cursor, limit int) (*ContentPageResult, error)
	Delete(ctx context.Context, id string) error
	DeleteChildren(ctx context.Context, originalID string) error
	DeleteByRowIndex(ctx context.Context, rowIndex int) error
	GetBulkFingerprints(ctx context.Context) (map[int]string, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]*ScoredUnit, error)
}

type ContentPageResult struct {
	Items      []*domain.ContentUnit
	NextCursor string
	HasMore    bool
}

// ScoredUnit pairs a content unit with its semantic similarity score.
type ScoredUnit struct {
	Unit  *domain.ContentUnit
	Score float64
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// EnhancementPipelineInterface defines the document enhancement pipeline
type EnhancementPipelineInterface interface {
	Process(ctx context.Context, upload pipeline.RawUpload) *domain.EnrichedDocument
}

// ArchiveStoreInterface stores raw upload payloads in object storage.
type ArchiveStoreInterface interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ContentService handles ingestion and retrieval of content units. The
// enhancement pipeline and the archive store are both optional; without
// them uploads are persisted raw.
type ContentService struct {
	contentRepo ContentRepositoryInterface
	txRunner    TxRunner
	pipeline    EnhancementPipelineInterface
	archive     ArchiveStoreInterface
	uuidGen     UUIDGenerator
}

// NewContentService creates a new ContentService instance
func NewContentService(
	contentRepo ContentRepositoryInterface,
	txRunner TxRunner,
	pipeline EnhancementPipelineInterface,
	archive ArchiveStoreInterface,
) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		txRunner:    txRunner,
		pipeline:    pipeline,
		archive:     archive,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewContentServiceWithUUIDGen creates a new ContentService with custom UUID generator (for testing)
func NewContentServiceWithUUIDGen(
	contentRepo ContentRepositoryInterface,
	txRunner TxRunner,
	pipeline EnhancementPipelineInterface,
	archive ArchiveStoreInterface,
	uuidGen UUIDGenerator,
) *ContentService {
	return &ContentService{
		contentRepo: contentRepo,
		txRunner:    txRunner,
		pipeline:    pipeline,
		archive:     archive,
		uuidGen:     uuidGen,
	}
}

// UploadInput represents one document submitted through the upload path
type UploadInput struct {
	Content  string
	Filename string
	Metadata map[string]any
}

// UploadOutput reports what ingestion did with the document
type UploadOutput struct {
	Unit       *domain.ContentUnit
	Enhanced   bool
	ChunkCount int
}

type ListContentInput struct {
	Provenance string
	Cursor     string
	Limit      int
}

type ListContentOutput struct {
	Items   []*domain.ContentUnit
	Cursor  string
	HasMore bool
}

// Upload ingests one document. Content arriving here is tagged with
// upload provenance; whether it gets enhanced is decided by the metadata
// heuristic, so bulk-marked submissions are stored untouched. The parent
// unit, its chunks and their embedding jobs are persisted in one
// transaction.
func (s *ContentService) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.Upload", telemetry.SpanAttributes{
		Operation: "upload",
	})
	defer span.End()

	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "content is required")
	}

	now := time.Now().UTC()
	id := s.uuidGen.NewString()

	metadata := cloneMetadata(input.Metadata)
	if input.Filename != "" {
		if _, ok := metadata[domain.MetaFilename]; !ok {
			metadata[domain.MetaFilename] = input.Filename
		}
	}

	unit := domain.NewContentUnit(id, input.Content, metadata, domain.ProvenanceUpload, now)

	output := &UploadOutput{Unit: unit}

	var chunkUnits []*domain.ContentUnit
	if s.pipeline != nil && domain.IsUploadSourced(input.Metadata) {
		doc := s.pipeline.Process(ctx, pipeline.RawUpload{ID: id, Content: input.Content, Filename: input.Filename})
		if doc.Enhanced {
			for k, v := range doc.Metadata.MetadataMap() {
				unit.Metadata[k] = v
			}
			chunkUnits = buildChunkUnits(unit, doc.Chunks, now)
			output.Enhanced = true
			output.ChunkCount = len(chunkUnits)
		}
	}

	if s.archive != nil {
		key := fmt.Sprintf("uploads/%s.txt", id)
		if err := s.archive.PutObject(ctx, key, []byte(input.Content), "text/plain; charset=utf-8"); err != nil {
			log.Printf("content: archive of upload %s failed: %v", id, err)
			telemetry.CaptureError(ctx, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "upload archive failed", err))
		} else {
			unit.ArchiveKey = key
		}
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Content().Create(ctx, unit); err != nil {
			return err
		}
		if err := queueEmbeddingJob(ctx, repos.EmbeddingJobs(), s.uuidGen, unit.ID, now); err != nil {
			return err
		}
		for _, chunk := range chunkUnits {
			if err := repos.Content().Create(ctx, chunk); err != nil {
				return err
			}
			if err := queueEmbeddingJob(ctx, repos.EmbeddingJobs(), s.uuidGen, chunk.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to persist upload", err)
	}

	return output, nil
}

// GetByID retrieves a content unit by ID
func (s *ContentService) GetByID(ctx context.Context, id string) (*domain.ContentUnit, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.GetByID", telemetry.SpanAttributes{
		ContentID: id,
		Operation: "get",
	})
	defer span.End()

	return s.contentRepo.GetByID(ctx, id)
}

func (s *ContentService) ListContent(ctx context.Context, input ListContentInput) (*ListContentOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.ListContent", telemetry.SpanAttributes{
		Operation: "list",
	})
	defer span.End()

	provenance := domain.Provenance(input.Provenance)
	if provenance != "" && provenance != domain.ProvenanceBulk && provenance != domain.ProvenanceUpload {
		return nil, domain.ErrInvalidProvenance
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.contentRepo.ListWithCursor(ctx, provenance, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListContentOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Delete removes an upload-sourced unit together with its chunks. Bulk
// units belong to the sync engine and are refused here; editing the
// source file is the only way to change them.
func (s *ContentService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ContentService.Delete", telemetry.SpanAttributes{
		ContentID: id,
		Operation: "delete",
	})
	defer span.End()

	unit, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if unit.Provenance == domain.ProvenanceBulk {
		return domain.ErrBulkContentImmutable
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Content().DeleteChildren(ctx, id); err != nil {
			return err
		}
		return repos.Content().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if s.archive != nil && unit.ArchiveKey != "" {
		if err := s.archive.DeleteObject(ctx, unit.ArchiveKey); err != nil {
			log.Printf("content: archive cleanup of %s failed: %v", unit.ArchiveKey, err)
		}
	}

	return nil
}

// ArchiveURL returns a presigned download URL for the raw payload of an
// archived upload.
func (s *ContentService) ArchiveURL(ctx context.Context, id string) (string, error) {
	unit, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if unit.ArchiveKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "content unit has no archived payload")
	}
	if s.archive == nil {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "archive store is not configured")
	}

	url, err := s.archive.GenerateDownloadURL(ctx, unit.ArchiveKey)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate archive URL", err)
	}

	return url, nil
}

func queueEmbeddingJob(ctx context.Context, repo EmbeddingJobRepositoryInterface, gen UUIDGenerator, contentID string, now time.Time) error {
	job := domain.NewEmbeddingJob(gen.NewString(), contentID, domain.EmbeddingJobStatusPending, 0, "", now, nil)
	return repo.Create(ctx, job)
}

// buildChunkUnits materializes pipeline chunks as persistable units. Each
// chunk carries the parent's enriched metadata plus its own span fields
// and a back reference to the original document.
func buildChunkUnits(parent *domain.ContentUnit, chunks []domain.Chunk, now time.Time) []*domain.ContentUnit {
	if len(chunks) <= 1 {
		return nil
	}

	units := make([]*domain.ContentUnit, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := cloneMetadata(parent.Metadata)
		metadata[domain.MetaOriginalID] = parent.ID
		for k, v := range chunk.Meta.MetadataMap() {
			metadata[k] = v
		}
		units = append(units, domain.NewContentUnit(
			domain.ChunkUnitID(parent.ID, chunk.Meta.Index),
			chunk.Text,
			metadata,
			domain.ProvenanceUpload,
			now,
		))
	}
	return units
}

func cloneMetadata(metadata map[string]any) map[string]any {
	clone := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
