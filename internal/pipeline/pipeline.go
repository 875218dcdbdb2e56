package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
)

// Stage names used in failure logs and spans.
const (
	StageTypeDetection    = "type_detection"
	StageEntityExtraction = "entity_extraction"
	StageChunking         = "chunking"
	StageEnrichment       = "enrichment"
	StageBudget           = "budget"
)

// DefaultTimeout bounds one Process call when the operator configures no
// budget.
const DefaultTimeout = 30 * time.Second

// analysisWorkers sizes the pool running the read-only analysis stages.
const analysisWorkers = 2

// TypeDetectorInterface defines the type detection stage
type TypeDetectorInterface interface {
	Detect(content, filename string) (domain.DocumentType, float64)
}

// EntityExtractorInterface defines the entity extraction stage
type EntityExtractorInterface interface {
	Extract(content string) domain.ExtractedEntities
}

// ChunkerInterface defines the chunking stage
type ChunkerInterface interface {
	Chunk(text string) []domain.Chunk
}

// EnricherInterface defines the metadata enrichment stage
type EnricherInterface interface {
	Enrich(content string, docType domain.DocumentType, entities domain.ExtractedEntities, confidence float64, hasTable bool) domain.EnrichedMetadata
}

// RawUpload is one submission from the ingestion boundary.
type RawUpload struct {
	ID       string
	Content  string
	Filename string
}

// Pipeline orchestrates the enhancement stages for upload-sourced
// content. Any stage failure, panic included, degrades the call to a
// pass-through of the original content; Process never returns an error
// and never drops a document. One Pipeline serves the whole process and
// is safe for concurrent use.
type Pipeline struct {
	cfg       *Config
	timeout   time.Duration
	detector  TypeDetectorInterface
	extractor EntityExtractorInterface
	chunker   ChunkerInterface
	enricher  EnricherInterface
}

// New creates a Pipeline from a validated config. A nil config gets the
// defaults; timeout <= 0 gets DefaultTimeout.
func New(cfg *Config, timeout time.Duration) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor, err := NewEntityExtractor(cfg.EntityExtraction)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Pipeline{
		cfg:       cfg,
		timeout:   timeout,
		detector:  NewTypeDetector(cfg.TypeDetection),
		extractor: extractor,
		chunker:   NewChunker(cfg.Chunking),
		enricher:  NewEnricher(cfg.Metadata),
	}, nil
}

// NewWithStages creates a Pipeline with custom stage implementations (for testing)
func NewWithStages(
	cfg *Config,
	timeout time.Duration,
	detector TypeDetectorInterface,
	extractor EntityExtractorInterface,
	chunker ChunkerInterface,
	enricher EnricherInterface,
) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{
		cfg:       cfg,
		timeout:   timeout,
		detector:  detector,
		extractor: extractor,
		chunker:   chunker,
		enricher:  enricher,
	}
}

// Process runs one upload through the stages: type detection and entity
// extraction first (concurrently when parallel is configured), then
// chunking, then enrichment. The input content is never modified.
func (p *Pipeline) Process(ctx context.Context, upload RawUpload) *domain.EnrichedDocument {
	if !p.cfg.Enabled {
		return passThrough(upload)
	}

	ctx, span := telemetry.StartSpan(ctx, "Pipeline.Process", telemetry.SpanAttributes{
		ContentID: upload.ID,
		Operation: "process",
	})
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()

	docType, confidence, entities, stage, err := p.analyze(ctx, upload)
	if err != nil {
		return p.fail(ctx, upload, stage, err)
	}

	var chunks []domain.Chunk
	hasTable := false
	if err := runStage(StageChunking, func() {
		hasTable = len(detectTableSpans([]rune(upload.Content))) > 0
		chunks = p.chunker.Chunk(upload.Content)
	}); err != nil {
		return p.fail(ctx, upload, StageChunking, err)
	}
	if err := ctx.Err(); err != nil {
		return p.fail(ctx, upload, StageBudget, err)
	}

	var meta domain.EnrichedMetadata
	if err := runStage(StageEnrichment, func() {
		meta = p.enricher.Enrich(upload.Content, docType, entities, confidence, hasTable)
	}); err != nil {
		return p.fail(ctx, upload, StageEnrichment, err)
	}

	meta.ProcessedAt = time.Now().UTC()
	meta.ProcessingMS = time.Since(started).Milliseconds()

	return &domain.EnrichedDocument{
		Content:  upload.Content,
		Metadata: meta,
		Chunks:   chunks,
		Enhanced: true,
	}
}

// analysisTask pairs a stage name with its closure for the worker pool.
type analysisTask struct {
	stage string
	fn    func()
}

// analyze runs the two read-only analysis stages. The sequential path
// produces results identical to the pooled one; parallelism is purely a
// performance choice.
func (p *Pipeline) analyze(ctx context.Context, upload RawUpload) (domain.DocumentType, float64, domain.ExtractedEntities, string, error) {
	var (
		docType    domain.DocumentType
		confidence float64
		entities   domain.ExtractedEntities
	)

	tasks := []analysisTask{
		{StageTypeDetection, func() { docType, confidence = p.detector.Detect(upload.Content, upload.Filename) }},
		{StageEntityExtraction, func() { entities = p.extractor.Extract(upload.Content) }},
	}

	if p.cfg.Parallel {
		if stage, err := runPool(ctx, analysisWorkers, tasks); err != nil {
			return "", 0, domain.ExtractedEntities{}, stage, err
		}
	} else {
		for _, t := range tasks {
			if err := runStage(t.stage, t.fn); err != nil {
				return "", 0, domain.ExtractedEntities{}, t.stage, err
			}
			if err := ctx.Err(); err != nil {
				return "", 0, domain.ExtractedEntities{}, StageBudget, err
			}
		}
	}

	return docType, confidence, entities, "", nil
}

// fail logs the stage failure and degrades to pass-through.
func (p *Pipeline) fail(ctx context.Context, upload RawUpload, stage string, err error) *domain.EnrichedDocument {
	log.Printf("pipeline: stage %s failed for content %s, returning content unprocessed: %v", stage, upload.ID, err)
	telemetry.CaptureError(ctx, domain.NewDomainErrorWithCause(domain.ErrCodeStageProcessing, fmt.Sprintf("stage %s failed for content %s", stage, upload.ID), err))
	return passThrough(upload)
}

// passThrough returns the original content untouched.
func passThrough(upload RawUpload) *domain.EnrichedDocument {
	return &domain.EnrichedDocument{
		Content:  upload.Content,
		Enhanced: false,
	}
}

// runStage runs fn, converting panics into stage errors.
func runStage(stage string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage, r)
		}
	}()
	fn()
	return nil
}

// runPool runs tasks on a bounded worker pool, honoring the context
// budget and reporting the first failed stage.
func runPool(ctx context.Context, workers int, tasks []analysisTask) (string, error) {
	if workers > len(tasks) {
		workers = len(tasks)
	}

	type result struct {
		stage string
		err   error
	}

	taskCh := make(chan analysisTask, len(tasks))
	resultCh := make(chan result, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	for i := 0; i < workers; i++ {
		go func() {
			for t := range taskCh {
				resultCh <- result{stage: t.stage, err: runStage(t.stage, t.fn)}
			}
		}()
	}

	for range tasks {
		select {
		case r := <-resultCh:
			if r.err != nil {
				return r.stage, r.err
			}
		case <-ctx.Done():
			return StageBudget, ctx.Err()
		}
	}

	return "", nil
}
