package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/telemetry"
)

// SourceReaderInterface loads the bulk corpus source file.
type SourceReaderInterface interface {
	Load() ([]*domain.KnowledgeRow, int, error)
	Path() string
}

// SyncRunRepositoryInterface defines the repository interface for sync run history
type SyncRunRepositoryInterface interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	Update(ctx context.Context, run *domain.SyncRun) error
	GetLatest(ctx context.Context) (*domain.SyncRun, error)
	List(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

// SyncResult reports one finished sync pass.
type SyncResult struct {
	Run  *domain.SyncRun
	Plan *domain.SyncPlan
}

// SyncService reconciles the stored bulk corpus against the source file.
// A pass diffs fingerprints, then touches only the rows the diff names:
// added rows are inserted, changed rows are replaced as an atomic
// delete+insert pair, deleted rows are removed. At most one pass runs at
// a time; overlapping triggers are refused with ErrSyncInProgress.
type SyncService struct {
	source      SourceReaderInterface
	contentRepo ContentRepositoryInterface
	txRunner    TxRunner
	syncRunRepo SyncRunRepositoryInterface
	uuidGen     UUIDGenerator

	mu sync.Mutex
}

// NewSyncService creates a new SyncService instance
func NewSyncService(
	source SourceReaderInterface,
	contentRepo ContentRepositoryInterface,
	txRunner TxRunner,
	syncRunRepo SyncRunRepositoryInterface,
) *SyncService {
	return &SyncService{
		source:      source,
		contentRepo: contentRepo,
		txRunner:    txRunner,
		syncRunRepo: syncRunRepo,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewSyncServiceWithUUIDGen creates a new SyncService with custom UUID generator (for testing)
func NewSyncServiceWithUUIDGen(
	source SourceReaderInterface,
	contentRepo ContentRepositoryInterface,
	txRunner TxRunner,
	syncRunRepo SyncRunRepositoryInterface,
	uuidGen UUIDGenerator,
) *SyncService {
	return &SyncService{
		source:      source,
		contentRepo: contentRepo,
		txRunner:    txRunner,
		syncRunRepo: syncRunRepo,
		uuidGen:     uuidGen,
	}
}

// Sync runs one reconciliation pass. A source load failure aborts the
// pass before any store mutation; a failure on a single row rolls back
// that row's pair and the pass moves on, collecting the error into the
// run record.
func (s *SyncService) Sync(ctx context.Context, trigger domain.SyncTrigger) (*SyncResult, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "SyncService.Sync", telemetry.SpanAttributes{
		Operation: "sync",
	})
	defer span.End()

	run := domain.NewSyncRun(s.uuidGen.NewString(), trigger, time.Now().UTC())
	if err := s.syncRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	plan, passErr := s.runPass(ctx, run)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if passErr != nil {
		run.Status = domain.SyncRunStatusFailed
		run.Error = passErr.Error()
	} else {
		run.Status = domain.SyncRunStatusCompleted
	}

	if err := s.syncRunRepo.Update(ctx, run); err != nil {
		log.Printf("sync: failed to record run %s: %v", run.ID, err)
	}

	if passErr != nil {
		telemetry.CaptureError(ctx, passErr)
		return nil, passErr
	}

	log.Printf("sync: pass %s done (trigger=%s added=%d changed=%d deleted=%d unchanged=%d)",
		run.ID, run.Trigger, run.Added, run.Changed, run.Deleted, run.Unchanged)

	return &SyncResult{Run: run, Plan: plan}, nil
}

// Run performs one pass and reports only the error. This is the shape
// the source watcher calls through.
func (s *SyncService) Run(ctx context.Context, trigger domain.SyncTrigger) error {
	_, err := s.Sync(ctx, trigger)
	return err
}

// Status returns the most recent sync run.
func (s *SyncService) Status(ctx context.Context) (*domain.SyncRun, error) {
	return s.syncRunRepo.GetLatest(ctx)
}

// History returns recent sync runs, newest first.
func (s *SyncService) History(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return s.syncRunRepo.List(ctx, limit)
}

func (s *SyncService) runPass(ctx context.Context, run *domain.SyncRun) (*domain.SyncPlan, error) {
	rows, skipped, err := s.source.Load()
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Printf("sync: skipped %d malformed rows in %s", skipped, s.source.Path())
	}

	fresh := make(map[int]string, len(rows))
	byIndex := make(map[int]*domain.KnowledgeRow, len(rows))
	for _, row := range rows {
		fresh[row.Index] = row.Fingerprint
		byIndex[row.Index] = row
	}

	stored, err := s.contentRepo.GetBulkFingerprints(ctx)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to read stored fingerprints", err)
	}

	plan := domain.BuildSyncPlan(fresh, stored)

	var rowErrs []error

	for _, idx := range plan.Added {
		if err := s.insertRow(ctx, byIndex[idx]); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		run.Added++
	}

	for _, idx := range plan.Changed {
		if err := s.replaceRow(ctx, byIndex[idx]); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		run.Changed++
	}

	for _, idx := range plan.Deleted {
		if err := s.contentRepo.DeleteByRowIndex(ctx, idx); err != nil && !errors.Is(err, domain.ErrContentNotFound) {
			rowErrs = append(rowErrs, domain.NewDomainErrorWithCause(domain.ErrCodeStoreTransaction, fmt.Sprintf("row %d delete failed", idx), err))
			continue
		}
		run.Deleted++
	}

	run.Unchanged = len(plan.Unchanged)

	if len(rowErrs) > 0 {
		joined := errors.Join(rowErrs...)
		run.Error = joined.Error()
		log.Printf("sync: %d of %d mutations failed: %v", len(rowErrs), plan.Mutations(), joined)
		telemetry.CaptureError(ctx, joined)
	}

	return plan, nil
}

// insertRow persists one new bulk row with its embedding job.
func (s *SyncService) insertRow(ctx context.Context, row *domain.KnowledgeRow) error {
	now := time.Now().UTC()
	unit := s.unitFromRow(row, now)
	if err := domain.ValidateContentUnit(unit); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreTransaction, fmt.Sprintf("row %d invalid", row.Index), err)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Content().Create(ctx, unit); err != nil {
			return err
		}
		return queueEmbeddingJob(ctx, repos.EmbeddingJobs(), s.uuidGen, unit.ID, now)
	})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreTransaction, fmt.Sprintf("row %d insert failed", row.Index), err)
	}
	return nil
}

// replaceRow applies a changed row as one transaction: the stale unit
// goes away and the fresh one lands, or neither does.
func (s *SyncService) replaceRow(ctx context.Context, row *domain.KnowledgeRow) error {
	now := time.Now().UTC()
	unit := s.unitFromRow(row, now)
	if err := domain.ValidateContentUnit(unit); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreTransaction, fmt.Sprintf("row %d invalid", row.Index), err)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Content().DeleteByRowIndex(ctx, row.Index); err != nil {
			return err
		}
		if err := repos.Content().Create(ctx, unit); err != nil {
			return err
		}
		return queueEmbeddingJob(ctx, repos.EmbeddingJobs(), s.uuidGen, unit.ID, now)
	})
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeStoreTransaction, fmt.Sprintf("row %d replace failed", row.Index), err)
	}
	return nil
}

func (s *SyncService) unitFromRow(row *domain.KnowledgeRow, now time.Time) *domain.ContentUnit {
	idx := row.Index
	unit := domain.NewContentUnit(s.uuidGen.NewString(), row.Text(), row.MetadataMap(), domain.ProvenanceBulk, now)
	unit.RowIndex = &idx
	unit.Fingerprint = row.Fingerprint
	return unit
}
