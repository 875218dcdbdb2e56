package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/cloo-solutions/corpusd/internal/pagination"
	"github.com/cloo-solutions/corpusd/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const contentColumns = `id, text_content, metadata, provenance, row_index, fingerprint, archive_key, created_at, updated_at`

type ContentRepository struct {
	db dbtx
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

func NewContentRepositoryWithTx(tx pgx.Tx) *ContentRepository {
	return &ContentRepository{db: tx}
}

func (r *ContentRepository) Create(ctx context.Context, unit *domain.ContentUnit) error {
	metadataJSON, err := marshalMetadata(unit.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO content_units (id, text_content, metadata, provenance, row_index, fingerprint, archive_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		unit.ID, unit.Text, metadataJSON, unit.Provenance, unit.RowIndex,
		nullableString(unit.Fingerprint), nullableString(unit.ArchiveKey), unit.CreatedAt, unit.UpdatedAt,
	)
	return err
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*domain.ContentUnit, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+contentColumns+` FROM content_units WHERE id = $1`,
		id,
	)
	unit, err := scanContentUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, err
	}
	return unit, nil
}

func (r *ContentRepository) ListByProvenance(ctx context.Context, provenance domain.Provenance) ([]*domain.ContentUnit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contentColumns+` FROM content_units WHERE provenance = $1 ORDER BY created_at ASC, id ASC`,
		provenance,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContentUnits(rows)
}

func (r *ContentRepository) ListWithCursor(ctx context.Context, provenance domain.Provenance, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+contentColumns+`
			 FROM content_units
			 WHERE ($1 = '' OR provenance = $1) AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			provenance, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+contentColumns+`
			 FROM content_units
			 WHERE ($1 = '' OR provenance = $1)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			provenance, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanContentUnits(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.ContentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM content_units WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

// DeleteChildren removes the chunk units persisted under an original
// upload document.
func (r *ContentRepository) DeleteChildren(ctx context.Context, originalID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM content_units WHERE metadata->>'original_id' = $1`,
		originalID,
	)
	return err
}

func (r *ContentRepository) DeleteByRowIndex(ctx context.Context, rowIndex int) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM content_units WHERE provenance = $1 AND row_index = $2`,
		domain.ProvenanceBulk, rowIndex,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

// GetBulkFingerprints returns the stored fingerprint of every bulk row,
// keyed by row index. This is the persisted side of a sync diff.
func (r *ContentRepository) GetBulkFingerprints(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT row_index, fingerprint
		 FROM content_units
		 WHERE provenance = $1 AND row_index IS NOT NULL AND fingerprint IS NOT NULL`,
		domain.ProvenanceBulk,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fingerprints := make(map[int]string)
	for rows.Next() {
		var rowIndex int
		var fingerprint string
		if err := rows.Scan(&rowIndex, &fingerprint); err != nil {
			return nil, err
		}
		fingerprints[rowIndex] = fingerprint
	}
	return fingerprints, rows.Err()
}

func (r *ContentRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE content_units SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

func (r *ContentRepository) SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]*service.ScoredUnit, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT `+contentColumns+`,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM content_units
		 WHERE embedding IS NOT NULL
		 ORDER BY score DESC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.ScoredUnit
	for rows.Next() {
		var unit domain.ContentUnit
		var metadataJSON []byte
		var rowIndex *int
		var fingerprint, archiveKey *string
		var score float64
		if err := rows.Scan(&unit.ID, &unit.Text, &metadataJSON, &unit.Provenance, &rowIndex,
			&fingerprint, &archiveKey, &unit.CreatedAt, &unit.UpdatedAt, &score); err != nil {
			return nil, err
		}
		if err := applyScanned(&unit, metadataJSON, rowIndex, fingerprint, archiveKey); err != nil {
			return nil, err
		}
		results = append(results, &service.ScoredUnit{Unit: &unit, Score: score})
	}
	return results, rows.Err()
}

func scanContentUnit(row pgx.Row) (*domain.ContentUnit, error) {
	var unit domain.ContentUnit
	var metadataJSON []byte
	var rowIndex *int
	var fingerprint, archiveKey *string
	if err := row.Scan(&unit.ID, &unit.Text, &metadataJSON, &unit.Provenance, &rowIndex,
		&fingerprint, &archiveKey, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return nil, err
	}
	if err := applyScanned(&unit, metadataJSON, rowIndex, fingerprint, archiveKey); err != nil {
		return nil, err
	}
	return &unit, nil
}

func scanContentUnits(rows pgx.Rows) ([]*domain.ContentUnit, error) {
	var results []*domain.ContentUnit
	for rows.Next() {
		unit, err := scanContentUnit(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, unit)
	}
	return results, rows.Err()
}

func applyScanned(unit *domain.ContentUnit, metadataJSON []byte, rowIndex *int, fingerprint, archiveKey *string) error {
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &unit.Metadata); err != nil {
			return err
		}
	}
	unit.RowIndex = rowIndex
	if fingerprint != nil {
		unit.Fingerprint = *fingerprint
	}
	if archiveKey != nil {
		unit.ArchiveKey = *archiveKey
	}
	return nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(metadata)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
