package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/khoanguyen-dev/unitime-api/internal/models"
)

// CatalogRepository persists imported catalogs.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Create inserts a catalog record with its JSONB payload.
func (r *CatalogRepository) Create(ctx context.Context, record *models.CatalogRecord) error {
	const query = `INSERT INTO catalogs (id, title, source, min_date, max_date, payload, created_at, updated_at)
VALUES (:id, :title, :source, :min_date, :max_date, :payload, :created_at, :updated_at)`
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	return nil
}

// FindByID fetches a single catalog record.
func (r *CatalogRepository) FindByID(ctx context.Context, id string) (*models.CatalogRecord, error) {
	const query = `SELECT id, title, source, min_date, max_date, payload, created_at, updated_at
FROM catalogs WHERE id = $1`
	var record models.CatalogRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns catalog summaries, newest first, without payloads.
func (r *CatalogRepository) List(ctx context.Context, limit, offset int) ([]models.CatalogRecord, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, title, source, min_date, max_date, '{}'::jsonb AS payload, created_at, updated_at
FROM catalogs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	var records []models.CatalogRecord
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list catalogs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM catalogs`); err != nil {
		return nil, 0, fmt.Errorf("count catalogs: %w", err)
	}
	return records, total, nil
}
