package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CatalogRecord is the persisted form of an imported catalog. The full
// major/subject/section tree is stored as a JSONB payload; the derived term
// bounds are lifted into columns for querying.
type CatalogRecord struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Source    string         `db:"source" json:"source"`
	MinDate   time.Time      `db:"min_date" json:"min_date"`
	MaxDate   time.Time      `db:"max_date" json:"max_date"`
	Payload   types.JSONText `db:"payload" json:"-"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Catalog import sources.
const (
	CatalogSourcePortal      = "PORTAL"
	CatalogSourceSpreadsheet = "SPREADSHEET"
)

// Pagination carries list paging metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
