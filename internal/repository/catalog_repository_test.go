package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoanguyen-dev/unitime-api/internal/models"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestCatalogRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository(db)
	mock.ExpectExec("INSERT INTO catalogs").
		WithArgs("cat-1", "Spring 2024", models.CatalogSourcePortal,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.CatalogRecord{
		ID:      "cat-1",
		Title:   "Spring 2024",
		Source:  models.CatalogSourcePortal,
		MinDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		MaxDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Payload: types.JSONText(`{"majors":{}}`),
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.False(t, record.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "source", "min_date", "max_date", "payload", "created_at", "updated_at"}).
		AddRow("cat-1", "Spring 2024", models.CatalogSourcePortal,
			time.Now(), time.Now(), []byte(`{"majors":{}}`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, title, source").
		WithArgs("cat-1").
		WillReturnRows(rows)

	record, err := repo.FindByID(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Equal(t, "Spring 2024", record.Title)
	assert.JSONEq(t, `{"majors":{}}`, string(record.Payload))
}

func TestCatalogRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository(db)
	mock.ExpectQuery("SELECT id, title, source").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.Error(t, err)
}

func TestCatalogRepositoryList(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()

	repo := NewCatalogRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "source", "min_date", "max_date", "payload", "created_at", "updated_at"}).
		AddRow("cat-2", "Fall 2024", models.CatalogSourceSpreadsheet,
			time.Now(), time.Now(), []byte(`{}`), time.Now(), time.Now()).
		AddRow("cat-1", "Spring 2024", models.CatalogSourcePortal,
			time.Now(), time.Now(), []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, title, source").WithArgs(20, 0).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM catalogs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	records, total, err := repo.List(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, "cat-2", records[0].ID)
}
