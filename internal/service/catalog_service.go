package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/models"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
)

// Scraped portal tables carry a fixed 9-column layout.
const (
	colSectionID = iota
	colSubject
	colTimeText
	colAddressText
	colTeacher
	colEnrolled
	colRegistered
	colCredits
	colNote

	portalRowWidth = 9
)

type catalogStore interface {
	Create(ctx context.Context, record *models.CatalogRecord) error
	FindByID(ctx context.Context, id string) (*models.CatalogRecord, error)
	List(ctx context.Context, limit, offset int) ([]models.CatalogRecord, int, error)
}

// CatalogService builds catalogs from scraped portal rows and serves them
// back to the timetable and planner features.
type CatalogService struct {
	store     catalogStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCatalogService wires catalog dependencies.
func NewCatalogService(store catalogStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, validator: validate, logger: logger}
}

// WithMetrics attaches import instrumentation.
func (s *CatalogService) WithMetrics(metrics *MetricsService) *CatalogService {
	s.metrics = metrics
	return s
}

// ImportRows builds and persists a catalog from scraped portal tables,
// dropping footer and unparseable rows while keeping the rest of the batch.
func (s *CatalogService) ImportRows(ctx context.Context, req dto.ImportCatalogRequest) (*dto.ImportCatalogResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid catalog import payload")
	}

	catalog := &models.Catalog{
		Title:  req.Title,
		Majors: make(map[string]models.SubjectMap),
	}
	skipped := 0
	for _, major := range req.Majors {
		for _, row := range major.Rows {
			section, subject, ok := parsePortalRow(row)
			if !ok {
				skipped++
				continue
			}
			addSection(catalog, major.Name, subject, section)
		}
	}

	minDate, maxDate, ok := models.DateBounds(catalog.Occurrences())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrEmptyDataset, "no valid rows found")
	}
	catalog.MinDate, catalog.MaxDate = minDate, maxDate
	catalog.ID = uuid.NewString()

	if err := s.persist(ctx, catalog, models.CatalogSourcePortal); err != nil {
		return nil, err
	}

	majors, subjects, sections := catalog.Counts()
	s.metrics.ObserveImport(models.CatalogSourcePortal, sections, skipped)
	s.logger.Sugar().Infow("catalog imported",
		"catalog_id", catalog.ID, "majors", majors, "subjects", subjects, "sections", sections, "skipped_rows", skipped)

	return &dto.ImportCatalogResponse{
		CatalogID:   catalog.ID,
		Title:       catalog.Title,
		MinDate:     catalog.MinDate.Format("2006-01-02"),
		MaxDate:     catalog.MaxDate.Format("2006-01-02"),
		Majors:      majors,
		Subjects:    subjects,
		Sections:    sections,
		SkippedRows: skipped,
	}, nil
}

// Get loads and decodes a stored catalog.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.Catalog, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "catalog id is required")
	}
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	catalog := &models.Catalog{}
	if err := json.Unmarshal(record.Payload, catalog); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode catalog payload")
	}
	catalog.ID = record.ID
	return catalog, nil
}

// List pages through stored catalog summaries, newest first.
func (s *CatalogService) List(ctx context.Context, page, pageSize int) ([]dto.CatalogSummary, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	records, total, err := s.store.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalogs")
	}
	summaries := make([]dto.CatalogSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, dto.CatalogSummary{
			CatalogID: record.ID,
			Title:     record.Title,
			Source:    record.Source,
			MinDate:   record.MinDate.Format("2006-01-02"),
			MaxDate:   record.MaxDate.Format("2006-01-02"),
			CreatedAt: record.CreatedAt.Format(time.RFC3339),
		})
	}
	return summaries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListSubjects pages through the subjects of a catalog in deterministic
// major/subject order.
func (s *CatalogService) ListSubjects(ctx context.Context, id string, query dto.SubjectListQuery) ([]dto.SubjectSummary, *models.Pagination, error) {
	catalog, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var all []dto.SubjectSummary
	majors := make([]string, 0, len(catalog.Majors))
	for major := range catalog.Majors {
		majors = append(majors, major)
	}
	sort.Strings(majors)
	for _, major := range majors {
		subjects := make([]string, 0, len(catalog.Majors[major]))
		for subject := range catalog.Majors[major] {
			subjects = append(subjects, subject)
		}
		sort.Strings(subjects)
		for _, subject := range subjects {
			sections := catalog.Sections(models.SubjectRef{Major: major, Subject: subject})
			ids := make([]string, 0, len(sections))
			for _, section := range sections {
				ids = append(ids, section.ID)
			}
			all = append(all, dto.SubjectSummary{Major: major, Subject: subject, Sections: ids})
		}
	}

	page, pageSize := query.Page, query.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(all)}

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []dto.SubjectSummary{}, pagination, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], pagination, nil
}

func (s *CatalogService) persist(ctx context.Context, catalog *models.Catalog, source string) error {
	if s.store == nil {
		return appErrors.Clone(appErrors.ErrInternal, "catalog store unavailable")
	}
	payload, err := json.Marshal(catalog)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode catalog payload")
	}
	record := &models.CatalogRecord{
		ID:      catalog.ID,
		Title:   catalog.Title,
		Source:  source,
		MinDate: catalog.MinDate,
		MaxDate: catalog.MaxDate,
		Payload: types.JSONText(payload),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist catalog")
	}
	return nil
}

// parsePortalRow turns one scraped table row into a section. Footer rows and
// rows whose time field fails the schedule grammar report !ok and are
// skipped by the importer.
func parsePortalRow(row []string) (models.Section, string, bool) {
	if len(row) < portalRowWidth {
		return models.Section{}, "", false
	}
	sectionID := strings.TrimSpace(row[colSectionID])
	subject := strings.TrimSpace(row[colSubject])
	if sectionID == "" || subject == "" {
		return models.Section{}, "", false
	}
	occurrences, err := ParseOccurrences(row[colTimeText], row[colAddressText])
	if err != nil {
		return models.Section{}, "", false
	}
	credits, _ := strconv.Atoi(strings.TrimSpace(row[colCredits]))
	return models.Section{
		ID:          sectionID,
		Teacher:     strings.TrimSpace(row[colTeacher]),
		Credits:     credits,
		Note:        strings.TrimSpace(row[colNote]),
		Occurrences: occurrences,
	}, subject, true
}

func addSection(catalog *models.Catalog, major, subject string, section models.Section) {
	if catalog.Majors[major] == nil {
		catalog.Majors[major] = make(models.SubjectMap)
	}
	if catalog.Majors[major][subject] == nil {
		catalog.Majors[major][subject] = make(models.SectionMap)
	}
	catalog.Majors[major][subject][section.ID] = section
}

// catalogCacheKey derives a stable cache key for catalog-scoped responses.
func catalogCacheKey(prefix, catalogID string, parts ...string) string {
	b := strings.Builder{}
	b.WriteString(prefix)
	b.WriteString(":")
	b.WriteString(catalogID)
	for _, part := range parts {
		b.WriteString(":")
		b.WriteString(part)
	}
	return b.String()
}
