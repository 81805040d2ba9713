package service

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/models"
	"github.com/khoanguyen-dev/unitime-api/pkg/config"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
)

// SpreadsheetService ingests institution workbook templates. A merged block
// of rows in the date column delimits one section: the block label carries
// the date range, the block's first row carries major/subject/section
// metadata, and every row contributes one weekday+session clause. Offsets
// come from configuration so other institutions' templates can be mapped
// without code changes.
type SpreadsheetService struct {
	catalogs *CatalogService
	template config.SpreadsheetConfig
	logger   *zap.Logger
}

// NewSpreadsheetService wires the xlsx ingestion adapter.
func NewSpreadsheetService(catalogs *CatalogService, template config.SpreadsheetConfig, logger *zap.Logger) *SpreadsheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	applyTemplateDefaults(&template)
	return &SpreadsheetService{catalogs: catalogs, template: template, logger: logger}
}

// Import parses a workbook and persists the resulting catalog. Blocks whose
// date label or rows fail to parse are skipped, not fatal.
func (s *SpreadsheetService) Import(ctx context.Context, title string, r io.Reader) (*dto.ImportCatalogResponse, error) {
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable workbook")
	}
	defer f.Close() //nolint:errcheck

	sheet := s.template.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, appErrors.Clone(appErrors.ErrEmptyDataset, "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read sheet rows")
	}

	blocks, err := s.sectionBlocks(f, sheet, rows)
	if err != nil {
		return nil, err
	}

	catalog := &models.Catalog{
		Title:  title,
		Majors: make(map[string]models.SubjectMap),
	}
	skipped := 0
	for _, block := range blocks {
		section, major, subject, ok := s.parseBlock(rows, block)
		if !ok {
			skipped++
			continue
		}
		addSection(catalog, major, subject, section)
	}

	minDate, maxDate, ok := models.DateBounds(catalog.Occurrences())
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrEmptyDataset, "no valid rows found")
	}
	catalog.MinDate, catalog.MaxDate = minDate, maxDate
	catalog.ID = uuid.NewString()

	if err := s.catalogs.persist(ctx, catalog, models.CatalogSourceSpreadsheet); err != nil {
		return nil, err
	}

	majors, subjects, sections := catalog.Counts()
	s.catalogs.metrics.ObserveImport(models.CatalogSourceSpreadsheet, sections, skipped)
	s.logger.Sugar().Infow("spreadsheet imported",
		"catalog_id", catalog.ID, "sheet", sheet, "sections", sections, "skipped_blocks", skipped)

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

// sectionBlock is one merged-cell delimited run of rows (1-based, inclusive).
type sectionBlock struct {
	startRow int
	endRow   int
}

// sectionBlocks derives block geometry from merged cells in the date column;
// a non-empty date cell outside any merge forms a single-row block.
func (s *SpreadsheetService) sectionBlocks(f *excelize.File, sheet string, rows [][]string) ([]sectionBlock, error) {
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read merged cells")
	}

	covered := make(map[int]bool)
	var blocks []sectionBlock
	for _, merge := range merges {
		startCol, startRow, err := excelize.CellNameToCoordinates(merge.GetStartAxis())
		if err != nil {
			continue
		}
		_, endRow, err := excelize.CellNameToCoordinates(merge.GetEndAxis())
		if err != nil {
			continue
		}
		if startCol != s.template.DateCol || startRow < s.template.DataStartRow {
			continue
		}
		blocks = append(blocks, sectionBlock{startRow: startRow, endRow: endRow})
		for r := startRow; r <= endRow; r++ {
			covered[r] = true
		}
	}

	for r := s.template.DataStartRow; r <= len(rows); r++ {
		if covered[r] {
			continue
		}
		if cellAt(rows, r, s.template.DateCol) != "" {
			blocks = append(blocks, sectionBlock{startRow: r, endRow: r})
		}
	}

	sortBlocks(blocks)
	return blocks, nil
}

func (s *SpreadsheetService) parseBlock(rows [][]string, block sectionBlock) (models.Section, string, string, bool) {
	t := s.template

	label := cellAt(rows, block.startRow, t.DateCol)
	startDate, endDate, ok := parseDateRangeLabel(label)
	if !ok {
		return models.Section{}, "", "", false
	}

	major := cellAt(rows, block.startRow, t.MajorCol)
	subject := cellAt(rows, block.startRow, t.SubjectCol)
	sectionID := cellAt(rows, block.startRow, t.SectionCol)
	if major == "" || subject == "" || sectionID == "" {
		return models.Section{}, "", "", false
	}

	var occurrences []models.Occurrence
	for r := block.startRow; r <= block.endRow; r++ {
		weekday, ok := parseWeekdayLabel(cellAt(rows, r, t.WeekdayCol))
		if !ok {
			continue
		}
		sessions := parseIntList(cellAt(rows, r, t.SessionCol))
		for _, run := range contiguousRuns(sessions) {
			occ := models.Occurrence{
				StartDate:    startDate,
				EndDate:      endDate,
				Weekday:      weekday,
				SessionStart: run[0],
				SessionEnd:   run[1],
				Location:     cellAt(rows, r, t.RoomCol),
			}
			if occ.Valid() {
				occurrences = append(occurrences, occ)
			}
		}
	}
	if len(occurrences) == 0 {
		return models.Section{}, "", "", false
	}

	return models.Section{
		ID:          sectionID,
		Teacher:     cellAt(rows, block.startRow, t.TeacherCol),
		Occurrences: occurrences,
	}, major, subject, true
}

// parseDateRangeLabel reads "dd/mm/yyyy - dd/mm/yyyy" block labels.
func parseDateRangeLabel(label string) (start, end time.Time, ok bool) {
	parts := strings.SplitN(label, "-", 2)
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, false
	}
	start, startErr := parseDayMonthYear(parts[0])
	end, endErr := parseDayMonthYear(parts[1])
	if startErr != nil || endErr != nil || start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// parseWeekdayLabel maps a weekday cell ("Thứ 2", "5", "CN", "Chủ nhật")
// onto the portal weekday encoding.
func parseWeekdayLabel(raw string) (int, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return 0, false
	}
	if value == "cn" || strings.Contains(value, "chủ nhật") || strings.Contains(value, "chu nhat") {
		return models.WeekdaySunday, true
	}
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(value, "thứ"), "thu"))
	day, err := strconv.Atoi(value)
	if err != nil || day < models.WeekdayMonday || day > models.WeekdaySunday {
		return 0, false
	}
	return day, true
}

// cellAt reads a 1-based (row, col) cell from GetRows output.
func cellAt(rows [][]string, row, col int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	cells := rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[col-1])
}

func sortBlocks(blocks []sectionBlock) {
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].startRow < blocks[j].startRow
	})
}

func applyTemplateDefaults(t *config.SpreadsheetConfig) {
	if t.DataStartRow < 1 {
		t.DataStartRow = 3
	}
	if t.DateCol < 1 {
		t.DateCol = 1
	}
	if t.MajorCol < 1 {
		t.MajorCol = 2
	}
	if t.SubjectCol < 1 {
		t.SubjectCol = 3
	}
	if t.SectionCol < 1 {
		t.SectionCol = 4
	}
	if t.TeacherCol < 1 {
		t.TeacherCol = 5
	}
	if t.WeekdayCol < 1 {
		t.WeekdayCol = 6
	}
	if t.SessionCol < 1 {
		t.SessionCol = 7
	}
	if t.RoomCol < 1 {
		t.RoomCol = 8
	}
}
