package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/pkg/config"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
)

// buildWorkbook writes a template-shaped sheet: two header rows, then a
// merged two-row block for ALG01 and a single-row block for DB01.
func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	set := func(cell string, value interface{}) {
		require.NoError(t, f.SetCellValue(sheet, cell, value))
	}

	set("A1", "Thời khóa biểu")
	set("A2", "Ngày")

	set("A3", "10/01/2024 - 31/01/2024")
	set("B3", "CS")
	set("C3", "Algorithms")
	set("D3", "ALG01")
	set("E3", "Nguyen Van A")
	set("F3", "Thứ 4")
	set("G3", "1,2,3")
	set("H3", "A2-305")
	set("F4", "Thứ 6")
	set("G4", "4,5")
	set("H4", "A2-306")
	require.NoError(t, f.MergeCell(sheet, "A3", "A4"))

	set("A5", "08/01/2024 - 29/01/2024")
	set("B5", "CS")
	set("C5", "Databases")
	set("D5", "DB01")
	set("E5", "Tran Thi B")
	set("F5", "CN")
	set("G5", "13,14")
	set("H5", "B1-101")

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newTestSpreadsheetService(t *testing.T) (*SpreadsheetService, *CatalogService) {
	t.Helper()
	store := newMemoryCatalogStore()
	catalogs := NewCatalogService(store, nil, zap.NewNop())
	return NewSpreadsheetService(catalogs, config.SpreadsheetConfig{}, zap.NewNop()), catalogs
}

func TestSpreadsheetImport(t *testing.T) {
	svc, catalogs := newTestSpreadsheetService(t)

	resp, err := svc.Import(context.Background(), "Spring 2024", buildWorkbook(t))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Majors)
	assert.Equal(t, 2, resp.Subjects)
	assert.Equal(t, 2, resp.Sections)
	assert.Equal(t, 0, resp.SkippedRows)
	assert.Equal(t, "2024-01-08", resp.MinDate)
	assert.Equal(t, "2024-01-31", resp.MaxDate)

	catalog, err := catalogs.Get(context.Background(), resp.CatalogID)
	require.NoError(t, err)

	alg, ok := catalog.Section("CS", "Algorithms", "ALG01")
	require.True(t, ok)
	assert.Equal(t, "Nguyen Van A", alg.Teacher)
	require.Len(t, alg.Occurrences, 2)
	assert.Equal(t, 4, alg.Occurrences[0].Weekday)
	assert.Equal(t, 1, alg.Occurrences[0].SessionStart)
	assert.Equal(t, 3, alg.Occurrences[0].SessionEnd)
	assert.Equal(t, "A2-305", alg.Occurrences[0].Location)
	assert.Equal(t, 6, alg.Occurrences[1].Weekday)
	assert.Equal(t, "A2-306", alg.Occurrences[1].Location)

	db, ok := catalog.Section("CS", "Databases", "DB01")
	require.True(t, ok)
	require.Len(t, db.Occurrences, 1)
	assert.Equal(t, 8, db.Occurrences[0].Weekday)
	assert.Equal(t, 13, db.Occurrences[0].SessionStart)
}

func TestSpreadsheetImportSkipsBadBlocks(t *testing.T) {
	svc, _ := newTestSpreadsheetService(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A3", "not a date range"))
	require.NoError(t, f.SetCellValue(sheet, "D3", "S1"))
	require.NoError(t, f.SetCellValue(sheet, "A4", "08/01/2024 - 29/01/2024"))
	require.NoError(t, f.SetCellValue(sheet, "B4", "CS"))
	require.NoError(t, f.SetCellValue(sheet, "C4", "Databases"))
	require.NoError(t, f.SetCellValue(sheet, "D4", "DB01"))
	require.NoError(t, f.SetCellValue(sheet, "F4", "Thứ 2"))
	require.NoError(t, f.SetCellValue(sheet, "G4", "1,2"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	resp, err := svc.Import(context.Background(), "Partial", buf)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Sections)
	assert.Equal(t, 1, resp.SkippedRows)
}

func TestSpreadsheetImportEmptyWorkbook(t *testing.T) {
	svc, _ := newTestSpreadsheetService(t)

	f := excelize.NewFile()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	_, err = svc.Import(context.Background(), "Empty", buf)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrEmptyDataset))
}

func TestSpreadsheetImportRejectsGarbage(t *testing.T) {
	svc, _ := newTestSpreadsheetService(t)

	_, err := svc.Import(context.Background(), "Bad", strings.NewReader("not an xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Import(context.Background(), "", strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestParseWeekdayLabel(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Thứ 2", 2, true},
		{"thứ 7", 7, true},
		{"5", 5, true},
		{"CN", 8, true},
		{"Chủ nhật", 8, true},
		{"Thứ 9", 0, false},
		{"", 0, false},
		{"weekday", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseWeekdayLabel(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseDateRangeLabel(t *testing.T) {
	start, end, ok := parseDateRangeLabel("10/01/2024 - 31/01/2024")
	require.True(t, ok)
	assert.Equal(t, date(t, "2024-01-10"), start)
	assert.Equal(t, date(t, "2024-01-31"), end)

	_, _, ok = parseDateRangeLabel("31/01/2024 - 10/01/2024")
	assert.False(t, ok)
	_, _, ok = parseDateRangeLabel("just text")
	assert.False(t, ok)
}

func TestSortBlocksOrdersByStartRow(t *testing.T) {
	blocks := []sectionBlock{
		{startRow: 9, endRow: 11},
		{startRow: 3, endRow: 5},
		{startRow: 6, endRow: 8},
	}
	sortBlocks(blocks)
	assert.Equal(t, 3, blocks[0].startRow)
	assert.Equal(t, 6, blocks[1].startRow)
	assert.Equal(t, 9, blocks[2].startRow)
}
