package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/models"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/export"
)

// SectionEntry pairs a section with its subject identity for grid labels and
// conflict attribution.
type SectionEntry struct {
	Major   string
	Subject string
	Section models.Section
}

// TimetableService materializes calendar grids from chosen sections.
type TimetableService struct {
	catalogs *CatalogService
	logger   *zap.Logger
}

// NewTimetableService wires the grid materializer.
func NewTimetableService(catalogs *CatalogService, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{catalogs: catalogs, logger: logger}
}

// Timetable resolves the requested sections inside a catalog and returns the
// materialized grid plus its conflicting cells.
func (s *TimetableService) Timetable(ctx context.Context, catalogID string, req dto.TimetableRequest) (*dto.TimetableResponse, error) {
	entries, err := s.resolveSections(ctx, catalogID, req.Sections)
	if err != nil {
		return nil, err
	}

	grid, err := BuildGrid(entries)
	if err != nil {
		return nil, err
	}
	conflicts := ConflictCells(entries)

	return &dto.TimetableResponse{
		DataSubject: grid.Subject,
		Weeks:       grid.Weeks,
		Conflicts:   conflicts,
	}, nil
}

// ExportDataset renders the grid of the requested sections into a tabular
// dataset: one row per day, a date column plus the 16 session columns.
func (s *TimetableService) ExportDataset(ctx context.Context, catalogID string, selectors []dto.SectionSelector) (export.Dataset, string, error) {
	entries, err := s.resolveSections(ctx, catalogID, selectors)
	if err != nil {
		return export.Dataset{}, "", err
	}
	grid, err := BuildGrid(entries)
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := make([]string, 0, models.SessionsPerDay+1)
	headers = append(headers, "Date")
	for i := 1; i <= models.SessionsPerDay; i++ {
		headers = append(headers, fmt.Sprintf("S%d", i))
	}

	dataset := export.Dataset{Headers: headers}
	for _, week := range grid.Weeks {
		for _, day := range week {
			row := make([]string, len(headers))
			row[0] = time.Unix(day.DateEpoch, 0).UTC().Format("2006-01-02")
			for i, slot := range day.Slots {
				if slot.Head() {
					row[i+1] = slot.Content.Subject
				}
			}
			dataset.Rows = append(dataset.Rows, row)
		}
	}
	return dataset, grid.Subject, nil
}

func (s *TimetableService) resolveSections(ctx context.Context, catalogID string, selectors []dto.SectionSelector) ([]SectionEntry, error) {
	catalog, err := s.catalogs.Get(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	entries := make([]SectionEntry, 0, len(selectors))
	for _, sel := range selectors {
		section, ok := catalog.Section(sel.Major, sel.Subject, sel.SectionID)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("section %s not found for %s / %s", sel.SectionID, sel.Major, sel.Subject))
		}
		entries = append(entries, SectionEntry{Major: sel.Major, Subject: sel.Subject, Section: section})
	}
	return entries, nil
}

// BuildGrid expands the entries' occurrences into a week/day/session matrix
// spanning the occurrence set's own [min, max] date bounds. A week opens at
// the very first day and at every Monday after that, so the first and last
// weeks may be partial. An empty occurrence set cannot be bounded and
// reports an empty-dataset failure.
func BuildGrid(entries []SectionEntry) (*models.Grid, error) {
	var occurrences []models.Occurrence
	for _, entry := range entries {
		occurrences = append(occurrences, entry.Section.Occurrences...)
	}
	minDate, maxDate, ok := models.DateBounds(occurrences)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrEmptyDataset, "no schedule data to materialize")
	}

	grid := &models.Grid{Subject: gridSubject(entries)}
	var week models.Week
	for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
		if models.WeekdayCode(day) == models.WeekdayMonday && len(week) > 0 {
			grid.Weeks = append(grid.Weeks, week)
			week = nil
		}
		week = append(week, materializeDay(day, entries))
	}
	if len(week) > 0 {
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid, nil
}

// materializeDay fills the fixed session axis for one calendar day. The
// first occurrence starting at a slot claims the head cell; an occurrence
// covering but not starting there leaves a continuation placeholder so
// renderers can merge the run. Overlaps are resolved head-first here; real
// conflict accounting lives in the planner's evaluator.
func materializeDay(day time.Time, entries []SectionEntry) models.DayCell {
	cell := models.DayCell{
		DateEpoch: day.Unix(),
		Slots:     make([]models.SlotCell, models.SessionsPerDay),
	}
	for slot := 1; slot <= models.SessionsPerDay; slot++ {
		cell.Slots[slot-1] = models.EmptySlot()
		for _, entry := range entries {
			head, covered := slotClaim(entry, day, slot)
			if head != nil {
				cell.Slots[slot-1] = *head
				break
			}
			if covered {
				cell.Slots[slot-1] = models.ContinuationSlot()
			}
		}
	}
	return cell
}

// slotClaim reports how an entry relates to a (day, slot) cell: a head cell
// when one of its occurrences starts exactly there, or covered when the
// slot sits inside a longer run.
func slotClaim(entry SectionEntry, day time.Time, slot int) (*models.SlotCell, bool) {
	covered := false
	for _, occ := range entry.Section.Occurrences {
		if !occ.Covers(day, slot) {
			continue
		}
		if occ.SessionStart == slot {
			return &models.SlotCell{
				Content: &models.SlotContent{
					Subject:  entry.Subject,
					Section:  entry.Section.ID,
					Teacher:  entry.Section.Teacher,
					Location: occ.Location,
				},
				Length: occ.Length(),
			}, true
		}
		covered = true
	}
	return nil, covered
}

func gridSubject(entries []SectionEntry) string {
	if len(entries) == 1 {
		return entries[0].Subject
	}
	names := make([]string, 0, len(entries))
	seen := make(map[string]bool)
	for _, entry := range entries {
		if seen[entry.Subject] {
			continue
		}
		seen[entry.Subject] = true
		names = append(names, entry.Subject)
	}
	return strings.Join(names, ", ")
}
