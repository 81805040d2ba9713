package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoanguyen-dev/unitime-api/internal/models"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
)

func ymd(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseOccurrencesSingleSeasonInlineLocation(t *testing.T) {
	occs, err := ParseOccurrences("15/01/2024 - 15/05/2024:(1)Room-205   Thứ 2 tiết 1,2,3", "")
	require.NoError(t, err)
	require.Len(t, occs, 1)

	occ := occs[0]
	assert.Equal(t, ymd(2024, time.January, 15), occ.StartDate)
	assert.Equal(t, ymd(2024, time.May, 15), occ.EndDate)
	assert.Equal(t, 2, occ.Weekday)
	assert.Equal(t, 1, occ.SessionStart)
	assert.Equal(t, 3, occ.SessionEnd)
	assert.Equal(t, "Room-205", occ.Location)
}

func TestParseOccurrencesMultipleSeasonsAndClauses(t *testing.T) {
	timeText := "15/01/2024 - 15/05/2024:(1)&nbsp;Thứ 2 tiết 1,2,3&nbsp;Thứ 5 tiết 7,8" +
		"16/05/2024 - 30/06/2024:(2)&nbsp;Thứ 3 tiết 4,5"
	occs, err := ParseOccurrences(timeText, "(1)A2-305(2)B1-101")
	require.NoError(t, err)
	require.Len(t, occs, 3)

	assert.Equal(t, 2, occs[0].Weekday)
	assert.Equal(t, "A2-305", occs[0].Location)
	assert.Equal(t, 5, occs[1].Weekday)
	assert.Equal(t, 7, occs[1].SessionStart)
	assert.Equal(t, 8, occs[1].SessionEnd)
	assert.Equal(t, 3, occs[2].Weekday)
	assert.Equal(t, "B1-101", occs[2].Location)
	assert.Equal(t, ymd(2024, time.May, 16), occs[2].StartDate)
}

func TestParseOccurrencesSharedAddressSeason(t *testing.T) {
	timeText := "15/01/2024 - 15/03/2024:(1)Thứ 2 tiết 1,2" +
		"16/03/2024 - 15/05/2024:(2)Thứ 2 tiết 1,2"
	occs, err := ParseOccurrences(timeText, "(1,2)Online")
	require.NoError(t, err)
	require.Len(t, occs, 2)
	assert.Equal(t, "Online", occs[0].Location)
	assert.Equal(t, "Online", occs[1].Location)
}

func TestParseOccurrencesSundayClause(t *testing.T) {
	occs, err := ParseOccurrences("01/02/2024 - 01/04/2024:(1)Chủ nhật tiết 13,14", "")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, models.WeekdaySunday, occs[0].Weekday)
	assert.Equal(t, 13, occs[0].SessionStart)
	assert.Equal(t, 14, occs[0].SessionEnd)
}

func TestParseOccurrencesSplitsNonContiguousSessions(t *testing.T) {
	occs, err := ParseOccurrences("15/01/2024 - 15/05/2024:(1)Thứ 4 tiết 1,2,5,6", "")
	require.NoError(t, err)
	require.Len(t, occs, 2)

	assert.Equal(t, 1, occs[0].SessionStart)
	assert.Equal(t, 2, occs[0].SessionEnd)
	assert.Equal(t, 5, occs[1].SessionStart)
	assert.Equal(t, 6, occs[1].SessionEnd)
	for _, occ := range occs {
		assert.Equal(t, 4, occ.Weekday)
	}
}

func TestParseOccurrencesNoGrammarMatch(t *testing.T) {
	for _, raw := range []string{"", "Chưa có lịch", "tiết 1,2,3", "15/01/2024"} {
		_, err := ParseOccurrences(raw, "")
		assert.True(t, appErrors.Is(err, appErrors.ErrNoSchedule), "input %q", raw)
	}
}

func TestParseOccurrencesSkipsMalformedSeason(t *testing.T) {
	// Second season has an inverted date range and must be dropped alone.
	timeText := "15/01/2024 - 15/03/2024:(1)Thứ 2 tiết 1,2" +
		"30/06/2024 - 16/05/2024:(2)Thứ 3 tiết 4,5"
	occs, err := ParseOccurrences(timeText, "")
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, 2, occs[0].Weekday)
}

func TestParseOccurrencesSkipsNonNumericSessions(t *testing.T) {
	_, err := ParseOccurrences("15/01/2024 - 15/05/2024:(1)Thứ 2 tiết a,b", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSchedule))
}

func TestContiguousRunsDeduplicatesAndSorts(t *testing.T) {
	runs := contiguousRuns([]int{3, 1, 2, 2, 9, 8})
	require.Len(t, runs, 2)
	assert.Equal(t, [2]int{1, 3}, runs[0])
	assert.Equal(t, [2]int{8, 9}, runs[1])
}

func TestWeekdayCodeEncoding(t *testing.T) {
	// 2024-01-15 is a Monday, 2024-01-21 a Sunday.
	assert.Equal(t, 2, models.WeekdayCode(ymd(2024, time.January, 15)))
	assert.Equal(t, 7, models.WeekdayCode(ymd(2024, time.January, 20)))
	assert.Equal(t, 8, models.WeekdayCode(ymd(2024, time.January, 21)))
}

func TestSessionShiftBoundaries(t *testing.T) {
	assert.Equal(t, models.ShiftMorning, models.SessionShift(1))
	assert.Equal(t, models.ShiftMorning, models.SessionShift(6))
	assert.Equal(t, models.ShiftAfternoon, models.SessionShift(7))
	assert.Equal(t, models.ShiftAfternoon, models.SessionShift(12))
	assert.Equal(t, models.ShiftEvening, models.SessionShift(13))
	assert.Equal(t, models.ShiftEvening, models.SessionShift(16))
}
