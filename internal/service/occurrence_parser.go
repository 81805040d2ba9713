package service

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/khoanguyen-dev/unitime-api/internal/models"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
)

// The portal's time field packs one or more "seasons" (date-range variants)
// into a single string:
//
//	15/01/2024 - 15/05/2024:(1)Thứ 2 tiết 1,2,3   Thứ 5 tiết 7,8
//	16/05/2024 - 30/06/2024:(2)Thứ 3 tiết 4,5
//
// The address field aligns locations with seasons by index: "(1)A2-305(2)Online".
// A season tagged with several indices, "(1,2)", applies to each of them.
var (
	seasonHeaderRe  = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})\s*-\s*(\d{1,2}/\d{1,2}/\d{4})\s*:\s*(?:\((\d+(?:\s*,\s*\d+)*)\))?`)
	weekdayClauseRe = regexp.MustCompile(`(?i)(?:thứ\s*(\d)|chủ\s*nhật|\bcn\b)\s*ti(?:ết|et)\s*([\d\s,;]+)`)
	seasonAddressRe = regexp.MustCompile(`\((\d+(?:\s*,\s*\d+)*)\)([^(]*)`)
)

const dayMonthYearLayout = "2/1/2006"

// ParseOccurrences turns one row's combined time and address fields into
// normalized weekly occurrences. It returns ErrNoSchedule when the time
// field does not match the season grammar at all; callers must treat that as
// "row has no usable schedule", not as a batch failure.
func ParseOccurrences(timeText, addressText string) ([]models.Occurrence, error) {
	timeText = normalizeScheduleText(timeText)
	addressText = normalizeScheduleText(addressText)

	headers := seasonHeaderRe.FindAllStringSubmatchIndex(timeText, -1)
	if len(headers) == 0 {
		return nil, appErrors.ErrNoSchedule
	}

	addresses := parseSeasonAddresses(addressText)

	var occurrences []models.Occurrence
	for i, header := range headers {
		startDate, startErr := parseDayMonthYear(timeText[header[2]:header[3]])
		endDate, endErr := parseDayMonthYear(timeText[header[4]:header[5]])
		if startErr != nil || endErr != nil || startDate.After(endDate) {
			// Malformed boundary dates invalidate the season, not the row.
			continue
		}

		tailEnd := len(timeText)
		if i+1 < len(headers) {
			tailEnd = headers[i+1][0]
		}
		tail := timeText[header[1]:tailEnd]

		seasonIndexes := []int{i + 1}
		if header[6] >= 0 {
			if parsed := parseIntList(timeText[header[6]:header[7]]); len(parsed) > 0 {
				seasonIndexes = parsed
			}
		}

		inline, clauses := parseWeekdayClauses(tail)
		for _, seasonIdx := range seasonIndexes {
			location := addresses[seasonIdx]
			if location == "" {
				location = inline
			}
			for _, clause := range clauses {
				for _, run := range clause.runs {
					occ := models.Occurrence{
						StartDate:    startDate,
						EndDate:      endDate,
						Weekday:      clause.weekday,
						SessionStart: run[0],
						SessionEnd:   run[1],
						Location:     location,
					}
					if occ.Valid() {
						occurrences = append(occurrences, occ)
					}
				}
			}
		}
	}

	if len(occurrences) == 0 {
		return nil, appErrors.ErrNoSchedule
	}
	return occurrences, nil
}

type weekdayClause struct {
	weekday int
	runs    [][2]int
}

// parseWeekdayClauses extracts the weekday+session clauses from a season
// tail. The text preceding the first clause, if any, is an inline location
// token used when the address list fails to align season-for-season.
func parseWeekdayClauses(tail string) (inline string, clauses []weekdayClause) {
	matches := weekdayClauseRe.FindAllStringSubmatchIndex(tail, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(tail), nil
	}

	inline = strings.Trim(strings.TrimSpace(tail[:matches[0][0]]), ".,;-")
	for _, m := range matches {
		weekday := models.WeekdaySunday
		if m[2] >= 0 {
			day, err := strconv.Atoi(tail[m[2]:m[3]])
			if err != nil || day < models.WeekdayMonday || day > 7 {
				continue
			}
			weekday = day
		}
		sessions := parseIntList(tail[m[4]:m[5]])
		runs := contiguousRuns(sessions)
		if len(runs) == 0 {
			continue
		}
		clauses = append(clauses, weekdayClause{weekday: weekday, runs: runs})
	}
	return inline, clauses
}

// parseSeasonAddresses maps season index to location. A group tagged with
// multiple indices is expanded into one entry per index.
func parseSeasonAddresses(addressText string) map[int]string {
	result := make(map[int]string)
	for _, m := range seasonAddressRe.FindAllStringSubmatch(addressText, -1) {
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		for _, idx := range parseIntList(m[1]) {
			result[idx] = value
		}
	}
	return result
}

// contiguousRuns splits an unsorted session list into ascending contiguous
// [start, end] runs. "1,2,5,6" becomes two runs rather than silently
// collapsing the gap.
func contiguousRuns(sessions []int) [][2]int {
	if len(sessions) == 0 {
		return nil
	}
	sorted := make([]int, 0, len(sessions))
	seen := make(map[int]bool, len(sessions))
	for _, s := range sessions {
		if s < 1 || s > models.SessionsPerDay || seen[s] {
			continue
		}
		sorted = append(sorted, s)
		seen[s] = true
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Ints(sorted)

	var runs [][2]int
	start, end := sorted[0], sorted[0]
	for _, s := range sorted[1:] {
		if s == end+1 {
			end = s
			continue
		}
		runs = append(runs, [2]int{start, end})
		start, end = s, s
	}
	return append(runs, [2]int{start, end})
}

// parseIntList splits a comma/semicolon/space separated number list. A
// non-numeric token poisons the whole list per the skip-the-occurrence
// policy for malformed session tokens.
func parseIntList(raw string) []int {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	values := make([]int, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.Atoi(field)
		if err != nil {
			return nil
		}
		values = append(values, value)
	}
	return values
}

func parseDayMonthYear(raw string) (time.Time, error) {
	return time.Parse(dayMonthYearLayout, strings.TrimSpace(raw))
}

// normalizeScheduleText flattens the HTML-entity and non-breaking-space soup
// the portal emits into plain spaces.
func normalizeScheduleText(raw string) string {
	replacer := strings.NewReplacer("&nbsp;", " ", " ", " ", "\r", " ", "\n", " ", "\t", " ")
	return strings.TrimSpace(replacer.Replace(raw))
}
