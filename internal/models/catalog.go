package models

import (
	"sort"
	"time"
)

// Section is one offering of a subject with its own teacher and weekly
// occurrence set.
type Section struct {
	ID          string       `json:"id"`
	Teacher     string       `json:"teacher,omitempty"`
	Credits     int          `json:"credits,omitempty"`
	Note        string       `json:"note,omitempty"`
	Occurrences []Occurrence `json:"occurrences"`
}

// SectionMap indexes sections of one subject by section id.
type SectionMap map[string]Section

// SubjectMap indexes a major's subjects by subject name.
type SubjectMap map[string]SectionMap

// Catalog is the term-wide registry of majors, subjects and sections.
// MinDate/MaxDate are derived from the occurrence set, never user supplied.
type Catalog struct {
	ID      string                `json:"id"`
	Title   string                `json:"title"`
	MinDate time.Time             `json:"min_date"`
	MaxDate time.Time             `json:"max_date"`
	Majors  map[string]SubjectMap `json:"majors"`
}

// SubjectRef addresses one subject inside a catalog.
type SubjectRef struct {
	Major   string `json:"major"`
	Subject string `json:"subject"`
}

// Section looks up a section by major, subject and section id.
func (c *Catalog) Section(major, subject, sectionID string) (Section, bool) {
	subjects, ok := c.Majors[major]
	if !ok {
		return Section{}, false
	}
	sections, ok := subjects[subject]
	if !ok {
		return Section{}, false
	}
	section, ok := sections[sectionID]
	return section, ok
}

// Sections returns the candidate sections for a subject in deterministic
// section-id order. Map iteration order is not stable in Go, and the planner
// contract requires reproducible tie-breaking.
func (c *Catalog) Sections(ref SubjectRef) []Section {
	subjects, ok := c.Majors[ref.Major]
	if !ok {
		return nil
	}
	sections, ok := subjects[ref.Subject]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Section, 0, len(ids))
	for _, id := range ids {
		out = append(out, sections[id])
	}
	return out
}

// Occurrences flattens every occurrence in the catalog.
func (c *Catalog) Occurrences() []Occurrence {
	var all []Occurrence
	for _, subjects := range c.Majors {
		for _, sections := range subjects {
			for _, section := range sections {
				all = append(all, section.Occurrences...)
			}
		}
	}
	return all
}

// Counts reports the number of majors, subjects and sections.
func (c *Catalog) Counts() (majors, subjects, sections int) {
	majors = len(c.Majors)
	for _, subjectMap := range c.Majors {
		subjects += len(subjectMap)
		for _, sectionMap := range subjectMap {
			sections += len(sectionMap)
		}
	}
	return majors, subjects, sections
}

// DateBounds folds the occurrence set into an explicit {min,max} pair. The
// second return is false when there are no occurrences to bound.
func DateBounds(occurrences []Occurrence) (min, max time.Time, ok bool) {
	for _, occ := range occurrences {
		if !ok {
			min, max, ok = occ.StartDate, occ.EndDate, true
			continue
		}
		if occ.StartDate.Before(min) {
			min = occ.StartDate
		}
		if occ.EndDate.After(max) {
			max = occ.EndDate
		}
	}
	return min, max, ok
}
