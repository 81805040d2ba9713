package models

// SlotCell is one of the 16 session positions in a day. A head cell carries
// the label for a run of Length sessions; the covered sessions behind it are
// continuation cells with Length 0 so renderers can merge the run into one
// block. An empty cell has no content and Length 1.
type SlotCell struct {
	Content *SlotContent `json:"content"`
	Length  int          `json:"length"`
}

// SlotContent identifies the occupant of a head cell.
type SlotContent struct {
	Subject  string `json:"subject"`
	Section  string `json:"section"`
	Teacher  string `json:"teacher,omitempty"`
	Location string `json:"location,omitempty"`
}

// DayCell is a single calendar day with its fixed session axis.
type DayCell struct {
	DateEpoch int64      `json:"date"`
	Slots     []SlotCell `json:"slots"`
}

// Week is an ordered run of 1-7 day cells. The first and last week of a term
// may be partial.
type Week []DayCell

// Grid is the materialized day-by-session matrix for a date span.
type Grid struct {
	Subject string `json:"data_subject,omitempty"`
	Weeks   []Week `json:"weeks"`
}

// ConflictCell pinpoints a (date, session) slot claimed by more than one
// chosen section.
type ConflictCell struct {
	DateEpoch int64    `json:"date"`
	Session   int      `json:"session"`
	Sections  []string `json:"sections"`
}

// EmptySlot returns an unoccupied slot cell.
func EmptySlot() SlotCell {
	return SlotCell{Content: nil, Length: 1}
}

// ContinuationSlot marks sessions 2..n of a multi-session run.
func ContinuationSlot() SlotCell {
	return SlotCell{Content: nil, Length: 0}
}

// Head reports whether the cell is the labeled start of an occupied run.
func (c SlotCell) Head() bool {
	return c.Content != nil && c.Length > 0
}
