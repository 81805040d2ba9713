package models

// SelectedClass is one planner choice: a subject and the section picked for
// it. SectionID is empty when the subject is left unselected.
type SelectedClass struct {
	Major     string `json:"major"`
	Subject   string `json:"subject"`
	SectionID string `json:"section_id,omitempty"`
}

// Selection is a complete planner answer: at most one section per subject
// plus the total conflicted session count across the term.
type Selection struct {
	SelectedClasses         []SelectedClass `json:"selectedClasses"`
	TotalConflictedSessions int             `json:"totalConflictedSessions"`
	ConflictCells           []ConflictCell  `json:"conflicts,omitempty"`
	PreferencePenalty       int             `json:"-"`
}

// Chosen returns the section id picked for a subject, if any.
func (s Selection) Chosen(ref SubjectRef) (string, bool) {
	for _, class := range s.SelectedClasses {
		if class.Major == ref.Major && class.Subject == ref.Subject {
			return class.SectionID, class.SectionID != ""
		}
	}
	return "", false
}
