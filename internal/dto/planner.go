package dto

import "github.com/khoanguyen-dev/unitime-api/internal/models"

// Planner preference modes bias the search toward leaving a part of the day
// uncommitted. They break ties only; conflict count always dominates.
const (
	PreferenceNone          = "NONE"
	PreferenceMorningFree   = "MORNING_FREE"
	PreferenceAfternoonFree = "AFTERNOON_FREE"
	PreferenceEveningFree   = "EVENING_FREE"
)

// SubjectPick names one (major, subject) pair the student wants scheduled.
type SubjectPick struct {
	Major   string `json:"major" validate:"required"`
	Subject string `json:"subject" validate:"required"`
}

// SuggestionRequest runs (or re-indexes) a combination search.
// Attempt selects the Nth ranked candidate; passing the PlanID returned by a
// previous call reuses its ranked list instead of searching again.
type SuggestionRequest struct {
	Subjects   []SubjectPick `json:"subjects" validate:"required,min=1,dive"`
	Preference string        `json:"preference" validate:"omitempty,oneof=NONE MORNING_FREE AFTERNOON_FREE EVENING_FREE"`
	Attempt    int           `json:"attempt" validate:"omitempty,min=0"`
	PlanID     string        `json:"planId"`
}

// SuggestionResponse carries the chosen combination and its conflict count.
type SuggestionResponse struct {
	PlanID                  string                 `json:"planId"`
	Attempt                 int                    `json:"attempt"`
	Candidates              int                    `json:"candidates"`
	SelectedClasses         []models.SelectedClass `json:"selectedClasses"`
	TotalConflictedSessions int                    `json:"totalConflictedSessions"`
	Conflicts               []models.ConflictCell  `json:"conflicts,omitempty"`
}
