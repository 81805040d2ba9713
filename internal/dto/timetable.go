package dto

import "github.com/khoanguyen-dev/unitime-api/internal/models"

// SectionSelector identifies one chosen section inside a catalog.
type SectionSelector struct {
	Major     string `json:"major" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	SectionID string `json:"sectionId" validate:"required"`
}

// TimetableRequest asks for the materialized grid of one or more sections.
type TimetableRequest struct {
	Sections []SectionSelector `json:"sections" validate:"required,min=1,dive"`
}

// TimetableResponse mirrors the personal timetable view contract.
type TimetableResponse struct {
	DataSubject string                `json:"data_subject"`
	Weeks       []models.Week         `json:"weeks"`
	Conflicts   []models.ConflictCell `json:"conflicts,omitempty"`
}

// ExportRequest selects sections and an output format for grid export.
type ExportRequest struct {
	Sections []SectionSelector `json:"sections" validate:"required,min=1,dive"`
	Format   string            `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportResponse returns the signed download location of a rendered export.
type ExportResponse struct {
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresAt   string `json:"expiresAt"`
}
