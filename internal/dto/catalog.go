package dto

// MajorRows is one scraped portal table, already reduced to its cell text:
// rows of the fixed 9-column layout (section id, subject, time text, address
// text, teacher, enrolled, registered, credits, note). The trailing footer
// row may still be present; the importer discards it.
type MajorRows struct {
	Name string     `json:"name" validate:"required"`
	Rows [][]string `json:"rows" validate:"required,min=1"`
}

// ImportCatalogRequest builds a catalog from scraped portal tables.
type ImportCatalogRequest struct {
	Title  string      `json:"title" validate:"required"`
	Majors []MajorRows `json:"majors" validate:"required,min=1,dive"`
}

// ImportCatalogResponse summarises the imported catalog.
type ImportCatalogResponse struct {
	CatalogID   string `json:"catalogId"`
	Title       string `json:"title"`
	MinDate     string `json:"minDate,omitempty"`
	MaxDate     string `json:"maxDate,omitempty"`
	Majors      int    `json:"majors"`
	Subjects    int    `json:"subjects"`
	Sections    int    `json:"sections"`
	SkippedRows int    `json:"skippedRows"`
}

// CatalogSummary is one stored catalog in the listing, payload omitted.
type CatalogSummary struct {
	CatalogID string `json:"catalogId"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	MinDate   string `json:"minDate"`
	MaxDate   string `json:"maxDate"`
	CreatedAt string `json:"createdAt"`
}

// SubjectSummary is one subject line in the catalog listing.
type SubjectSummary struct {
	Major    string   `json:"major"`
	Subject  string   `json:"subject"`
	Sections []string `json:"sections"`
}

// SubjectListQuery pages through a catalog's subjects.
type SubjectListQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}
