package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/response"
)

// TimetableHandler exposes grid materialization and export endpoints.
type TimetableHandler struct {
	timetables *service.TimetableService
	exports    *service.ExportService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(timetables *service.TimetableService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exports: exports}
}

// parseSectionSelectors decodes repeated "major|subject|sectionId" query
// values. Comma-separated lists in a single value are accepted too.
func parseSectionSelectors(values []string) ([]dto.SectionSelector, error) {
	var selectors []dto.SectionSelector
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			parts := strings.Split(item, "|")
			if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation,
					"sections entries must be major|subject|sectionId")
			}
			selectors = append(selectors, dto.SectionSelector{
				Major:     parts[0],
				Subject:   parts[1],
				SectionID: parts[2],
			})
		}
	}
	if len(selectors) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one sections entry is required")
	}
	return selectors, nil
}

// Timetable godoc
// @Summary Materialized calendar grid for chosen sections
// @Tags Timetable
// @Produce json
// @Param id path string true "Catalog ID"
// @Param sections query []string true "major|subject|sectionId entries"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id}/timetable [get]
func (h *TimetableHandler) Timetable(c *gin.Context) {
	selectors, err := parseSectionSelectors(c.QueryArray("sections"))
	if err != nil {
		response.Error(c, err)
		return
	}
	resp, err := h.timetables.Timetable(c.Request.Context(), c.Param("id"), dto.TimetableRequest{Sections: selectors})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Export godoc
// @Summary Export the grid as CSV or PDF
// @Tags Timetable
// @Produce json
// @Param id path string true "Catalog ID"
// @Param sections query []string true "major|subject|sectionId entries"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id}/timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	selectors, err := parseSectionSelectors(c.QueryArray("sections"))
	if err != nil {
		response.Error(c, err)
		return
	}
	req := dto.ExportRequest{Sections: selectors, Format: c.DefaultQuery("format", "csv")}
	resp, err := h.exports.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Download godoc
// @Summary Download a previously exported file
// @Tags Timetable
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /downloads [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	data, fileName, err := h.exports.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "application/octet-stream"
	switch {
	case strings.HasSuffix(fileName, ".csv"):
		contentType = "text/csv"
	case strings.HasSuffix(fileName, ".pdf"):
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, data)
}
