package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/response"
)

// CatalogHandler exposes catalog import and browsing endpoints.
type CatalogHandler struct {
	catalogs     *service.CatalogService
	spreadsheets *service.SpreadsheetService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogs *service.CatalogService, spreadsheets *service.SpreadsheetService) *CatalogHandler {
	return &CatalogHandler{catalogs: catalogs, spreadsheets: spreadsheets}
}

// Import godoc
// @Summary Import a catalog from scraped portal tables
// @Tags Catalogs
// @Accept json
// @Produce json
// @Param payload body dto.ImportCatalogRequest true "Catalog rows grouped per major"
// @Success 201 {object} response.Envelope
// @Router /catalogs [post]
func (h *CatalogHandler) Import(c *gin.Context) {
	var req dto.ImportCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	resp, err := h.catalogs.ImportRows(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// ImportSpreadsheet godoc
// @Summary Import a catalog from an institution workbook
// @Tags Catalogs
// @Accept mpfd
// @Produce json
// @Param title formData string true "Catalog title"
// @Param file formData file true "xlsx workbook"
// @Success 201 {object} response.Envelope
// @Router /catalogs/import/spreadsheet [post]
func (h *CatalogHandler) ImportSpreadsheet(c *gin.Context) {
	title := c.PostForm("title")
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "workbook file is required"))
		return
	}
	defer file.Close() //nolint:errcheck

	resp, err := h.spreadsheets.Import(c.Request.Context(), title, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// List godoc
// @Summary List stored catalogs
// @Tags Catalogs
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalogs [get]
func (h *CatalogHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	summaries, pagination, err := h.catalogs.List(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, pagination)
}

// Get godoc
// @Summary Catalog summary
// @Tags Catalogs
// @Produce json
// @Param id path string true "Catalog ID"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	catalog, err := h.catalogs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	majors, subjects, sections := catalog.Counts()
	response.OK(c, gin.H{
		"catalogId": catalog.ID,
		"title":     catalog.Title,
		"minDate":   catalog.MinDate.Format("2006-01-02"),
		"maxDate":   catalog.MaxDate.Format("2006-01-02"),
		"majors":    majors,
		"subjects":  subjects,
		"sections":  sections,
	})
}

// Subjects godoc
// @Summary List a catalog's subjects and their sections
// @Tags Catalogs
// @Produce json
// @Param id path string true "Catalog ID"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id}/subjects [get]
func (h *CatalogHandler) Subjects(c *gin.Context) {
	var query dto.SubjectListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	subjects, pagination, err := h.catalogs.ListSubjects(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, pagination)
}
