package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	"github.com/khoanguyen-dev/unitime-api/pkg/storage"
)

func newTimetableHandlerFixture(t *testing.T) (*TimetableHandler, *stubCatalogStore) {
	t.Helper()
	store := newStubCatalogStore()
	catalogs := service.NewCatalogService(store, nil, zap.NewNop())
	timetables := service.NewTimetableService(catalogs, zap.NewNop())

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("handler-test-secret", time.Minute)
	exports := service.NewExportService(timetables, files, signer, zap.NewNop())

	return NewTimetableHandler(timetables, exports), store
}

func TestParseSectionSelectors(t *testing.T) {
	selectors, err := parseSectionSelectors([]string{"CS|Algorithms|ALG01", "CS|Databases|DB01,CS|Databases|DB02"})
	require.NoError(t, err)
	require.Len(t, selectors, 3)
	assert.Equal(t, dto.SectionSelector{Major: "CS", Subject: "Algorithms", SectionID: "ALG01"}, selectors[0])
	assert.Equal(t, "DB02", selectors[2].SectionID)

	_, err = parseSectionSelectors([]string{"CS|Algorithms"})
	require.Error(t, err)

	_, err = parseSectionSelectors(nil)
	require.Error(t, err)
}

func TestTimetableHandlerTimetable(t *testing.T) {
	handler, store := newTimetableHandlerFixture(t)
	seedCatalog(t, store)

	target := "/catalogs/cat-1/timetable?sections=" + url.QueryEscape("CS|Algorithms|ALG01")
	w := performJSON(t, handler.Timetable, http.MethodGet, target, nil,
		gin.Params{{Key: "id", Value: "cat-1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.TimetableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Algorithms", envelope.Data.DataSubject)
	require.NotEmpty(t, envelope.Data.Weeks)
	assert.Len(t, envelope.Data.Weeks[0][0].Slots, 16)
}

func TestTimetableHandlerMissingSections(t *testing.T) {
	handler, store := newTimetableHandlerFixture(t)
	seedCatalog(t, store)

	w := performJSON(t, handler.Timetable, http.MethodGet, "/catalogs/cat-1/timetable", nil,
		gin.Params{{Key: "id", Value: "cat-1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerExportAndDownload(t *testing.T) {
	handler, store := newTimetableHandlerFixture(t)
	seedCatalog(t, store)

	target := "/catalogs/cat-1/timetable/export?format=csv&sections=" + url.QueryEscape("CS|Algorithms|ALG01")
	w := performJSON(t, handler.Export, http.MethodGet, target, nil,
		gin.Params{{Key: "id", Value: "cat-1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ExportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Data.FileName, ".csv")
	require.Contains(t, envelope.Data.DownloadURL, "token=")

	parsed, err := url.Parse(envelope.Data.DownloadURL)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	dw := performJSON(t, handler.Download, http.MethodGet, "/downloads?token="+url.QueryEscape(token), nil, nil)
	require.Equal(t, http.StatusOK, dw.Code)
	assert.Equal(t, "text/csv", dw.Header().Get("Content-Type"))
	assert.Contains(t, dw.Body.String(), "Date")
}

func TestTimetableHandlerDownloadBadToken(t *testing.T) {
	handler, _ := newTimetableHandlerFixture(t)

	w := performJSON(t, handler.Download, http.MethodGet, "/downloads?token=garbage", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(t, handler.Download, http.MethodGet, "/downloads", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerExportBadFormat(t *testing.T) {
	handler, store := newTimetableHandlerFixture(t)
	seedCatalog(t, store)

	target := "/catalogs/cat-1/timetable/export?format=xml&sections=" + url.QueryEscape("CS|Algorithms|ALG01")
	w := performJSON(t, handler.Export, http.MethodGet, target, nil,
		gin.Params{{Key: "id", Value: "cat-1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
