package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	"github.com/khoanguyen-dev/unitime-api/pkg/config"
	"github.com/khoanguyen-dev/unitime-api/pkg/jobs"
)

func newPlannerHandlerFixture(t *testing.T) (*PlannerHandler, *jobs.Dispatcher) {
	t.Helper()
	store := newStubCatalogStore()
	seedCatalog(t, store)
	catalogs := service.NewCatalogService(store, nil, zap.NewNop())
	planner := service.NewPlannerService(catalogs, config.PlannerConfig{
		MaxCandidates: 8,
		NodeBudget:    20000,
		PlanTTL:       time.Minute,
	}, zap.NewNop())

	dispatcher := jobs.NewDispatcher("planner", service.PlannerJobHandler(planner), jobs.DispatcherConfig{
		Workers: 1,
		Logger:  zap.NewNop(),
	})
	return NewPlannerHandler(dispatcher, 5*time.Second), dispatcher
}

func TestPlannerHandlerSuggest(t *testing.T) {
	handler, dispatcher := newPlannerHandlerFixture(t)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	body := dto.SuggestionRequest{
		Subjects: []dto.SubjectPick{
			{Major: "CS", Subject: "Algorithms"},
			{Major: "CS", Subject: "Databases"},
		},
	}
	w := performJSON(t, handler.Suggest, http.MethodPost, "/catalogs/cat-1/suggestions", body,
		gin.Params{{Key: "id", Value: "cat-1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.SuggestionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.PlanID)
	assert.Len(t, envelope.Data.SelectedClasses, 2)
	assert.Equal(t, 0, envelope.Data.TotalConflictedSessions)
}

func TestPlannerHandlerSuggestInvalidBody(t *testing.T) {
	handler, dispatcher := newPlannerHandlerFixture(t)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	w := performJSON(t, handler.Suggest, http.MethodPost, "/catalogs/cat-1/suggestions", "nope",
		gin.Params{{Key: "id", Value: "cat-1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlannerHandlerDispatcherNotStarted(t *testing.T) {
	handler, _ := newPlannerHandlerFixture(t)

	body := dto.SuggestionRequest{
		Subjects: []dto.SubjectPick{{Major: "CS", Subject: "Algorithms"}},
	}
	w := performJSON(t, handler.Suggest, http.MethodPost, "/catalogs/cat-1/suggestions", body,
		gin.Params{{Key: "id", Value: "cat-1"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPlannerHandlerValidationFromService(t *testing.T) {
	handler, dispatcher := newPlannerHandlerFixture(t)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	w := performJSON(t, handler.Suggest, http.MethodPost, "/catalogs/cat-1/suggestions",
		dto.SuggestionRequest{}, gin.Params{{Key: "id", Value: "cat-1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
