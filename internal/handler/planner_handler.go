package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/khoanguyen-dev/unitime-api/internal/dto"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	appErrors "github.com/khoanguyen-dev/unitime-api/pkg/errors"
	"github.com/khoanguyen-dev/unitime-api/pkg/jobs"
	"github.com/khoanguyen-dev/unitime-api/pkg/response"
)

// PlannerHandler exposes the combination search endpoint. Requests are
// queued onto the planner worker pool so concurrent searches cannot pile up
// on the request goroutines.
type PlannerHandler struct {
	dispatcher *jobs.Dispatcher
	wait       time.Duration
}

// NewPlannerHandler constructs handler.
func NewPlannerHandler(dispatcher *jobs.Dispatcher, wait time.Duration) *PlannerHandler {
	if wait <= 0 {
		wait = 15 * time.Second
	}
	return &PlannerHandler{dispatcher: dispatcher, wait: wait}
}

// Suggest godoc
// @Summary Suggest a section combination for requested subjects
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Catalog ID"
// @Param payload body dto.SuggestionRequest true "Subjects, preference and attempt index"
// @Success 200 {object} response.Envelope
// @Router /catalogs/{id}/suggestions [post]
func (h *PlannerHandler) Suggest(c *gin.Context) {
	var req dto.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}

	reply := make(chan jobs.Result, 1)
	err := h.dispatcher.Submit(jobs.Request{
		ID:   uuid.NewString(),
		Type: "suggestion",
		Payload: service.SuggestionJob{
			CatalogID: c.Param("id"),
			Request:   req,
		},
		Reply:    reply,
		Enqueued: time.Now(),
	})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrPlannerBusy.Code, appErrors.ErrPlannerBusy.Status, appErrors.ErrPlannerBusy.Message))
		return
	}

	select {
	case result := <-reply:
		if result.Err != nil {
			response.Error(c, result.Err)
			return
		}
		response.OK(c, result.Payload)
	case <-time.After(h.wait):
		response.Error(c, appErrors.Clone(appErrors.ErrPlannerBusy, "combination search timed out"))
	case <-c.Request.Context().Done():
		response.Error(c, appErrors.Wrap(c.Request.Context().Err(), appErrors.ErrPlannerBusy.Code, appErrors.ErrPlannerBusy.Status, "request cancelled"))
	}
}
