package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/necpgame/player-orders-core/internal/dto"
	"github.com/necpgame/player-orders-core/internal/models"
	"github.com/necpgame/player-orders-core/internal/service"
	appErrors "github.com/necpgame/player-orders-core/pkg/errors"
	"github.com/necpgame/player-orders-core/pkg/response"
)

const defaultJobListLimit = 20

// RecalcHandler exposes rating recalculation jobs.
type RecalcHandler struct {
	recalc *service.RecalcService
}

// NewRecalcHandler constructs the recalc handler.
func NewRecalcHandler(recalc *service.RecalcService) *RecalcHandler {
	return &RecalcHandler{recalc: recalc}
}

// Enqueue godoc
// @Summary Queue a rating recalculation
// @Tags Recalculation
// @Accept json
// @Produce json
// @Param request body dto.RecalcRequest true "Scope"
// @Success 202 {object} response.Envelope{data=dto.RecalcJobResponse}
// @Router /ratings/recalculate [post]
func (h *RecalcHandler) Enqueue(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.RecalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.recalc.Enqueue(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, dto.RecalcJobResponse{ID: job.ID, Status: job.Status}, nil)
}

// Status godoc
// @Summary Job progress and outcome
// @Tags Recalculation
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope{data=dto.RecalcStatusResponse}
// @Router /ratings/recalculate/{id} [get]
func (h *RecalcHandler) Status(c *gin.Context) {
	job, err := h.recalc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, toRecalcStatus(job), nil)
}

// List godoc
// @Summary Recent recalculation jobs
// @Tags Recalculation
// @Produce json
// @Param limit query int false "Max rows"
// @Success 200 {object} response.Envelope{data=[]dto.RecalcStatusResponse}
// @Router /ratings/recalculate [get]
func (h *RecalcHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultJobListLimit)))
	if err != nil || limit <= 0 {
		limit = defaultJobListLimit
	}
	jobList, err := h.recalc.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.RecalcStatusResponse, 0, len(jobList))
	for i := range jobList {
		out = append(out, *toRecalcStatus(&jobList[i]))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Cancel godoc
// @Summary Cancel a queued or running job
// @Tags Recalculation
// @Param id path string true "Job ID"
// @Success 204
// @Router /ratings/recalculate/{id} [delete]
func (h *RecalcHandler) Cancel(c *gin.Context) {
	if err := h.recalc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Download godoc
// @Summary Download a dry-run drift report
// @Tags Recalculation
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /ratings/recalculate/download/{token} [get]
func (h *RecalcHandler) Download(c *gin.Context) {
	download, err := h.recalc.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(download.Path, download.Filename)
}

func toRecalcStatus(job *models.RecalcJob) *dto.RecalcStatusResponse {
	return &dto.RecalcStatusResponse{
		ID:             job.ID,
		Scope:          job.Scope,
		Status:         job.Status,
		ProcessedCount: job.ProcessedCount,
		FailedCount:    job.FailedCount,
		Errors:         job.Errors,
		ResultURL:      job.ResultURL,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
	}
}
