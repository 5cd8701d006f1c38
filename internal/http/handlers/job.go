package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, events, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "job_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "get_job_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job, "events": events})
}
