package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/services"
)

type AdminHandler struct {
	auth services.AdminAuthService
	jobs services.JobService
}

func NewAdminHandler(auth services.AdminAuthService, jobs services.JobService) *AdminHandler {
	return &AdminHandler{auth: auth, jobs: jobs}
}

type tokenRequest struct {
	APIKey string `json:"api_key"`
}

// POST /api/admin/token (public; the api key is the credential)
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, expiresAt, err := h.auth.IssueToken(c.Request.Context(), req.APIKey)
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "invalid_api_key", err)
		return
	}
	response.RespondOK(c, gin.H{"token": token, "expires_at": expiresAt})
}

// POST /api/admin/refresh/:kind
func (h *AdminHandler) EnqueueRefresh(c *gin.Context) {
	kind := c.Param("kind")
	if !digests.KnownKind(kind) {
		response.RespondError(c, http.StatusNotFound, "unknown_kind", fmt.Errorf("unknown digest kind %q", kind))
		return
	}
	var payload services.RefreshJobPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	job, err := h.jobs.EnqueueRefresh(c.Request.Context(), kind, payload)
	if err != nil {
		if errors.Is(err, services.ErrJobPending) {
			response.RespondError(c, http.StatusConflict, "refresh_pending", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// POST /api/admin/sync
func (h *AdminHandler) EnqueueOrdersSync(c *gin.Context) {
	job, err := h.jobs.EnqueueOrdersSync(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrJobPending) {
			response.RespondError(c, http.StatusConflict, "sync_pending", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/admin/jobs
func (h *AdminHandler) RecentJobs(c *gin.Context) {
	jobs, err := h.jobs.Recent(c.Request.Context(), 50)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}
