package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

type OfficialHandler struct {
	officials repos.OfficialRepo
	intervals repos.ServiceIntervalRepo
}

func NewOfficialHandler(officials repos.OfficialRepo, intervals repos.ServiceIntervalRepo) *OfficialHandler {
	return &OfficialHandler{officials: officials, intervals: intervals}
}

// GET /api/officials
func (h *OfficialHandler) ListOfficials(c *gin.Context) {
	rows, err := h.officials.GetAll(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_officials_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"officials": rows})
}

// GET /api/officials/:slug
func (h *OfficialHandler) GetOfficial(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	official, err := h.officials.GetBySlug(dbc, c.Param("slug"))
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "official_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "get_official_failed", err)
		return
	}
	intervals, err := h.intervals.GetByOfficialIDs(dbc, []uuid.UUID{official.ID})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "get_official_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"official": official, "service_intervals": intervals})
}
