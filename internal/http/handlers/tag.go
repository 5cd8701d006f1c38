package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

type TagHandler struct {
	tags repos.TagRepo
}

func NewTagHandler(tags repos.TagRepo) *TagHandler {
	return &TagHandler{tags: tags}
}

// GET /api/tags?kind=theme|population
func (h *TagHandler) ListTags(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	kind := c.Query("kind")
	if kind != "" && kind != string(types.TagKindTheme) && kind != string(types.TagKindPopulation) {
		response.RespondError(c, http.StatusBadRequest, "invalid_kind", fmt.Errorf("unknown tag kind %q", kind))
		return
	}

	var (
		rows []*types.Tag
		err  error
	)
	if kind != "" {
		rows, err = h.tags.GetByKind(dbc, kind)
	} else {
		rows, err = h.tags.GetAll(dbc)
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_tags_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"tags": rows})
}
