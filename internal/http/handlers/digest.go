package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/services"
)

type DigestHandler struct {
	query services.DigestQueryService
	cards services.ShareCardService
}

func NewDigestHandler(query services.DigestQueryService, cards services.ShareCardService) *DigestHandler {
	return &DigestHandler{query: query, cards: cards}
}

// GET /api/digests/:kind
//
// The persisted document is served byte for byte; a kind that has never been
// refreshed yields an empty collection rather than a 404.
func (h *DigestHandler) GetDigest(c *gin.Context) {
	kind := c.Param("kind")
	if !digests.KnownKind(kind) {
		response.RespondError(c, http.StatusNotFound, "unknown_kind", fmt.Errorf("unknown digest kind %q", kind))
		return
	}
	doc, err := h.query.Get(c.Request.Context(), kind)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "digest_read_failed", err)
		return
	}
	if doc == nil {
		doc, _ = json.Marshal(merge.Collection{Entries: []json.RawMessage{}})
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

// GET /api/digests/:kind/card/:key
func (h *DigestHandler) GetCard(c *gin.Context) {
	kind := c.Param("kind")
	if !digests.KnownKind(kind) {
		response.RespondError(c, http.StatusNotFound, "unknown_kind", fmt.Errorf("unknown digest kind %q", kind))
		return
	}
	if h.cards == nil {
		response.RespondError(c, http.StatusNotImplemented, "cards_disabled", fmt.Errorf("share cards are not configured"))
		return
	}
	url, err := h.cards.CardURL(c.Request.Context(), kind, c.Param("key"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}
