package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/data/repos"
	types "github.com/yungbote/policylens-backend/internal/domain"
	"github.com/yungbote/policylens-backend/internal/http/response"
	"github.com/yungbote/policylens-backend/internal/pkg/dbctx"
)

type OrderHandler struct {
	orders    repos.OrderRepo
	officials repos.OfficialRepo
}

func NewOrderHandler(orders repos.OrderRepo, officials repos.OfficialRepo) *OrderHandler {
	return &OrderHandler{orders: orders, officials: officials}
}

// GET /api/orders?official=<slug>&from=YYYY-MM-DD&to=YYYY-MM-DD
//
// Filters are mutually exclusive: an official filter wins over a date range.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}

	if slug := c.Query("official"); slug != "" {
		official, err := h.officials.GetBySlug(dbc, slug)
		if err != nil {
			if errors.Is(err, repos.ErrNotFound) {
				response.RespondError(c, http.StatusNotFound, "official_not_found", err)
				return
			}
			response.RespondError(c, http.StatusInternalServerError, "list_orders_failed", err)
			return
		}
		rows, err := h.orders.GetByOfficialID(dbc, official.ID)
		if err != nil {
			response.RespondError(c, http.StatusInternalServerError, "list_orders_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"orders": rows})
		return
	}

	from, to, err := parseSignedRange(c.Query("from"), c.Query("to"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_range", err)
		return
	}

	var rows []*types.Order
	if !from.IsZero() || !to.IsZero() {
		if to.IsZero() {
			// Open-ended range: everything signed after from.
			to = time.Now().UTC().AddDate(0, 0, 1)
		}
		rows, err = h.orders.GetBySignedRange(dbc, from, to)
	} else {
		rows, err = h.orders.GetAllSortedBySignedAt(dbc)
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_orders_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"orders": rows})
}

func parseSignedRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return from, to, fmt.Errorf("invalid from date %q", fromStr)
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return from, to, fmt.Errorf("invalid to date %q", toStr)
		}
		// An exclusive upper bound of the next day keeps same-day orders in.
		to = to.AddDate(0, 0, 1)
	}
	if fromStr != "" && toStr != "" && to.Before(from) {
		return from, to, fmt.Errorf("from %q is after to %q", fromStr, toStr)
	}
	return from, to, nil
}
