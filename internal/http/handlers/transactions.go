package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/suiticket/internal/domain/activity"
	"github.com/geocoder89/suiticket/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type ActivityLister interface {
	ListByAccount(ctx context.Context, account string, limit int, after *utils.ActivityCursor) ([]activity.Record, error)
}

type TransactionsHandler struct {
	repo ActivityLister
}

func NewTransactionsHandler(repo ActivityLister) *TransactionsHandler {
	return &TransactionsHandler{repo: repo}
}

// List returns the transactions this gateway submitted for the connected
// account, newest first. Pass nextCursor back as ?cursor= for the next page.
func (h *TransactionsHandler) List(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	limit := defaultActivityLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxActivityLimit {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": "must be between 1 and 200"})
			return
		}
		limit = n
	}

	var after *utils.ActivityCursor
	if raw := ctx.Query("cursor"); raw != "" {
		c, err := utils.DecodeActivityCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "Invalid cursor", gin.H{"cursor": "malformed"})
			return
		}
		after = &c
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	items, err := h.repo.ListByAccount(cctx, addr, limit, after)
	if err != nil {
		RespondInternal(ctx, "Could not list transactions")
		return
	}

	resp := gin.H{
		"items": items,
		"count": len(items),
	}

	if len(items) == limit {
		last := items[len(items)-1]
		next, err := utils.EncodeActivityCursor(last.CreatedAt, last.ID)
		if err == nil {
			resp["nextCursor"] = next
		}
	}

	ctx.JSON(http.StatusOK, resp)
}
