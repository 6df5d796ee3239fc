package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/suiticket/internal/domain/event"
	"github.com/geocoder89/suiticket/internal/http/middlewares"
	"github.com/geocoder89/suiticket/internal/panel"
	"github.com/gin-gonic/gin"
)

// Submissions wait on a wallet prompt and, for a first event, on the
// confirmation poller.
const (
	loadTimeout   = 15 * time.Second
	submitTimeout = 2 * time.Minute
)

type OrganizerPanel interface {
	Load(ctx context.Context, account string) (panel.State, error)
	CreateEvent(ctx context.Context, account string, form event.Form) (panel.State, error)
	DismissError(account string) panel.State
}

type BuyerPanel interface {
	Load(ctx context.Context, account string) (panel.State, error)
	MintTicket(ctx context.Context, account, eventID string) (panel.State, error)
	DismissError(account string) panel.State
}

type PanelsHandler struct {
	organizer OrganizerPanel
	buyer     BuyerPanel
}

func NewPanelsHandler(organizer OrganizerPanel, buyer BuyerPanel) *PanelsHandler {
	return &PanelsHandler{organizer: organizer, buyer: buyer}
}

func accountOrAbort(ctx *gin.Context) (string, bool) {
	addr, ok := middlewares.AddressFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, panel.MsgConnectWallet)
		return "", false
	}
	return addr, true
}

// setDigest hands a submitted transaction's digest to the request logger.
func setDigest(ctx *gin.Context, st panel.State) {
	if st.Digest != "" {
		ctx.Set(string(middlewares.CtxDigest), st.Digest)
	}
}

// respondPanel writes st, or an error envelope carrying st, depending on
// what the panel operation returned.
func respondPanel(ctx *gin.Context, okStatus int, st panel.State, err error) {
	if err == nil {
		ctx.JSON(okStatus, st)
		return
	}

	details := gin.H{"panel": st}

	var verr *panel.ValidationError
	switch {
	case errors.As(err, &verr):
		details["errors"] = verr.Errors
		RespondError(ctx, http.StatusBadRequest, "invalid_event", "Please fix the following errors", details)

	case errors.Is(err, panel.ErrNotConnected):
		RespondUnauthorized(ctx, panel.MsgConnectWallet)

	case errors.Is(err, panel.ErrSoldOut):
		RespondConflict(ctx, "sold_out", st.Error, details)

	case errors.Is(err, event.ErrNotFound):
		RespondNotFound(ctx, st.Error, details)

	case errors.Is(err, context.DeadlineExceeded):
		RespondError(ctx, http.StatusGatewayTimeout, "timeout", "Timed out waiting for the ledger", details)

	case errors.Is(err, panel.ErrTransaction):
		RespondBadGateway(ctx, "transaction_failed", st.Error, details)

	case errors.Is(err, panel.ErrLoad):
		RespondBadGateway(ctx, "ledger_unavailable", st.Error, details)

	default:
		RespondInternal(ctx, "Unexpected panel error")
	}
}

func (h *PanelsHandler) LoadOrganizer(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), loadTimeout)
	defer cancel()

	st, err := h.organizer.Load(cctx, addr)
	respondPanel(ctx, http.StatusOK, st, err)
}

func (h *PanelsHandler) CreateEvent(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	var req event.CreateEventRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), submitTimeout)
	defer cancel()

	st, err := h.organizer.CreateEvent(cctx, addr, req.Form())
	setDigest(ctx, st)
	respondPanel(ctx, http.StatusCreated, st, err)
}

func (h *PanelsHandler) LoadBuyer(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), loadTimeout)
	defer cancel()

	st, err := h.buyer.Load(cctx, addr)
	respondPanel(ctx, http.StatusOK, st, err)
}

func (h *PanelsHandler) MintTicket(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	eventID := ctx.Param("id")
	if eventID == "" {
		RespondBadRequest(ctx, "Missing event id", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), submitTimeout)
	defer cancel()

	st, err := h.buyer.MintTicket(cctx, addr, eventID)
	setDigest(ctx, st)
	respondPanel(ctx, http.StatusCreated, st, err)
}

// DismissError clears the error slot of one panel (?panel=organizer|buyer)
// or of both.
func (h *PanelsHandler) DismissError(ctx *gin.Context) {
	addr, ok := accountOrAbort(ctx)
	if !ok {
		return
	}

	switch ctx.Query("panel") {
	case "organizer":
		ctx.JSON(http.StatusOK, gin.H{"organizer": h.organizer.DismissError(addr)})
	case "buyer":
		ctx.JSON(http.StatusOK, gin.H{"buyer": h.buyer.DismissError(addr)})
	case "":
		ctx.JSON(http.StatusOK, gin.H{
			"organizer": h.organizer.DismissError(addr),
			"buyer":     h.buyer.DismissError(addr),
		})
	default:
		RespondBadRequest(ctx, "Unknown panel", gin.H{"panel": "must be one of organizer, buyer"})
	}
}
