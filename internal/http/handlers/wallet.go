package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/suiticket/internal/domain/account"
	"github.com/geocoder89/suiticket/internal/http/middlewares"
	"github.com/geocoder89/suiticket/internal/wallet"
	"github.com/gin-gonic/gin"
)

type SessionIssuer interface {
	IssueSessionToken(address string) (string, time.Time, error)
}

// Disconnector drops whatever a panel keeps for an account.
type Disconnector interface {
	Disconnect(ctx context.Context, account string) error
}

type DisconnectFunc func(ctx context.Context, account string) error

func (f DisconnectFunc) Disconnect(ctx context.Context, account string) error { return f(ctx, account) }

type WalletHandler struct {
	signer   wallet.Signer
	sessions SessionIssuer
	panels   []Disconnector
}

func NewWalletHandler(signer wallet.Signer, sessions SessionIssuer, panels ...Disconnector) *WalletHandler {
	return &WalletHandler{signer: signer, sessions: sessions, panels: panels}
}

type ConnectRequest struct {
	Address string `json:"address" binding:"required,startswith=0x,max=66"`
}

type ConnectResponse struct {
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expiresAt"`
	Address        string    `json:"address"`
	DisplayAddress string    `json:"displayAddress"`
}

// Connect opens a session for an address the wallet can sign for.
func (h *WalletHandler) Connect(ctx *gin.Context) {
	var req ConnectRequest
	if !BindJSON(ctx, &req) {
		return
	}

	addr, err := account.Normalize(req.Address)
	if err != nil {
		RespondBadRequest(ctx, "Invalid wallet address", gin.H{"field": "address"})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	ok, err := wallet.HasAccount(cctx, h.signer, addr)
	if err != nil {
		RespondBadGateway(ctx, "wallet_unavailable", "Could not reach the wallet", nil)
		return
	}
	if !ok {
		RespondForbidden(ctx, "unknown_account", wallet.ErrUnknownAccount.Error())
		return
	}

	token, exp, err := h.sessions.IssueSessionToken(addr)
	if err != nil {
		RespondInternal(ctx, "Could not open session")
		return
	}

	ctx.JSON(http.StatusOK, ConnectResponse{
		Token:          token,
		ExpiresAt:      exp,
		Address:        addr,
		DisplayAddress: account.FormatAddress(addr, account.DefaultFormatLength),
	})
}

// Disconnect forgets the account's panel state and cached counter. The
// token itself simply expires.
func (h *WalletHandler) Disconnect(ctx *gin.Context) {
	addr, ok := middlewares.AddressFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Please connect your wallet first")
		return
	}

	var errs []error
	for _, p := range h.panels {
		if err := p.Disconnect(ctx.Request.Context(), addr); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		RespondInternal(ctx, "Could not clear session state")
		return
	}

	ctx.Status(http.StatusNoContent)
}
