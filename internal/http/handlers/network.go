package handlers

import (
	"net/http"
	"time"

	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/network"
	"github.com/gin-gonic/gin"
)

type NetworkInfo struct {
	Network   network.Endpoints `json:"network"`
	PackageID string            `json:"packageId"`
	Types     map[string]string `json:"types"`
	Networks  []string          `json:"availableNetworks"`
}

type NetworkHandler struct {
	info NetworkInfo
}

func NewNetworkHandler(ep network.Endpoints, reg contract.Registry) *NetworkHandler {
	return &NetworkHandler{info: NetworkInfo{
		Network:   ep,
		PackageID: reg.PackageID,
		Types: map[string]string{
			"event":        reg.EventType(),
			"ticket":       reg.TicketType(),
			"eventCounter": reg.EventCounterType(),
			"eventCreated": reg.EventCreatedType(),
		},
		Networks: network.Names(),
	}}
}

// Get describes the active network and contract so a client can reach the
// same fullnode and package the gateway uses.
func (h *NetworkHandler) Get(ctx *gin.Context) {
	RespondCacheableJSON(ctx, http.StatusOK, h.info, time.Minute)
}
