package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftvault/internal/service"
)

type WalletHandler struct {
	Wallets *service.WalletService
	Logger  *zap.Logger
}

func (h *WalletHandler) Register(r *gin.Engine) {
	group := r.Group("/api/wallets")
	group.POST("", h.addWallet)
	group.GET("", h.listWallets)
	group.GET("/:id", h.getWallet)
	group.DELETE("/:id", h.removeWallet)
	group.POST("/:id/ingest", h.ingestWallet)
	group.GET("/:id/ingestion-state", h.ingestionState)
	r.POST("/api/ingest", h.ingestAddress)
}

type ingestRequest struct {
	Address  string   `json:"address"`
	Networks []string `json:"networks"`
}

type walletResponse struct {
	Wallet    any                      `json:"wallet"`
	Ingestion *service.IngestionResult `json:"ingestion,omitempty"`
}

// @Summary Track a wallet and run its first ingestion
// @Tags wallets
// @Accept json
// @Param body body service.AddWalletInput true "wallet"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/wallets [post]
func (h *WalletHandler) addWallet(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req service.AddWalletInput
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	wallet, result, err := h.Wallets.AddWallet(c.Request.Context(), req)
	if err != nil {
		serviceError(c, h.Logger, "add wallet failed", err)
		return
	}
	Ok(c, walletResponse{Wallet: wallet, Ingestion: result}, nil)
}

// @Summary List the caller's wallets
// @Tags wallets
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/wallets [get]
func (h *WalletHandler) listWallets(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, err := h.Wallets.ListWallets(c.Request.Context(), limit, offset)
	if err != nil {
		serviceError(c, h.Logger, "list wallets failed", err)
		return
	}
	Ok(c, items, map[string]any{"limit": limit, "offset": offset})
}

// @Summary Get a wallet
// @Tags wallets
// @Param id path string true "wallet id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/wallets/{id} [get]
func (h *WalletHandler) getWallet(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	wallet, err := h.Wallets.GetWallet(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, h.Logger, "get wallet failed", err)
		return
	}
	if wallet == nil {
		Error(c, http.StatusNotFound, "wallet not found", nil)
		return
	}
	Ok(c, wallet, nil)
}

// @Summary Remove a wallet and its artifacts
// @Tags wallets
// @Param id path string true "wallet id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/wallets/{id} [delete]
func (h *WalletHandler) removeWallet(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id := c.Param("id")
	if err := h.Wallets.RemoveWallet(c.Request.Context(), id); err != nil {
		serviceError(c, h.Logger, "remove wallet failed", err)
		return
	}
	Ok(c, gin.H{"id": id, "removed": true}, nil)
}

// @Summary Re-ingest a tracked wallet
// @Tags wallets
// @Accept json
// @Param id path string true "wallet id"
// @Param body body ingestRequest false "networks to fetch (address is ignored)"
// @Success 200 {object} apiResponse
// @Router /api/wallets/{id}/ingest [post]
func (h *WalletHandler) ingestWallet(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req ingestRequest
	_ = c.ShouldBindJSON(&req)
	result, err := h.Wallets.RefreshWallet(c.Request.Context(), c.Param("id"), req.Networks)
	if err != nil {
		serviceError(c, h.Logger, "wallet ingest failed", err)
		return
	}
	Ok(c, result, nil)
}

// @Summary Per-network ingestion state of a wallet
// @Tags wallets
// @Param id path string true "wallet id"
// @Success 200 {object} apiResponse
// @Router /api/wallets/{id}/ingestion-state [get]
func (h *WalletHandler) ingestionState(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Wallets.IngestionStates(c.Request.Context(), c.Param("id"))
	if err != nil {
		serviceError(c, h.Logger, "list ingestion state failed", err)
		return
	}
	Ok(c, states, nil)
}

type ingestAddressResponse struct {
	*service.IngestionResult
	Artifacts any `json:"artifacts"`
}

// @Summary Ingest any address
// @Description Persists only when the caller already tracks the address; otherwise the result is ephemeral.
// @Tags wallets
// @Accept json
// @Param body body ingestRequest true "address and networks"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/ingest [post]
func (h *WalletHandler) ingestAddress(c *gin.Context) {
	if h.Wallets == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Address) == "" {
		Error(c, http.StatusBadRequest, "address required", nil)
		return
	}
	result, err := h.Wallets.IngestAddress(c.Request.Context(), req.Address, req.Networks)
	if err != nil {
		serviceError(c, h.Logger, "ingest failed", err)
		return
	}
	Ok(c, ingestAddressResponse{IngestionResult: result, Artifacts: result.Artifacts}, nil)
}
