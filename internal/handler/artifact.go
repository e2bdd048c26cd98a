package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftvault/internal/models"
	"nftvault/internal/service"
)

type ArtifactHandler struct {
	Artifacts *service.ArtifactService
	Media     *service.MediaService
	Logger    *zap.Logger
}

func (h *ArtifactHandler) Register(r *gin.Engine) {
	r.GET("/api/artifacts", h.listArtifacts)
	r.PATCH("/api/artifacts/:id/spam", h.setSpam)
	r.GET("/api/artifacts/:id/media", h.artifactMedia)

	catalogs := r.Group("/api/catalogs")
	catalogs.POST("", h.createCatalog)
	catalogs.GET("/:id/items", h.catalogItems)
	catalogs.POST("/:id/items", h.attachItem)
	catalogs.DELETE("/:id/items/:artifact_id", h.detachItem)
}

var artifactOrder = map[string]string{
	"id":         "id",
	"title":      "title",
	"network":    "network",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"contract":   "contract_address",
}

// @Summary List the caller's artifacts
// @Tags artifacts
// @Param wallet_id query string false "wallet id"
// @Param network query string false "network"
// @Param spam query bool false "spam filter"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param order_by query string false "id|title|network|created_at|updated_at|contract"
// @Param asc query bool false "ascending"
// @Success 200 {object} apiResponse
// @Router /api/artifacts [get]
func (h *ArtifactHandler) listArtifacts(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, total, err := h.Artifacts.List(c.Request.Context(), service.ArtifactFilter{
		WalletID: c.Query("wallet_id"),
		Network:  c.Query("network"),
		Spam:     boolQueryPtr(c, "spam"),
		Limit:    limit,
		Offset:   offset,
		OrderBy:  parseOrder(c.Query("order_by"), artifactOrder),
		Asc:      boolQueryPtr(c, "asc"),
	})
	if err != nil {
		serviceError(c, h.Logger, "list artifacts failed", err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

type spamRequest struct {
	Spam *bool `json:"spam"`
}

// @Summary Override an artifact's spam flag
// @Tags artifacts
// @Accept json
// @Param id path int true "artifact id"
// @Param body body spamRequest true "spam flag"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/artifacts/{id}/spam [patch]
func (h *ArtifactHandler) setSpam(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req spamRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Spam == nil {
		Error(c, http.StatusBadRequest, "spam required", nil)
		return
	}
	item, err := h.Artifacts.SetSpam(c.Request.Context(), id, *req.Spam)
	if err != nil {
		serviceError(c, h.Logger, "set spam failed", err)
		return
	}
	Ok(c, item, nil)
}

type artifactMediaResponse struct {
	ArtifactID uint64 `json:"artifact_id"`
	service.ResolvedMedia
}

// @Summary Resolve an artifact's media for display
// @Tags artifacts
// @Param id path int true "artifact id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/artifacts/{id}/media [get]
func (h *ArtifactHandler) artifactMedia(c *gin.Context) {
	if h.Artifacts == nil || h.Media == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Artifacts.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, h.Logger, "get artifact failed", err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "artifact not found", nil)
		return
	}
	Ok(c, artifactMediaResponse{ArtifactID: item.ID, ResolvedMedia: h.Media.ResolveMedia(c.Request.Context(), item)}, nil)
}

type catalogRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// @Summary Create a catalog
// @Tags catalogs
// @Accept json
// @Param body body catalogRequest true "catalog"
// @Success 200 {object} apiResponse
// @Router /api/catalogs [post]
func (h *ArtifactHandler) createCatalog(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		Error(c, http.StatusBadRequest, "name required", nil)
		return
	}
	item, err := h.Artifacts.CreateCatalog(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		serviceError(c, h.Logger, "create catalog failed", err)
		return
	}
	Ok(c, item, nil)
}

type catalogItemRequest struct {
	ArtifactID uint64 `json:"artifact_id"`
}

// @Summary Add an artifact to a catalog
// @Tags catalogs
// @Accept json
// @Param id path int true "catalog id"
// @Param body body catalogItemRequest true "artifact"
// @Success 200 {object} apiResponse
// @Router /api/catalogs/{id}/items [post]
func (h *ArtifactHandler) attachItem(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	catalogID, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req catalogItemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ArtifactID == 0 {
		Error(c, http.StatusBadRequest, "artifact_id required", nil)
		return
	}
	if err := h.Artifacts.AttachToCatalog(c.Request.Context(), catalogID, req.ArtifactID); err != nil {
		serviceError(c, h.Logger, "attach catalog item failed", err)
		return
	}
	Ok(c, models.CatalogItem{CatalogID: catalogID, ArtifactID: req.ArtifactID}, nil)
}

// @Summary Remove an artifact from a catalog
// @Tags catalogs
// @Param id path int true "catalog id"
// @Param artifact_id path int true "artifact id"
// @Success 200 {object} apiResponse
// @Router /api/catalogs/{id}/items/{artifact_id} [delete]
func (h *ArtifactHandler) detachItem(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	catalogID, ok := uint64Param(c, "id")
	artifactID, ok2 := uint64Param(c, "artifact_id")
	if !ok || !ok2 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if err := h.Artifacts.DetachFromCatalog(c.Request.Context(), catalogID, artifactID); err != nil {
		serviceError(c, h.Logger, "detach catalog item failed", err)
		return
	}
	Ok(c, gin.H{"catalog_id": catalogID, "artifact_id": artifactID, "removed": true}, nil)
}

// @Summary List a catalog's artifacts
// @Tags catalogs
// @Param id path int true "catalog id"
// @Success 200 {object} apiResponse
// @Router /api/catalogs/{id}/items [get]
func (h *ArtifactHandler) catalogItems(c *gin.Context) {
	if h.Artifacts == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	catalogID, ok := uint64Param(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Artifacts.CatalogItems(c.Request.Context(), catalogID)
	if err != nil {
		serviceError(c, h.Logger, "list catalog items failed", err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}
