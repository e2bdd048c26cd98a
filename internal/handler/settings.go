package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nftvault/internal/service"
)

type SettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/settings/features")
	group.GET("", h.listFeatures)
	group.PUT("/:key", h.setFeature)
}

// @Summary List feature switches
// @Tags settings
// @Success 200 {object} apiResponse
// @Router /api/settings/features [get]
func (h *SettingsHandler) listFeatures(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	items, err := h.Settings.List(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type featureRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Toggle a feature switch
// @Tags settings
// @Accept json
// @Param key path string true "switch key, e.g. feature.media_probe"
// @Param body body featureRequest true "enabled"
// @Success 200 {object} apiResponse
// @Router /api/settings/features/{key} [put]
func (h *SettingsHandler) setFeature(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	if !strings.HasPrefix(key, "feature.") {
		Error(c, http.StatusBadRequest, "key must start with feature.", nil)
		return
	}
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "enabled required", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"key": key, "enabled": *req.Enabled}, nil)
}
