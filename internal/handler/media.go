package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nftvault/internal/auth"
	"nftvault/internal/media"
	"nftvault/internal/service"
)

type MediaHandler struct {
	Media  *service.MediaService
	Logger *zap.Logger
}

func (h *MediaHandler) Register(r *gin.Engine) {
	r.GET("/api/media/resolve", auth.RequireUser(), h.resolve)
	r.GET("/api/media/proxy", auth.RequireUser(), h.proxy)
}

// @Summary Resolve and classify a media URL
// @Tags media
// @Param url query string true "media url (ipfs://, ar://, http(s)://)"
// @Param type query string false "explicit media type or mime"
// @Success 200 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Router /api/media/resolve [get]
func (h *MediaHandler) resolve(c *gin.Context) {
	if h.Media == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		Error(c, http.StatusBadRequest, "url required", nil)
		return
	}
	Ok(c, h.Media.Resolve(c.Request.Context(), raw, media.Hint{Explicit: c.Query("type")}), nil)
}

var passHeaders = []string{"Content-Type", "Content-Length", "Cache-Control", "ETag", "Last-Modified"}

// @Summary Fetch media through the proxy chain
// @Tags media
// @Param url query string true "media url"
// @Produce octet-stream
// @Success 200 {file} binary
// @Failure 400 {object} apiResponse
// @Failure 401 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/media/proxy [get]
func (h *MediaHandler) proxy(c *gin.Context) {
	if h.Media == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	raw := strings.TrimSpace(c.Query("url"))
	if raw == "" {
		Error(c, http.StatusBadRequest, "url required", nil)
		return
	}
	res, err := h.Media.Stream(c.Request.Context(), raw)
	if errors.Is(err, media.ErrBlockedTarget) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		var exhausted *media.ProxyExhaustedError
		if errors.As(err, &exhausted) && h.Logger != nil {
			h.Logger.Info("media proxy exhausted", zap.String("url", raw), zap.Int("attempts", len(exhausted.Attempts)))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if res.Response == nil {
		Error(c, http.StatusBadGateway, "empty proxy response", nil)
		return
	}
	defer res.Response.Body.Close()
	status := res.Response.StatusCode
	if status < 200 || status >= 300 {
		Error(c, http.StatusBadGateway, "upstream status "+strconv.Itoa(status), nil)
		return
	}
	c.Header("X-Proxy-Strategy", res.Strategy)
	for _, k := range passHeaders {
		if v := res.Response.Header.Get(k); v != "" {
			c.Header(k, v)
		}
	}
	c.Status(status)
	if _, err := io.Copy(c.Writer, res.Response.Body); err != nil && h.Logger != nil {
		h.Logger.Debug("media proxy copy interrupted", zap.String("url", raw), zap.Error(err))
	}
}
