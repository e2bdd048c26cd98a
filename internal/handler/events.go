package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nftvault/internal/auth"
)

type EventsHandler struct {
	// Hub is usually *notify.Hub.
	Hub http.Handler
}

func (h *EventsHandler) Register(r *gin.Engine) {
	r.GET("/api/ws/events", auth.RequireUser(), h.events)
}

// @Summary Subscribe to ingestion progress over websocket
// @Tags events
// @Param wallet_id query string false "only events for this wallet"
// @Failure 401 {object} apiResponse
// @Router /api/ws/events [get]
func (h *EventsHandler) events(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	h.Hub.ServeHTTP(c.Writer, c.Request)
}
