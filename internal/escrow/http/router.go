package http

import "github.com/gin-gonic/gin"

// Register attaches the settlement trigger routes to the /escrow group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/release", h.release)
	rg.POST("/refund", h.refund)
}
