package http

import "github.com/gin-gonic/gin"

// RegisterPublic attaches the marketplace read routes. Listings are browsable
// without signing in; a valid token only matters for the owner=me filter.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
}

// Register attaches the routes that require an authenticated caller.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
}
