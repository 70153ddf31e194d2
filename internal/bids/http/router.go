package http

import "github.com/gin-gonic/gin"

// RegisterPublicProjectRoutes attaches the bid listing under the public
// /projects group; :id is the project id.
func (h *Handler) RegisterPublicProjectRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/bids", h.list)
}

// RegisterProjectRoutes attaches the mutating per-project bid routes under
// the authenticated /projects group.
func (h *Handler) RegisterProjectRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/bids", h.place)
	rg.POST("/:id/bids/:bid_id/accept", h.accept)
}

// Register attaches bid-addressed routes to the /bids group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/:bid_id/withdraw", h.withdraw)
}
