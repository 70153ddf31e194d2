package wallet

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
)

// Handler exposes wallet endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches wallet routes to the /wallet group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/balance", h.balance)
}

func (h *Handler) balance(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "address query parameter required"})
		return
	}

	lamports, err := h.svc.Balance(c.Request.Context(), address)
	if err != nil {
		if errors.Is(err, ErrBadAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"address":  address,
		"lamports": lamports,
		"sol":      ledger.LamportsToSol(lamports),
	})
}
