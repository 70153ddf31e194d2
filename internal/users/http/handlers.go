package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	"github.com/vibefix-labs/vibefix-backend/internal/users"
)

// Handler bundles the dependencies for user profile endpoints.
type Handler struct {
	repo *users.Repo
}

func New(repo *users.Repo) *Handler {
	return &Handler{repo: repo}
}

// Register attaches profile routes to the /users group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PATCH("/me", h.update)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.repo.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

type updateReq struct {
	DisplayName   *string `json:"display_name,omitempty"`
	WalletAddress *string `json:"wallet_address,omitempty"`
}

func (h *Handler) update(c *gin.Context) {
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	u, err := h.repo.Update(c.Request.Context(), auth.UserID(c), users.UpdateProfile{
		DisplayName:   req.DisplayName,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrBadWallet):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		case errors.Is(err, users.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}
