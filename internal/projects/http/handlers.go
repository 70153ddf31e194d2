package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	"github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

type createReq struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	BountyLamports    int64      `json:"bounty_lamports"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	EscrowTxSignature string     `json:"escrow_tx_signature"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), domain.CreateProjectRequest{
		OwnerID:           auth.UserID(c),
		Title:             req.Title,
		Description:       req.Description,
		BountyLamports:    req.BountyLamports,
		Deadline:          req.Deadline,
		EscrowTxSignature: req.EscrowTxSignature,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBountyTooSmall), errors.Is(err, domain.ErrBountyTooLarge),
			errors.Is(err, domain.ErrDepositNotConfirmed):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		case errors.Is(err, domain.ErrDepositAlreadyUsed):
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	f := domain.ListFilter{Status: domain.Status(c.Query("status"))}
	if c.Query("owner") == "me" {
		uid := auth.UserID(c)
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "sign in to filter by owner"})
			return
		}
		f.OwnerID = uid
	}

	items, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")

	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	bids, err := h.bids.ListByProject(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p, "bids": bids})
}
