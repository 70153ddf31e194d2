package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	"github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

type placeReq struct {
	AmountLamports int64  `json:"amount_lamports"`
	EstimatedTime  string `json:"estimated_time"`
	Message        string `json:"message"`
}

func (h *Handler) place(c *gin.Context) {
	var req placeReq
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountLamports <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	bid, err := h.svc.Place(c.Request.Context(), domain.PlaceBidRequest{
		ProjectID:      c.Param("id"),
		BidderID:       auth.UserID(c),
		AmountLamports: req.AmountLamports,
		EstimatedTime:  req.EstimatedTime,
		Message:        req.Message,
	})
	if err != nil {
		writeBidError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "bid": bid})
}

func (h *Handler) list(c *gin.Context) {
	bids, err := h.svc.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeBidError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bids": bids})
}

func (h *Handler) accept(c *gin.Context) {
	res, err := h.svc.Accept(c.Request.Context(), c.Param("id"), c.Param("bid_id"), auth.UserID(c))
	if err != nil {
		writeBidError(c, err)
		return
	}
	// res is authoritative; a concurrent loser never reaches this point.
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func (h *Handler) withdraw(c *gin.Context) {
	bid, err := h.svc.Withdraw(c.Request.Context(), c.Param("bid_id"), auth.UserID(c))
	if err != nil {
		writeBidError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bid": bid})
}

func writeBidError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, projdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, projdomain.ErrNotOwner), errors.Is(err, domain.ErrNotBidder):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, projdomain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidBidState),
		errors.Is(err, domain.ErrOwnProject):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
