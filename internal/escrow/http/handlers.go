package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	"github.com/vibefix-labs/vibefix-backend/internal/escrow/settlement"
	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
	"github.com/vibefix-labs/vibefix-backend/internal/users"
)

type settleReq struct {
	ProjectID string `json:"project_id"`
}

func (h *Handler) release(c *gin.Context) {
	h.settle(c, h.svc.Release)
}

func (h *Handler) refund(c *gin.Context) {
	h.settle(c, h.svc.Refund)
}

func (h *Handler) settle(c *gin.Context, run func(ctx context.Context, projectID, callerID string) (*settlement.Result, error)) {
	var req settleReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	res, err := run(c.Request.Context(), req.ProjectID, auth.UserID(c))
	if err != nil {
		writeSettleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"project_id": res.ProjectID,
		"status":     res.Status,
		"signature":  res.Signature,
	})
}

func writeSettleError(c *gin.Context, err error) {
	var recErr *settlement.RecordFailedError

	switch {
	case errors.Is(err, projdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": err.Error()})

	case errors.Is(err, projdomain.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": err.Error()})

	case errors.Is(err, projdomain.ErrInvalidTransition),
		errors.Is(err, users.ErrNoWallet),
		errors.Is(err, users.ErrBadWallet):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})

	case errors.Is(err, ledger.ErrConfirmationTimeout):
		// The transfer may still land; the claim is held and the reconciler
		// owns the outcome. Clients must not retry.
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"ok":        false,
			"error":     err.Error(),
			"retryable": false,
		})

	case errors.As(err, &recErr):
		// Funds moved but the record write failed. The signature is the
		// caller's proof of payment while reconciliation repairs the record.
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":        false,
			"error":     recErr.Error(),
			"signature": recErr.Entry.Signature,
		})

	case errors.Is(err, ledger.ErrNetwork), errors.Is(err, ledger.ErrSubmission):
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}
