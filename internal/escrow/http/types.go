package http

import "github.com/vibefix-labs/vibefix-backend/internal/escrow/settlement"

// Handler bundles the dependencies for escrow settlement endpoints.
type Handler struct {
	svc *settlement.Service
}

func New(svc *settlement.Service) *Handler {
	return &Handler{svc: svc}
}
