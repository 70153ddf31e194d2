package http

import "github.com/vibefix-labs/vibefix-backend/internal/bids/service"

// Handler bundles the dependencies for bid HTTP endpoints.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}
