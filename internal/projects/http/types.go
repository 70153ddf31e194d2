package http

import (
	"context"

	bidsdomain "github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	"github.com/vibefix-labs/vibefix-backend/internal/projects/service"
)

// BidLister supplies the bids shown on the project detail view.
type BidLister interface {
	ListByProject(ctx context.Context, projectID string) ([]bidsdomain.Bid, error)
}

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	svc  *service.Service
	bids BidLister
}

func New(svc *service.Service, bids BidLister) *Handler {
	return &Handler{svc: svc, bids: bids}
}
