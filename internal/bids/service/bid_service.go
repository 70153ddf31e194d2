package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

// Store is the slice of bid persistence the coordinator needs. Accept must
// be a single atomic unit in the implementation behind this interface.
type Store interface {
	Create(ctx context.Context, req domain.PlaceBidRequest) (*domain.Bid, error)
	Get(ctx context.Context, id string) (*domain.Bid, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Bid, error)
	Withdraw(ctx context.Context, bidID, bidderID string) (*domain.Bid, error)
	Accept(ctx context.Context, projectID, bidID, callerID string) (*domain.AcceptResult, error)
}

// ProjectGetter resolves project state for validation.
type ProjectGetter interface {
	Get(ctx context.Context, id string) (*projdomain.Project, error)
}

// Service is the bid acceptance coordinator: the only path by which a bid
// may become accepted.
type Service struct {
	store    Store
	projects ProjectGetter
}

func New(store Store, projects ProjectGetter) *Service {
	return &Service{store: store, projects: projects}
}

// Place creates a pending bid on an open project. Owners cannot bid on
// their own projects. No funds move at bid time.
func (s *Service) Place(ctx context.Context, req domain.PlaceBidRequest) (*domain.Bid, error) {
	if req.AmountLamports <= 0 {
		return nil, fmt.Errorf("bid amount must be positive")
	}
	req.Message = strings.TrimSpace(req.Message)
	req.EstimatedTime = strings.TrimSpace(req.EstimatedTime)

	p, err := s.projects.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if p.Status != projdomain.StatusOpen {
		return nil, projdomain.ErrInvalidTransition
	}
	if p.OwnerID == req.BidderID {
		return nil, domain.ErrOwnProject
	}

	return s.store.Create(ctx, req)
}

// ListByProject returns all bids on a project.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]domain.Bid, error) {
	return s.store.ListByProject(ctx, projectID)
}

// Withdraw retracts the caller's own pending bid.
func (s *Service) Withdraw(ctx context.Context, bidID, callerID string) (*domain.Bid, error) {
	return s.store.Withdraw(ctx, bidID, callerID)
}

// Accept marks one bid accepted, rejects its pending siblings, and flips the
// project to in_progress, all as one atomic unit in the store. The lifecycle
// table is consulted first; the store re-checks the same guard inside its
// conditional write, so a concurrent loser fails with ErrInvalidTransition
// instead of overwriting the winner.
func (s *Service) Accept(ctx context.Context, projectID, bidID, callerID string) (*domain.AcceptResult, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != callerID {
		return nil, projdomain.ErrNotOwner
	}
	if !projdomain.CanTransition(p.Status, projdomain.StatusInProgress) {
		return nil, projdomain.ErrInvalidTransition
	}

	res, err := s.store.Accept(ctx, projectID, bidID, callerID)
	if err != nil {
		return nil, err
	}

	log.Printf("[bids] accepted bid=%s project=%s rejected_siblings=%d", bidID, projectID, res.RejectedBids)
	return res, nil
}
