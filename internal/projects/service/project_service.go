package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
	"github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

// Store is the slice of project persistence the service needs.
type Store interface {
	Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error)
}

// DepositConfirmer verifies that a deposit signature confirmed on-ledger and
// credited the escrow account with at least minLamports. Satisfied by
// *ledger.Client.
type DepositConfirmer interface {
	ConfirmDeposit(ctx context.Context, sig solana.Signature, escrow solana.PublicKey, minLamports int64) error
}

// Service handles project-related business logic.
type Service struct {
	store     Store
	ledger    DepositConfirmer
	escrow    solana.PublicKey
	minBounty int64
}

func New(store Store, confirmer DepositConfirmer, escrow solana.PublicKey, minBounty int64) *Service {
	return &Service{store: store, ledger: confirmer, escrow: escrow, minBounty: minBounty}
}

// Create posts a new project. The deposit must already be confirmed
// on-ledger before any record exists: an open project without funds in
// escrow would let bounties be promised that cannot be paid.
func (s *Service) Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return nil, fmt.Errorf("title required")
	}
	if req.BountyLamports < s.minBounty {
		return nil, domain.ErrBountyTooSmall
	}
	if req.BountyLamports > ledger.MaxLamports {
		return nil, domain.ErrBountyTooLarge
	}

	sig, err := solana.SignatureFromBase58(req.EscrowTxSignature)
	if err != nil {
		return nil, domain.ErrDepositNotConfirmed
	}
	if err := s.ledger.ConfirmDeposit(ctx, sig, s.escrow, req.BountyLamports); err != nil {
		log.Printf("[projects] deposit not confirmed sig=%s err=%v", req.EscrowTxSignature, err)
		return nil, fmt.Errorf("%w: %v", domain.ErrDepositNotConfirmed, err)
	}

	return s.store.Create(ctx, req)
}

// Get returns a single project.
func (s *Service) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.store.Get(ctx, id)
}

// List returns marketplace projects, optionally filtered.
func (s *Service) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", f.Status)
	}
	return s.store.List(ctx, f)
}
