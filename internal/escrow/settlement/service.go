package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"

	bidsdomain "github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

// ProjectStore is the status-guarded persistence slice the orchestrator
// needs. ClaimSettlement must be a single atomic conditional write.
type ProjectStore interface {
	ClaimSettlement(ctx context.Context, projectID, ownerID string, requireAcceptedBid bool, from ...projdomain.Status) (*projdomain.Project, error)
	ReleaseSettlementClaim(ctx context.Context, projectID string) error
	FinishRelease(ctx context.Context, projectID, signature string) error
	FinishRefund(ctx context.Context, projectID, signature string) error
	MarkNeedsReconciliation(ctx context.Context, projectID string) error
}

type BidGetter interface {
	Get(ctx context.Context, id string) (*bidsdomain.Bid, error)
}

// WalletResolver maps a user to their payout address.
type WalletResolver interface {
	PayoutWallet(ctx context.Context, userID string) (solana.PublicKey, error)
}

// Signer is the escrow custody surface: it hands out transaction builders,
// never the key.
type Signer interface {
	SignRelease(recipient solana.PublicKey, gross int64) ledger.BuildFunc
	SignRefund(recipient solana.PublicKey, gross int64) ledger.BuildFunc
}

// Ledger submits and confirms transfers and re-checks signature fates.
type Ledger interface {
	SubmitAndConfirm(ctx context.Context, build ledger.BuildFunc) (solana.Signature, error)
	ConfirmSignature(ctx context.Context, sig solana.Signature) error
	BlockHeight(ctx context.Context) (uint64, error)
}

// Recorder journals settlements whose on-ledger transfer confirmed but whose
// record write failed, and publishes settlement events. It lives in a
// different failure domain than the primary store on purpose.
type Recorder interface {
	Enqueue(ctx context.Context, e ReconcileEntry) error
	ListPending(ctx context.Context) ([]ReconcileEntry, error)
	Resolve(ctx context.Context, projectID string) error
	PublishSettled(ctx context.Context, e ReconcileEntry)
}

// Kind distinguishes the two settlement flavors.
type Kind string

const (
	KindRelease Kind = "release"
	KindRefund  Kind = "refund"
)

// ReconcileEntry is the durable trace of a settlement in flight or awaiting
// record repair. LastValidBlockHeight is the submission attempt's blockhash
// expiry; zero means the transfer is known confirmed and only the record
// write is outstanding.
type ReconcileEntry struct {
	ProjectID            string `json:"project_id"`
	Kind                 Kind   `json:"kind"`
	Signature            string `json:"signature"`
	LastValidBlockHeight uint64 `json:"last_valid_block_height,omitempty"`
}

// Result is the authoritative outcome returned to callers.
type Result struct {
	ProjectID string            `json:"project_id"`
	Status    projdomain.Status `json:"status"`
	Signature string            `json:"signature"`
}

// Service is the settlement orchestrator: it owns the end-to-end release and
// refund sequences, including the claim-before-sign discipline and the
// partial-failure reconciliation path.
type Service struct {
	projects ProjectStore
	bids     BidGetter
	wallets  WalletResolver
	signer   Signer
	ledger   Ledger
	recorder Recorder
}

func New(projects ProjectStore, bids BidGetter, wallets WalletResolver, signer Signer, lc Ledger, recorder Recorder) *Service {
	return &Service{
		projects: projects,
		bids:     bids,
		wallets:  wallets,
		signer:   signer,
		ledger:   lc,
		recorder: recorder,
	}
}

// Release pays out an in_progress project's bounty to the accepted bidder,
// minus the platform fee, and completes the project.
//
// The settlement claim is taken with one conditional write before anything
// is signed: a second concurrent caller, or a repeat call after success,
// fails the claim with ErrInvalidTransition and never triggers a second
// transfer. That also makes the trigger endpoint idempotent-safe.
func (s *Service) Release(ctx context.Context, projectID, callerID string) (*Result, error) {
	p, err := s.projects.ClaimSettlement(ctx, projectID, callerID, true, projdomain.StatusInProgress)
	if err != nil {
		return nil, err
	}
	if p.AcceptedBidID == nil {
		// claim requires it; re-checked to keep the invariant local
		s.unclaim(ctx, projectID)
		return nil, projdomain.ErrInvalidTransition
	}

	bid, err := s.bids.Get(ctx, *p.AcceptedBidID)
	if err != nil {
		s.unclaim(ctx, projectID)
		return nil, err
	}

	recipient, err := s.wallets.PayoutWallet(ctx, bid.BidderID)
	if err != nil {
		s.unclaim(ctx, projectID)
		return nil, err
	}

	// Amount comes from the project record, never from the request.
	return s.settle(ctx, ReconcileEntry{ProjectID: projectID, Kind: KindRelease},
		s.signer.SignRelease(recipient, p.BountyLamports))
}

// Refund returns the full bounty, fee-free, to the owner of an open or
// in_progress project and cancels it. A previously accepted bid is flipped
// to rejected by the record write.
func (s *Service) Refund(ctx context.Context, projectID, callerID string) (*Result, error) {
	p, err := s.projects.ClaimSettlement(ctx, projectID, callerID, false,
		projdomain.StatusOpen, projdomain.StatusInProgress)
	if err != nil {
		return nil, err
	}

	recipient, err := s.wallets.PayoutWallet(ctx, p.OwnerID)
	if err != nil {
		s.unclaim(ctx, projectID)
		return nil, err
	}

	return s.settle(ctx, ReconcileEntry{ProjectID: projectID, Kind: KindRefund},
		s.signer.SignRefund(recipient, p.BountyLamports))
}

// settle submits the signed transfer and drives it to a recorded outcome.
func (s *Service) settle(ctx context.Context, entry ReconcileEntry, build ledger.BuildFunc) (*Result, error) {
	sig, err := s.ledger.SubmitAndConfirm(ctx, build)
	if err != nil {
		if errors.Is(err, ledger.ErrConfirmationTimeout) {
			// Submitted with unknown fate: the claim stays held so nobody
			// can sign a second transfer, and the journal entry lets the
			// reconciler drive this to a terminal outcome.
			entry.Signature = sig.String()
			var inflight *ledger.InFlightError
			if errors.As(err, &inflight) {
				entry.LastValidBlockHeight = inflight.LastValidBlockHeight
			}
			s.journal(ctx, entry)
			return nil, fmt.Errorf("settlement in flight, do not resubmit: %w", err)
		}
		// Nothing reached the ledger; the project becomes claimable again.
		s.unclaim(ctx, entry.ProjectID)
		return nil, err
	}

	entry.Signature = sig.String()
	if err := s.record(ctx, entry); err != nil {
		// Funds moved and are unrecoverable by design; losing the record is
		// the one failure that must never be silent. Surface the signature
		// to the caller and journal for manual/automatic reconciliation.
		log.Printf("[settlement] CRITICAL record write failed after confirmed transfer project=%s kind=%s sig=%s err=%v",
			entry.ProjectID, entry.Kind, entry.Signature, err)
		s.journal(ctx, entry)
		return nil, &RecordFailedError{Entry: entry, Cause: err}
	}

	s.recorder.PublishSettled(ctx, entry)
	log.Printf("[settlement] %s settled project=%s sig=%s", entry.Kind, entry.ProjectID, entry.Signature)

	status := projdomain.StatusCompleted
	if entry.Kind == KindRefund {
		status = projdomain.StatusCancelled
	}
	return &Result{ProjectID: entry.ProjectID, Status: status, Signature: entry.Signature}, nil
}

func (s *Service) record(ctx context.Context, entry ReconcileEntry) error {
	if entry.Kind == KindRefund {
		return s.projects.FinishRefund(ctx, entry.ProjectID, entry.Signature)
	}
	return s.projects.FinishRelease(ctx, entry.ProjectID, entry.Signature)
}

func (s *Service) unclaim(ctx context.Context, projectID string) {
	if err := s.projects.ReleaseSettlementClaim(ctx, projectID); err != nil {
		log.Printf("[settlement] failed to release claim project=%s err=%v", projectID, err)
	}
}

// journal flags the project and enqueues the entry, both best-effort: the
// two stores fail independently, and either one is enough for an operator
// or the reconciler to find the transfer again.
func (s *Service) journal(ctx context.Context, entry ReconcileEntry) {
	if err := s.projects.MarkNeedsReconciliation(ctx, entry.ProjectID); err != nil {
		log.Printf("[settlement] failed to flag reconciliation project=%s err=%v", entry.ProjectID, err)
	}
	if err := s.recorder.Enqueue(ctx, entry); err != nil {
		log.Printf("[settlement] failed to enqueue reconciliation project=%s sig=%s err=%v",
			entry.ProjectID, entry.Signature, err)
	}
}

// Reconcile drains the journal: for each entry it re-checks the signature's
// fate on-ledger and completes the interrupted record write, or releases the
// claim when the transfer provably never landed. It never initiates a
// transfer.
func (s *Service) Reconcile(ctx context.Context) error {
	entries, err := s.recorder.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending reconciliations: %w", err)
	}

	for _, entry := range entries {
		if err := s.reconcileOne(ctx, entry); err != nil {
			log.Printf("[settlement] reconcile pending project=%s sig=%s err=%v",
				entry.ProjectID, entry.Signature, err)
		}
	}
	return nil
}

func (s *Service) reconcileOne(ctx context.Context, entry ReconcileEntry) error {
	sig, err := solana.SignatureFromBase58(entry.Signature)
	if err != nil {
		return fmt.Errorf("corrupt journal entry: %w", err)
	}

	switch err := s.ledger.ConfirmSignature(ctx, sig); {
	case err == nil:
		// transfer landed; repair the record
		if err := s.record(ctx, entry); err != nil {
			return err
		}
	case errors.Is(err, ledger.ErrTransactionFailed):
		// transfer landed and errored on-ledger: funds never moved, so the
		// project becomes settleable again
		s.unclaim(ctx, entry.ProjectID)
	case errors.Is(err, ledger.ErrSignatureNotFound):
		// Absence alone is not proof of death: the transfer may still be in
		// flight while its blockhash is live. Only a chain tip past the
		// journaled expiry height frees the claim; otherwise the entry waits
		// for the next sweep.
		expired, err := s.signatureExpired(ctx, entry)
		if err != nil || !expired {
			return err
		}
		s.unclaim(ctx, entry.ProjectID)
	default:
		// in flight or transient RPC trouble; keep the entry for the next sweep
		return err
	}

	if err := s.recorder.Resolve(ctx, entry.ProjectID); err != nil {
		return err
	}
	log.Printf("[settlement] reconciled project=%s kind=%s sig=%s", entry.ProjectID, entry.Kind, entry.Signature)
	return nil
}

// signatureExpired reports whether an unconfirmed signature can no longer
// land because the chain tip has passed its blockhash expiry. An entry
// without a recorded expiry height can never prove that, so it is held.
func (s *Service) signatureExpired(ctx context.Context, entry ReconcileEntry) (bool, error) {
	if entry.LastValidBlockHeight == 0 {
		return false, nil
	}
	height, err := s.ledger.BlockHeight(ctx)
	if err != nil {
		return false, err
	}
	return height > entry.LastValidBlockHeight, nil
}
