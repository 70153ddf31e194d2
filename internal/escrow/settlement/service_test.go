package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bidsdomain "github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
	"github.com/vibefix-labs/vibefix-backend/internal/users"
)

type fakeProjects struct {
	project  *projdomain.Project
	claimErr error

	unclaimed      bool
	releasedSig    string
	refundedSig    string
	finishErr      error
	flaggedProject string
}

func (f *fakeProjects) ClaimSettlement(ctx context.Context, projectID, ownerID string, requireAcceptedBid bool, from ...projdomain.Status) (*projdomain.Project, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	return f.project, nil
}

func (f *fakeProjects) ReleaseSettlementClaim(ctx context.Context, projectID string) error {
	f.unclaimed = true
	return nil
}

func (f *fakeProjects) FinishRelease(ctx context.Context, projectID, signature string) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.releasedSig = signature
	return nil
}

func (f *fakeProjects) FinishRefund(ctx context.Context, projectID, signature string) error {
	if f.finishErr != nil {
		return f.finishErr
	}
	f.refundedSig = signature
	return nil
}

func (f *fakeProjects) MarkNeedsReconciliation(ctx context.Context, projectID string) error {
	f.flaggedProject = projectID
	return nil
}

type fakeBids struct {
	bid *bidsdomain.Bid
	err error
}

func (f *fakeBids) Get(ctx context.Context, id string) (*bidsdomain.Bid, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bid, nil
}

type fakeWallets struct {
	wallets map[string]solana.PublicKey
}

func (f *fakeWallets) PayoutWallet(ctx context.Context, userID string) (solana.PublicKey, error) {
	pk, ok := f.wallets[userID]
	if !ok {
		return solana.PublicKey{}, users.ErrNoWallet
	}
	return pk, nil
}

type fakeSigner struct {
	releaseRecipient solana.PublicKey
	releaseAmount    int64
	refundRecipient  solana.PublicKey
	refundAmount     int64
}

func (f *fakeSigner) SignRelease(recipient solana.PublicKey, gross int64) ledger.BuildFunc {
	f.releaseRecipient = recipient
	f.releaseAmount = gross
	return func(solana.Hash) (*solana.Transaction, error) { return &solana.Transaction{}, nil }
}

func (f *fakeSigner) SignRefund(recipient solana.PublicKey, gross int64) ledger.BuildFunc {
	f.refundRecipient = recipient
	f.refundAmount = gross
	return func(solana.Hash) (*solana.Transaction, error) { return &solana.Transaction{}, nil }
}

type fakeLedger struct {
	sig        solana.Signature
	submitErr  error
	confirmErr error
	submits    int

	height    uint64
	heightErr error
}

func (f *fakeLedger) SubmitAndConfirm(ctx context.Context, build ledger.BuildFunc) (solana.Signature, error) {
	f.submits++
	return f.sig, f.submitErr
}

func (f *fakeLedger) ConfirmSignature(ctx context.Context, sig solana.Signature) error {
	return f.confirmErr
}

func (f *fakeLedger) BlockHeight(ctx context.Context) (uint64, error) {
	return f.height, f.heightErr
}

type fakeRecorder struct {
	pending   []ReconcileEntry
	enqueued  []ReconcileEntry
	resolved  []string
	published []ReconcileEntry
}

func (f *fakeRecorder) Enqueue(ctx context.Context, e ReconcileEntry) error {
	f.enqueued = append(f.enqueued, e)
	return nil
}

func (f *fakeRecorder) ListPending(ctx context.Context) ([]ReconcileEntry, error) {
	return f.pending, nil
}

func (f *fakeRecorder) Resolve(ctx context.Context, projectID string) error {
	f.resolved = append(f.resolved, projectID)
	return nil
}

func (f *fakeRecorder) PublishSettled(ctx context.Context, e ReconcileEntry) {
	f.published = append(f.published, e)
}

type fixture struct {
	svc      *Service
	projects *fakeProjects
	signer   *fakeSigner
	ledger   *fakeLedger
	recorder *fakeRecorder
}

func newFixture() *fixture {
	bidID := "bid-1"
	f := &fixture{
		projects: &fakeProjects{project: &projdomain.Project{
			ID:             "proj-1",
			OwnerID:        "owner-1",
			BountyLamports: 1_000_000,
			Status:         projdomain.StatusInProgress,
			AcceptedBidID:  &bidID,
		}},
		signer:   &fakeSigner{},
		ledger:   &fakeLedger{sig: solana.Signature{7}},
		recorder: &fakeRecorder{},
	}
	bids := &fakeBids{bid: &bidsdomain.Bid{ID: bidID, ProjectID: "proj-1", BidderID: "bidder-1"}}
	wallets := &fakeWallets{wallets: map[string]solana.PublicKey{
		"owner-1":  {1},
		"bidder-1": {2},
	}}
	f.svc = New(f.projects, bids, wallets, f.signer, f.ledger, f.recorder)
	return f
}

func TestReleasePaysAcceptedBidder(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	require.NoError(t, err)

	assert.Equal(t, solana.PublicKey{2}, f.signer.releaseRecipient, "payout must target the bidder wallet")
	assert.Equal(t, int64(1_000_000), f.signer.releaseAmount, "gross amount comes from the project record")
	assert.Equal(t, solana.Signature{7}.String(), f.projects.releasedSig)
	assert.Equal(t, projdomain.StatusCompleted, res.Status)
	assert.Equal(t, solana.Signature{7}.String(), res.Signature)
	assert.Len(t, f.recorder.published, 1)
	assert.False(t, f.projects.unclaimed)
}

func TestReleaseClaimFailureStopsBeforeSigning(t *testing.T) {
	f := newFixture()
	f.projects.claimErr = projdomain.ErrInvalidTransition

	_, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	assert.ErrorIs(t, err, projdomain.ErrInvalidTransition)
	assert.Equal(t, 0, f.ledger.submits, "a failed claim must never reach the ledger")
}

func TestReleaseMissingWalletReleasesClaim(t *testing.T) {
	f := newFixture()
	bids := &fakeBids{bid: &bidsdomain.Bid{ID: "bid-1", BidderID: "no-wallet-user"}}
	f.svc = New(f.projects, bids, &fakeWallets{}, f.signer, f.ledger, f.recorder)

	_, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	assert.ErrorIs(t, err, users.ErrNoWallet)
	assert.True(t, f.projects.unclaimed, "claim must be returned so settlement can be retried")
	assert.Equal(t, 0, f.ledger.submits)
}

func TestReleaseSubmissionFailureReleasesClaim(t *testing.T) {
	f := newFixture()
	f.ledger.submitErr = ledger.ErrSubmission

	_, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	assert.ErrorIs(t, err, ledger.ErrSubmission)
	assert.True(t, f.projects.unclaimed)
	assert.Empty(t, f.recorder.enqueued, "nothing reached the ledger, nothing to reconcile")
}

func TestReleaseTimeoutKeepsClaimAndJournals(t *testing.T) {
	f := newFixture()
	f.ledger.submitErr = &ledger.InFlightError{Signature: solana.Signature{7}, LastValidBlockHeight: 150}

	_, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrConfirmationTimeout)

	assert.False(t, f.projects.unclaimed, "unknown fate must keep the claim held")
	require.Len(t, f.recorder.enqueued, 1)
	assert.Equal(t, solana.Signature{7}.String(), f.recorder.enqueued[0].Signature)
	assert.Equal(t, uint64(150), f.recorder.enqueued[0].LastValidBlockHeight,
		"the journal must carry the expiry height for the reconciler")
	assert.Equal(t, "proj-1", f.projects.flaggedProject)
	assert.Empty(t, f.projects.releasedSig)
}

func TestReleaseRecordFailureSurfacesSignature(t *testing.T) {
	f := newFixture()
	f.projects.finishErr = errors.New("connection reset")

	_, err := f.svc.Release(context.Background(), "proj-1", "owner-1")
	require.Error(t, err)

	var recErr *RecordFailedError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, solana.Signature{7}.String(), recErr.Entry.Signature)

	assert.False(t, f.projects.unclaimed, "funds moved; the claim must never be released")
	require.Len(t, f.recorder.enqueued, 1, "record failure must be journaled for repair")
	assert.Empty(t, f.recorder.published)
}

func TestRefundReturnsFullAmountToOwner(t *testing.T) {
	f := newFixture()

	res, err := f.svc.Refund(context.Background(), "proj-1", "owner-1")
	require.NoError(t, err)

	assert.Equal(t, solana.PublicKey{1}, f.signer.refundRecipient, "refund goes to the project owner")
	assert.Equal(t, int64(1_000_000), f.signer.refundAmount, "refunds carry no fee")
	assert.Equal(t, solana.Signature{7}.String(), f.projects.refundedSig)
	assert.Equal(t, projdomain.StatusCancelled, res.Status)
}

func TestReconcileRepairsConfirmedRecord(t *testing.T) {
	f := newFixture()
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRelease, Signature: solana.Signature{7}.String()},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.Equal(t, solana.Signature{7}.String(), f.projects.releasedSig)
	assert.Equal(t, []string{"proj-1"}, f.recorder.resolved)
}

func TestReconcileFailedTransferReleasesClaim(t *testing.T) {
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrTransactionFailed
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRefund, Signature: solana.Signature{7}.String()},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.True(t, f.projects.unclaimed, "a transfer that never landed frees the project for another attempt")
	assert.Empty(t, f.projects.refundedSig)
	assert.Equal(t, []string{"proj-1"}, f.recorder.resolved)
}

func TestReconcileAbsentSignatureKeepsClaimWhileBlockhashLive(t *testing.T) {
	// A journaled transfer can be invisible at confirmed commitment for its
	// whole blockhash lifetime and still land. Treating absence as death
	// here would free the claim while the payout is in flight, letting the
	// owner trigger a second transfer for the same bounty.
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrSignatureNotFound
	f.ledger.height = 90
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRelease, Signature: solana.Signature{7}.String(), LastValidBlockHeight: 100},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.False(t, f.projects.unclaimed, "an in-flight transfer must keep the claim held")
	assert.Empty(t, f.recorder.resolved, "the entry must survive until expiry is proven")
	assert.Empty(t, f.projects.releasedSig)
}

func TestReconcileAbsentSignatureWithoutExpiryHeightKeepsClaim(t *testing.T) {
	// legacy or repair-only entries carry no expiry height; nothing can be
	// proven about them, so they are held for an operator
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrSignatureNotFound
	f.ledger.height = 1_000_000
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRelease, Signature: solana.Signature{7}.String()},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.False(t, f.projects.unclaimed)
	assert.Empty(t, f.recorder.resolved)
}

func TestReconcileExpiredSignatureReleasesClaim(t *testing.T) {
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrSignatureNotFound
	f.ledger.height = 101
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRefund, Signature: solana.Signature{7}.String(), LastValidBlockHeight: 100},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.True(t, f.projects.unclaimed,
		"a signature absent past its blockhash expiry can never land; the project is settleable again")
	assert.Empty(t, f.projects.refundedSig)
	assert.Equal(t, []string{"proj-1"}, f.recorder.resolved)
}

func TestReconcileUnconfirmedSignatureKeepsEntry(t *testing.T) {
	// visible at processed commitment: alive and about to confirm
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrUnconfirmed
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRelease, Signature: solana.Signature{7}.String(), LastValidBlockHeight: 100},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.False(t, f.projects.unclaimed)
	assert.Empty(t, f.recorder.resolved)
}

func TestReconcileTransientErrorKeepsEntry(t *testing.T) {
	f := newFixture()
	f.ledger.confirmErr = ledger.ErrNetwork
	f.recorder.pending = []ReconcileEntry{
		{ProjectID: "proj-1", Kind: KindRelease, Signature: solana.Signature{7}.String()},
	}

	require.NoError(t, f.svc.Reconcile(context.Background()))

	assert.Empty(t, f.recorder.resolved, "the entry must survive until the fate is known")
	assert.False(t, f.projects.unclaimed)
}
