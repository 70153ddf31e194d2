package ledger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"
)

// BuildFunc builds and signs a transaction against the given recent
// blockhash. SubmitAndConfirm calls it again on every retry so that a resend
// is always a rebuild, never the same bytes with a stale blockhash.
type BuildFunc func(recentBlockhash solana.Hash) (*solana.Transaction, error)

// rpcAPI is the slice of the Solana RPC surface the client uses.
// *rpc.Client satisfies it; tests substitute a fake.
type rpcAPI interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, txSig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// Client wraps the Solana RPC connection. It owns all network interaction and
// never touches the persistence layer.
type Client struct {
	rpc          rpcAPI
	limiter      *rate.Limiter
	maxAttempts  int
	pollInterval time.Duration
}

type Options struct {
	// MaxAttempts bounds rebuild-and-resubmit cycles for SubmitAndConfirm.
	MaxAttempts int
	// RatePerSec caps outgoing RPC calls (public RPC endpoints throttle hard).
	RatePerSec float64
	// PollInterval is the signature-status polling cadence.
	PollInterval time.Duration
}

func New(rpcURL string, opts Options) *Client {
	return newClient(rpc.New(rpcURL), opts)
}

func newClient(api rpcAPI, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 10
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	return &Client{
		rpc:          api,
		limiter:      rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)),
		maxAttempts:  opts.MaxAttempts,
		pollInterval: opts.PollInterval,
	}
}

// Balance returns the confirmed balance in lamports. Balance display is
// best-effort: network failures log and report zero instead of propagating.
func (c *Client) Balance(ctx context.Context, account solana.PublicKey) int64 {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0
	}
	out, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		log.Printf("[ledger] balance fetch failed account=%s err=%v", account, err)
		return 0
	}
	return int64(out.Value)
}

// SubmitAndConfirm drives a transfer to a terminal outcome: build against a
// fresh blockhash, submit, poll at confirmed commitment. When an attempt's
// blockhash expires without the transaction landing, the transfer can no
// longer be included, so it is safe to rebuild and resubmit; that cycle runs
// at most maxAttempts times. A submitted transaction whose blockhash is still
// live when the context deadline hits is reported as ErrConfirmationTimeout
// and must not be resubmitted by anyone.
func (c *Client) SubmitAndConfirm(ctx context.Context, build BuildFunc) (solana.Signature, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			log.Printf("[ledger] blockhash expired, rebuilding (attempt %d/%d)", attempt, c.maxAttempts)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return solana.Signature{}, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("%w: fetch blockhash: %v", ErrNetwork, err)
		}

		tx, err := build(bh.Value.Blockhash)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return solana.Signature{}, fmt.Errorf("%w: %v", ErrNetwork, err)
		}
		sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err != nil {
			// Preflight rejection: nothing reached the ledger. The dominant
			// cause is a blockhash that went stale between fetch and send, so
			// loop around for a rebuild instead of resending the same bytes.
			lastErr = fmt.Errorf("%w: %v", ErrSubmission, err)
			continue
		}

		confirmed, expired, err := c.awaitConfirmation(ctx, sig, bh.Value.LastValidBlockHeight)
		if err != nil {
			return sig, err
		}
		if confirmed {
			return sig, nil
		}
		if expired {
			lastErr = fmt.Errorf("%w: signature %s expired unconfirmed", ErrSubmission, sig)
			continue
		}

		// Submitted, unconfirmed, blockhash still live: fate unknown.
		return sig, &InFlightError{Signature: sig, LastValidBlockHeight: bh.Value.LastValidBlockHeight}
	}

	if lastErr == nil {
		lastErr = ErrConfirmationTimeout
	}
	return solana.Signature{}, lastErr
}

// awaitConfirmation polls the signature status until it reaches confirmed
// commitment, the attempt's blockhash expires, or the context deadline hits.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (confirmed, expired bool, err error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, false, &InFlightError{Signature: sig, LastValidBlockHeight: lastValidBlockHeight}
		case <-ticker.C:
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return false, false, &InFlightError{Signature: sig, LastValidBlockHeight: lastValidBlockHeight}
		}
		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			log.Printf("[ledger] status poll failed sig=%s err=%v", sig, err)
			continue
		}

		if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return false, false, fmt.Errorf("%w: signature %s failed on-ledger: %v", ErrSubmission, sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return true, false, nil
			}
			continue
		}

		// Unknown signature: either still in flight or its blockhash expired.
		height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			continue
		}
		if height > lastValidBlockHeight {
			return false, true, nil
		}
	}
}

// ConfirmSignature verifies that a transaction landed at confirmed
// commitment and did not error. A signature visible at a lower commitment
// (processed) reports ErrUnconfirmed, not ErrSignatureNotFound: it is still
// in flight and must not be treated as dead.
func (c *Client) ConfirmSignature(ctx context.Context, sig solana.Signature) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return fmt.Errorf("%w: signature status: %v", ErrNetwork, err)
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return ErrSignatureNotFound
	}

	st := statuses.Value[0]
	if st.Err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, st.Err)
	}
	if st.ConfirmationStatus != rpc.ConfirmationStatusConfirmed &&
		st.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
		return fmt.Errorf("%w: signature %s at %s commitment", ErrUnconfirmed, sig, st.ConfirmationStatus)
	}
	return nil
}

// BlockHeight returns the current block height at confirmed commitment.
// Reconciliation uses it to prove that an unconfirmed signature's blockhash
// has expired before giving up on the transfer.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	height, err := c.rpc.GetBlockHeight(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("%w: block height: %v", ErrNetwork, err)
	}
	return height, nil
}

// ConfirmDeposit verifies a client-side escrow deposit. Project creation is
// gated on this: no project record may exist without funds actually in
// escrow. Confirming the signature alone is not enough, since any confirmed
// signature would pass; the transaction is fetched and must show the escrow
// account credited with at least minLamports.
func (c *Client) ConfirmDeposit(ctx context.Context, sig solana.Signature, escrow solana.PublicKey, minLamports int64) error {
	if err := c.ConfirmSignature(ctx, sig); err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	maxVersion := uint64(0)
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return fmt.Errorf("%w: fetch transaction: %v", ErrNetwork, err)
	}
	if out == nil || out.Meta == nil || out.Transaction == nil {
		return ErrSignatureNotFound
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return fmt.Errorf("%w: undecodable transaction: %v", ErrDepositMismatch, err)
	}
	return verifyEscrowCredit(tx, out.Meta, escrow, minLamports)
}

// verifyEscrowCredit checks the balance deltas of a confirmed transaction
// for a credit of at least minLamports to the escrow account.
func verifyEscrowCredit(tx *solana.Transaction, meta *rpc.TransactionMeta, escrow solana.PublicKey, minLamports int64) error {
	for i, key := range tx.Message.AccountKeys {
		if !key.Equals(escrow) {
			continue
		}
		if i >= len(meta.PreBalances) || i >= len(meta.PostBalances) {
			break
		}
		credited := int64(meta.PostBalances[i]) - int64(meta.PreBalances[i])
		if credited >= minLamports {
			return nil
		}
		return fmt.Errorf("%w: escrow credited %d of %d lamports", ErrDepositMismatch, credited, minLamports)
	}
	return fmt.Errorf("%w: escrow account not referenced", ErrDepositMismatch)
}
