package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNetwork means the transaction could not even be built (e.g. no
	// recent blockhash). Nothing was submitted; callers may retry.
	ErrNetwork = errors.New("ledger network unavailable")

	// ErrSubmission means the network rejected the transaction outright.
	// Nothing landed on-ledger; a retry must rebuild with a fresh blockhash,
	// never resend the same bytes.
	ErrSubmission = errors.New("ledger rejected transaction")

	// ErrConfirmationTimeout means a transaction was submitted but its fate
	// is unknown after the retry budget. Callers must not resubmit.
	ErrConfirmationTimeout = errors.New("ledger confirmation timed out")

	// ErrSignatureNotFound means a claimed signature is unknown to the
	// ledger at confirmed commitment. The transaction may never have been
	// submitted, or may still be in flight: absence alone proves nothing
	// until the blockhash it was built against has expired.
	ErrSignatureNotFound = errors.New("transaction signature not found")

	// ErrUnconfirmed means the signature is visible on-ledger but has not
	// yet reached confirmed commitment. The transaction is alive; callers
	// must treat it as in flight, never as absent.
	ErrUnconfirmed = errors.New("transaction not yet confirmed")

	// ErrTransactionFailed means the transaction landed but errored.
	ErrTransactionFailed = errors.New("transaction failed on-ledger")

	// ErrDepositMismatch means a deposit transaction confirmed but did not
	// credit the escrow account with the required amount.
	ErrDepositMismatch = errors.New("deposit did not fund escrow")
)

// InFlightError is the unknown-fate outcome of SubmitAndConfirm: the
// transaction was submitted and its blockhash may still be live. It carries
// the attempt's last valid block height so a reconciler can later prove
// expiry before releasing the settlement claim.
// errors.Is(err, ErrConfirmationTimeout) holds for it.
type InFlightError struct {
	Signature            solana.Signature
	LastValidBlockHeight uint64
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("confirmation pending for signature %s (blockhash valid through height %d)",
		e.Signature, e.LastValidBlockHeight)
}

func (e *InFlightError) Unwrap() error {
	return ErrConfirmationTimeout
}
