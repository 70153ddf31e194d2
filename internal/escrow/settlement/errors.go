package settlement

import "fmt"

// RecordFailedError reports the most severe failure mode: the on-ledger
// transfer confirmed but the record write failed. The signature must reach
// the caller even though the request as a whole failed, so it rides on the
// error.
type RecordFailedError struct {
	Entry ReconcileEntry
	Cause error
}

func (e *RecordFailedError) Error() string {
	return fmt.Sprintf("transfer %s confirmed but record update failed: %v", e.Entry.Signature, e.Cause)
}

func (e *RecordFailedError) Unwrap() error {
	return e.Cause
}
