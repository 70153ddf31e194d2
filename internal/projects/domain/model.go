package domain

import "time"

// Project is a posted bounty. It is storage-agnostic and used across the
// repository and HTTP layers. Amounts are lamports; decimal display
// conversion happens only in the UI.
type Project struct {
	ID                    string     `json:"id"`
	OwnerID               string     `json:"owner_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	BountyLamports        int64      `json:"bounty_lamports"`
	Status                Status     `json:"status"`
	Deadline              *time.Time `json:"deadline,omitempty"`
	AcceptedBidID         *string    `json:"accepted_bid_id,omitempty"`
	EscrowTxSignature     string     `json:"escrow_tx_signature"`
	CompletionTxSignature *string    `json:"completion_tx_signature,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CreateProjectRequest carries validated input for posting a project. The
// escrow deposit signature must already be confirmed on-ledger; a project
// record cannot exist without funds in escrow.
type CreateProjectRequest struct {
	OwnerID           string
	Title             string
	Description       string
	BountyLamports    int64
	Deadline          *time.Time
	EscrowTxSignature string
}

// ListFilter narrows marketplace listings.
type ListFilter struct {
	Status  Status
	OwnerID string
}
