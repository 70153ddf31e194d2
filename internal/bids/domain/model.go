package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Bid is a developer's offer to fix a project. Amounts are lamports.
type Bid struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	BidderID       string    `json:"bidder_id"`
	AmountLamports int64     `json:"amount_lamports"`
	EstimatedTime  string    `json:"estimated_time"`
	Message        string    `json:"message"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PlaceBidRequest carries validated input for a new bid.
type PlaceBidRequest struct {
	ProjectID      string
	BidderID       string
	AmountLamports int64
	EstimatedTime  string
	Message        string
}

// AcceptResult is the authoritative state after a successful acceptance.
// Callers treat their client-side state as provisional until it arrives.
type AcceptResult struct {
	ProjectID     string `json:"project_id"`
	ProjectStatus string `json:"project_status"`
	AcceptedBidID string `json:"accepted_bid_id"`
	RejectedBids  int    `json:"rejected_bids"`
}
