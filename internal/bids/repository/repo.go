package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const bidColumns = `
id::text, project_id::text, bidder_id::text, amount_lamports, estimated_time,
message, status, created_at, updated_at`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var b domain.Bid
	err := row.Scan(
		&b.ID, &b.ProjectID, &b.BidderID, &b.AmountLamports, &b.EstimatedTime,
		&b.Message, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) Create(ctx context.Context, req domain.PlaceBidRequest) (*domain.Bid, error) {
	const q = `
insert into bids (project_id, bidder_id, amount_lamports, estimated_time, message)
values ($1::uuid, $2::uuid, $3, $4, $5)
returning ` + bidColumns + `;
`
	return scanBid(r.db.QueryRow(ctx, q,
		req.ProjectID, req.BidderID, req.AmountLamports, req.EstimatedTime, req.Message,
	))
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.Bid, error) {
	const q = `select ` + bidColumns + ` from bids where id = $1::uuid;`
	return scanBid(r.db.QueryRow(ctx, q, id))
}

// ListByProject returns all bids on a project, newest first.
func (r *Repo) ListByProject(ctx context.Context, projectID string) ([]domain.Bid, error) {
	const q = `select ` + bidColumns + ` from bids where project_id = $1::uuid order by created_at desc;`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Bid, 0, 8)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Withdraw flips the caller's own pending bid to withdrawn. The conditional
// update doubles as the authorization check.
func (r *Repo) Withdraw(ctx context.Context, bidID, bidderID string) (*domain.Bid, error) {
	const q = `
update bids
set status = 'withdrawn', updated_at = now()
where id = $1::uuid and bidder_id = $2::uuid and status = 'pending'
returning ` + bidColumns + `;
`
	b, err := scanBid(r.db.QueryRow(ctx, q, bidID, bidderID))
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	cur, getErr := r.Get(ctx, bidID)
	if getErr != nil {
		return nil, getErr
	}
	if cur.BidderID != bidderID {
		return nil, domain.ErrNotBidder
	}
	return nil, domain.ErrInvalidBidState
}

// Accept applies the three-part acceptance as one transaction:
//
//  1. flip the project open → in_progress, conditioned on it still being
//     open and owned by the caller (the compare-and-swap gate);
//  2. flip the target bid pending → accepted, conditioned on it belonging
//     to the project;
//  3. reject every other pending bid on the project.
//
// Concurrent acceptances on the same project serialize on step 1: the loser
// matches zero rows and gets ErrInvalidTransition, never a second accepted
// bid. A failure at any later step rolls the whole unit back.
func (r *Repo) Accept(ctx context.Context, projectID, bidID, callerID string) (*domain.AcceptResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const qProject = `
update projects
set status = $3, accepted_bid_id = $2::uuid, updated_at = now()
where id = $1::uuid and owner_id = $4::uuid and status = $5
returning id;
`
	var claimed string
	err = tx.QueryRow(ctx, qProject, projectID, bidID, string(projdomain.StatusInProgress),
		callerID, string(projdomain.StatusOpen)).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.explainAcceptFailure(ctx, projectID, callerID)
		}
		// foreign key violation on accepted_bid_id: no such bid
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	const qAccept = `
update bids
set status = 'accepted', updated_at = now()
where id = $1::uuid and project_id = $2::uuid and status = 'pending'
returning id;
`
	var acceptedID string
	err = tx.QueryRow(ctx, qAccept, bidID, projectID).Scan(&acceptedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidBidState
		}
		return nil, err
	}

	const qReject = `
update bids
set status = 'rejected', updated_at = now()
where project_id = $1::uuid and status = 'pending';
`
	ct, err := tx.Exec(ctx, qReject, projectID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.AcceptResult{
		ProjectID:     projectID,
		ProjectStatus: string(projdomain.StatusInProgress),
		AcceptedBidID: acceptedID,
		RejectedBids:  int(ct.RowsAffected()),
	}, nil
}

// explainAcceptFailure re-reads the project outside the failed claim to
// report the precise error.
func (r *Repo) explainAcceptFailure(ctx context.Context, projectID, callerID string) error {
	const q = `select owner_id::text, status from projects where id = $1::uuid;`

	var ownerID, status string
	if err := r.db.QueryRow(ctx, q, projectID).Scan(&ownerID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return projdomain.ErrNotFound
		}
		return err
	}
	if ownerID != callerID {
		return projdomain.ErrNotOwner
	}
	return projdomain.ErrInvalidTransition
}
