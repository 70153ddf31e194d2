package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
)

// Repo provides persistence for projects, including the status-guarded
// conditional writes the settlement orchestrator depends on.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const projectColumns = `
id::text, owner_id::text, title, description, bounty_lamports, status,
deadline, accepted_bid_id::text, escrow_tx_signature, completion_tx_signature,
created_at, updated_at`

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.BountyLamports,
		&p.Status, &p.Deadline, &p.AcceptedBidID, &p.EscrowTxSignature,
		&p.CompletionTxSignature, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new open project. The caller has already confirmed the
// escrow deposit signature on-ledger; the NOT NULL and UNIQUE constraints on
// escrow_tx_signature back that at the schema level: no record without a
// deposit, and no deposit backing two bounties.
func (r *Repo) Create(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	if req.EscrowTxSignature == "" {
		return nil, domain.ErrDepositNotConfirmed
	}

	const q = `
insert into projects (owner_id, title, description, bounty_lamports, deadline, escrow_tx_signature)
values ($1::uuid, $2, $3, $4, $5, $6)
returning ` + projectColumns + `;
`
	p, err := scanProject(r.db.QueryRow(ctx, q,
		req.OwnerID, req.Title, req.Description, req.BountyLamports,
		req.Deadline, req.EscrowTxSignature,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDepositAlreadyUsed
		}
		return nil, err
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*domain.Project, error) {
	const q = `select ` + projectColumns + ` from projects where id = $1::uuid;`
	return scanProject(r.db.QueryRow(ctx, q, id))
}

// List returns marketplace projects, newest first.
func (r *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, error) {
	q := `select ` + projectColumns + ` from projects where true`
	args := []any{}

	if f.Status != "" {
		args = append(args, string(f.Status))
		q += fmt.Sprintf(" and status = $%d", len(args))
	}
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		q += fmt.Sprintf(" and owner_id = $%d::uuid", len(args))
	}
	q += " order by created_at desc;"

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ClaimSettlement atomically claims a project for settlement. It succeeds
// only when the caller owns the project, the status is one of from, no other
// settlement is in flight, and (for release) an accepted bid exists. The
// claim happens before any signing, so the loser of a concurrent attempt
// observes ErrInvalidTransition and no second transfer is ever signed.
func (r *Repo) ClaimSettlement(ctx context.Context, projectID, ownerID string, requireAcceptedBid bool, from ...domain.Status) (*domain.Project, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	q := `
update projects
set settling = true, updated_at = now()
where id = $1::uuid and owner_id = $2::uuid
  and status = any($3) and not settling`
	if requireAcceptedBid {
		q += ` and accepted_bid_id is not null`
	}
	q += ` returning ` + projectColumns + `;`

	p, err := scanProject(r.db.QueryRow(ctx, q, projectID, ownerID, statuses))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows: re-fetch once to report the precise reason.
	cur, getErr := r.Get(ctx, projectID)
	if getErr != nil {
		return nil, getErr
	}
	if cur.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return nil, domain.ErrInvalidTransition
}

// ReleaseSettlementClaim undoes a claim after a pre-submission failure.
// Nothing moved on-ledger, so the project simply becomes claimable again.
func (r *Repo) ReleaseSettlementClaim(ctx context.Context, projectID string) error {
	const q = `update projects set settling = false, updated_at = now() where id = $1::uuid;`
	_, err := r.db.Exec(ctx, q, projectID)
	return err
}

// FinishRelease records a confirmed release: the project is completed and
// carries the settlement signature.
func (r *Repo) FinishRelease(ctx context.Context, projectID, signature string) error {
	const q = `
update projects
set status = $2, completion_tx_signature = $3, settling = false,
    needs_reconciliation = false, updated_at = now()
where id = $1::uuid;
`
	ct, err := r.db.Exec(ctx, q, projectID, string(domain.StatusCompleted), signature)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FinishRefund records a confirmed refund: the project is cancelled and any
// previously accepted bid flips to rejected, so a cancelled project never
// carries an accepted bid. Both writes commit together.
func (r *Repo) FinishRefund(ctx context.Context, projectID, signature string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const qp = `
update projects
set status = $2, completion_tx_signature = $3, settling = false,
    needs_reconciliation = false, updated_at = now()
where id = $1::uuid;
`
	ct, err := tx.Exec(ctx, qp, projectID, string(domain.StatusCancelled), signature)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	const qb = `
update bids set status = 'rejected', updated_at = now()
where project_id = $1::uuid and status = 'accepted';
`
	if _, err := tx.Exec(ctx, qb, projectID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkNeedsReconciliation flags a project whose on-ledger transfer confirmed
// but whose record update failed. Best-effort by nature: the caller also
// records the signature in the Redis reconciliation queue, which lives in a
// different failure domain than Postgres.
func (r *Repo) MarkNeedsReconciliation(ctx context.Context, projectID string) error {
	const q = `update projects set needs_reconciliation = true, updated_at = now() where id = $1::uuid;`
	_, err := r.db.Exec(ctx, q, projectID)
	return err
}
