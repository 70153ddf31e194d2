package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefix-labs/vibefix-backend/internal/bids/domain"
	projdomain "github.com/vibefix-labs/vibefix-backend/internal/projects/domain"
	projrepo "github.com/vibefix-labs/vibefix-backend/internal/projects/repository"
)

// setupDB connects to the integration database and applies migrations.
// Skips the test when TEST_DB_DSN is not set.
func setupDB(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping PostgreSQL integration test")
	}

	mdb, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(mdb, "../../../migrations"))
	require.NoError(t, mdb.Close())

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `truncate bids, projects, users cascade`)
		pool.Close()
	})
	return pool
}

func createUser(t *testing.T, pool *pgxpool.Pool) string {
	var id string
	err := pool.QueryRow(context.Background(),
		`insert into users (firebase_uid) values ($1) returning id::text`,
		uuid.NewString()).Scan(&id)
	require.NoError(t, err)
	return id
}

func createOpenProject(t *testing.T, pool *pgxpool.Pool, ownerID string) *projdomain.Project {
	p, err := projrepo.NewRepo(pool).Create(context.Background(), projdomain.CreateProjectRequest{
		OwnerID:           ownerID,
		Title:             "fix null deref in importer",
		BountyLamports:    50_000_000,
		EscrowTxSignature: uuid.NewString(),
	})
	require.NoError(t, err)
	return p
}

func placeBid(t *testing.T, repo *Repo, projectID, bidderID string) *domain.Bid {
	b, err := repo.Create(context.Background(), domain.PlaceBidRequest{
		ProjectID:      projectID,
		BidderID:       bidderID,
		AmountLamports: 40_000_000,
		EstimatedTime:  "3 days",
	})
	require.NoError(t, err)
	return b
}

func TestAcceptFlow(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	repo := NewRepo(pool)

	owner := createUser(t, pool)
	bidder1 := createUser(t, pool)
	bidder2 := createUser(t, pool)
	p := createOpenProject(t, pool, owner)
	b1 := placeBid(t, repo, p.ID, bidder1)
	b2 := placeBid(t, repo, p.ID, bidder2)

	res, err := repo.Accept(ctx, p.ID, b1.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, b1.ID, res.AcceptedBidID)
	assert.Equal(t, string(projdomain.StatusInProgress), res.ProjectStatus)
	assert.Equal(t, 1, res.RejectedBids)

	got1, err := repo.Get(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, got1.Status)

	got2, err := repo.Get(ctx, b2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got2.Status)

	proj, err := projrepo.NewRepo(pool).Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, projdomain.StatusInProgress, proj.Status)
	require.NotNil(t, proj.AcceptedBidID)
	assert.Equal(t, b1.ID, *proj.AcceptedBidID)

	// the project already left open; a second acceptance must lose cleanly
	_, err = repo.Accept(ctx, p.ID, b2.ID, owner)
	assert.ErrorIs(t, err, projdomain.ErrInvalidTransition)
}

func TestAcceptRequiresOwner(t *testing.T) {
	pool := setupDB(t)
	repo := NewRepo(pool)

	owner := createUser(t, pool)
	bidder := createUser(t, pool)
	stranger := createUser(t, pool)
	p := createOpenProject(t, pool, owner)
	b := placeBid(t, repo, p.ID, bidder)

	_, err := repo.Accept(context.Background(), p.ID, b.ID, stranger)
	assert.ErrorIs(t, err, projdomain.ErrNotOwner)
}

func TestAcceptUnknownBid(t *testing.T) {
	pool := setupDB(t)
	repo := NewRepo(pool)

	owner := createUser(t, pool)
	p := createOpenProject(t, pool, owner)

	_, err := repo.Accept(context.Background(), p.ID, uuid.NewString(), owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithdraw(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	repo := NewRepo(pool)

	owner := createUser(t, pool)
	bidder := createUser(t, pool)
	other := createUser(t, pool)
	p := createOpenProject(t, pool, owner)
	b := placeBid(t, repo, p.ID, bidder)

	_, err := repo.Withdraw(ctx, b.ID, other)
	assert.ErrorIs(t, err, domain.ErrNotBidder)

	got, err := repo.Withdraw(ctx, b.ID, bidder)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, got.Status)

	// a withdrawn bid cannot be withdrawn again
	_, err = repo.Withdraw(ctx, b.ID, bidder)
	assert.ErrorIs(t, err, domain.ErrInvalidBidState)
}
