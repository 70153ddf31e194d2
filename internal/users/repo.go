package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("user not found")

	// ErrNoWallet: the user has no payout wallet configured. Settlements
	// cannot proceed without one; the UI prompts the user to add it.
	ErrNoWallet = errors.New("no wallet address configured")

	// ErrBadWallet: the submitted wallet address is not a valid address.
	ErrBadWallet = errors.New("invalid wallet address")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type User struct {
	ID            string    `json:"id"`
	FirebaseUID   string    `json:"-"`
	Email         *string   `json:"email,omitempty"`
	DisplayName   *string   `json:"display_name,omitempty"`
	WalletAddress *string   `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
}

// EnsureUser upserts the authenticated user row and returns its DB id.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (string, error) {
	if u.FirebaseUID == "" {
		return "", fmt.Errorf("firebase_uid required")
	}

	const q = `
insert into users (firebase_uid, email, display_name, updated_at)
values ($1, nullif($2,''), nullif($3,''), now())
on conflict (firebase_uid) do update
set
  email = coalesce(excluded.email, users.email),
  display_name = coalesce(excluded.display_name, users.display_name),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRow(ctx, q, u.FirebaseUID, u.Email, u.DisplayName).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

const userColumns = `id::text, firebase_uid, email, display_name, wallet_address, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirebaseUID, &u.Email, &u.DisplayName,
		&u.WalletAddress, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*User, error) {
	const q = `select ` + userColumns + ` from users where id = $1::uuid;`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

// PayoutWallet resolves the user's payout address as a ledger public key.
func (r *Repo) PayoutWallet(ctx context.Context, id string) (solana.PublicKey, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if u.WalletAddress == nil || strings.TrimSpace(*u.WalletAddress) == "" {
		return solana.PublicKey{}, ErrNoWallet
	}

	pk, err := solana.PublicKeyFromBase58(*u.WalletAddress)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrBadWallet, *u.WalletAddress)
	}
	return pk, nil
}

type UpdateProfile struct {
	DisplayName   *string
	WalletAddress *string
}

// Update patches profile fields. The wallet address is validated as a real
// ledger address before it can become a payout destination.
func (r *Repo) Update(ctx context.Context, id string, p UpdateProfile) (*User, error) {
	if p.WalletAddress != nil && strings.TrimSpace(*p.WalletAddress) != "" {
		if _, err := solana.PublicKeyFromBase58(strings.TrimSpace(*p.WalletAddress)); err != nil {
			return nil, ErrBadWallet
		}
	}

	const q = `
update users
set
  display_name = coalesce($2, display_name),
  wallet_address = coalesce(nullif(trim($3), ''), wallet_address),
  updated_at = now()
where id = $1::uuid
returning ` + userColumns + `;
`
	return scanUser(r.db.QueryRow(ctx, q, id, p.DisplayName, p.WalletAddress))
}
