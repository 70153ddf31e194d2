package custody

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
)

// feeDenominator converts basis points to a fraction. Fee math is pure
// integer arithmetic: fee = gross * feeBps / 10_000, floored by division.
const feeDenominator = 10_000

// Custody is the sole holder of the escrow signing authority. The key is
// loaded once at startup and never leaves this package; callers only receive
// signed transaction builders.
type Custody struct {
	key    solana.PrivateKey
	feeBps uint64
}

// Load materializes the escrow keypair from the configured secret. The secret
// may be a JSON byte array (solana-keygen format) or a base58 string. A
// missing or malformed secret is a configuration error; the process must not
// start without a working escrow authority.
func Load(secret string, feeBps uint64) (*Custody, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("escrow secret key is not set")
	}
	if feeBps >= feeDenominator {
		return nil, fmt.Errorf("platform fee %d bps is not below 100%%", feeBps)
	}

	key, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}

	return &Custody{key: key, feeBps: feeBps}, nil
}

func parseSecret(secret string) (solana.PrivateKey, error) {
	if strings.HasPrefix(secret, "[") {
		var raw []int
		if err := json.Unmarshal([]byte(secret), &raw); err != nil {
			return nil, fmt.Errorf("escrow secret key: invalid JSON array")
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("escrow secret key: expected 64 bytes, got %d", len(raw))
		}
		key := make(solana.PrivateKey, len(raw))
		for i, b := range raw {
			if b < 0 || b > 255 {
				return nil, fmt.Errorf("escrow secret key: byte %d out of range", i)
			}
			key[i] = byte(b)
		}
		return key, nil
	}

	key, err := solana.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("escrow secret key: not valid base58")
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("escrow secret key: expected 64 bytes, got %d", len(key))
	}
	return key, nil
}

// PublicKey returns the escrow account address (safe to expose; deposits are
// sent here by project owners).
func (c *Custody) PublicKey() solana.PublicKey {
	return c.key.PublicKey()
}

// Split computes the release payout for a gross bounty amount. The platform
// fee is floored and retained in the escrow account; it is not transferred
// anywhere. The quotient/remainder form keeps gross*feeBps from overflowing
// int64 on large bounties while preserving the exact floor.
func (c *Custody) Split(gross int64) (payout, fee int64) {
	bps := int64(c.feeBps)
	fee = gross/feeDenominator*bps + gross%feeDenominator*bps/feeDenominator
	return gross - fee, fee
}

// SignRelease returns a builder for the settlement transfer of a completed
// project: payout (gross minus platform fee) from escrow to the developer.
// The builder re-signs on every invocation so retries always carry a fresh
// blockhash. Correctness of gross is the caller's responsibility and must be
// sourced from the project record, never from client input.
func (c *Custody) SignRelease(recipient solana.PublicKey, gross int64) ledger.BuildFunc {
	payout, _ := c.Split(gross)
	return c.signTransfer(recipient, payout)
}

// SignRefund returns a builder for the full-amount refund of a cancelled
// project. No fee is deducted: cancelling must not cost the owner anything.
func (c *Custody) SignRefund(recipient solana.PublicKey, gross int64) ledger.BuildFunc {
	return c.signTransfer(recipient, gross)
}

func (c *Custody) signTransfer(recipient solana.PublicKey, lamports int64) ledger.BuildFunc {
	return func(recentBlockhash solana.Hash) (*solana.Transaction, error) {
		if lamports <= 0 || lamports > ledger.MaxLamports {
			return nil, fmt.Errorf("transfer amount %d out of range", lamports)
		}

		ix := system.NewTransferInstruction(
			uint64(lamports),
			c.key.PublicKey(),
			recipient,
		).Build()

		tx, err := solana.NewTransaction(
			[]solana.Instruction{ix},
			recentBlockhash,
			solana.TransactionPayer(c.key.PublicKey()),
		)
		if err != nil {
			return nil, fmt.Errorf("build transfer: %w", err)
		}

		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(c.key.PublicKey()) {
				return &c.key
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("sign transfer: %w", err)
		}

		return tx, nil
	}
}
