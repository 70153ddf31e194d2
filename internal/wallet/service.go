package wallet

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
)

const balanceKeyPrefix = "wallet:balance:" // cached lamports: wallet:balance:{address}

// ErrBadAddress: the supplied wallet address is not a valid address.
var ErrBadAddress = errors.New("invalid wallet address")

// BalanceProvider reads a confirmed balance from the ledger.
type BalanceProvider interface {
	Balance(ctx context.Context, account solana.PublicKey) int64
}

// Service serves wallet balances through a short-TTL Redis cache so that the
// marketplace UI polling balances does not hammer the RPC endpoint.
type Service struct {
	ledger BalanceProvider
	cache  *redis.Client
	ttl    time.Duration
}

func New(ledger BalanceProvider, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{ledger: ledger, cache: cache, ttl: ttl}
}

// Balance returns the address's balance in lamports, cached.
func (s *Service) Balance(ctx context.Context, address string) (int64, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, ErrBadAddress
	}

	key := balanceKeyPrefix + pk.String()
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		if v, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return v, nil
		}
	}

	lamports := s.ledger.Balance(ctx, pk)
	if err := s.cache.Set(ctx, key, strconv.FormatInt(lamports, 10), s.ttl).Err(); err != nil {
		log.Printf("[wallet] balance cache write failed address=%s err=%v", pk, err)
	}
	return lamports, nil
}
