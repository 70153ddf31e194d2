package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/vibefix-labs/vibefix-backend/config"
	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	"github.com/vibefix-labs/vibefix-backend/internal/bootstrap"
	cronjob "github.com/vibefix-labs/vibefix-backend/internal/escrow/cron"
	"github.com/vibefix-labs/vibefix-backend/internal/escrow/custody"
	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
)

const serviceName = "vibefix-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	authClient, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	escrow, err := custody.Load(cfg.Solana.EscrowSecretKey, cfg.Solana.PlatformFeeBps)
	if err != nil {
		log.Fatalf("escrow custody: %v", err)
	}
	log.Printf("escrow wallet: %s (fee %d bps)", escrow.PublicKey(), cfg.Solana.PlatformFeeBps)

	ledgerClient := ledger.New(cfg.Solana.RPCURL, ledger.Options{
		MaxAttempts: cfg.Solana.ConfirmRetries,
		RatePerSec:  cfg.Solana.RPCRatePerSec,
	})

	router, settleSvc := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:       serviceName,
		Version:           cfg.App.Version,
		AllowedOrigins:    strings.Split(cfg.Server.AllowedOrigins, ","),
		DB:                db,
		Redis:             rdb,
		Auth:              authClient,
		Ledger:            ledgerClient,
		Custody:           escrow,
		MinBountyLamports: int64(cfg.Solana.MinBountyLamports),
		BalanceCacheTTL:   10 * time.Second,
	})

	scheduler := cronjob.NewScheduler(settleSvc)
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("%s listening on :%s", serviceName, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
