package bootstrap

import (
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/vibefix-labs/vibefix-backend/internal/api/http"
	apimiddleware "github.com/vibefix-labs/vibefix-backend/internal/api/http/middleware"
	"github.com/vibefix-labs/vibefix-backend/internal/auth"
	bidshttp "github.com/vibefix-labs/vibefix-backend/internal/bids/http"
	bidsrepo "github.com/vibefix-labs/vibefix-backend/internal/bids/repository"
	bidsservice "github.com/vibefix-labs/vibefix-backend/internal/bids/service"
	"github.com/vibefix-labs/vibefix-backend/internal/escrow/custody"
	escrowhttp "github.com/vibefix-labs/vibefix-backend/internal/escrow/http"
	"github.com/vibefix-labs/vibefix-backend/internal/escrow/settlement"
	"github.com/vibefix-labs/vibefix-backend/internal/ledger"
	projhttp "github.com/vibefix-labs/vibefix-backend/internal/projects/http"
	projrepo "github.com/vibefix-labs/vibefix-backend/internal/projects/repository"
	projservice "github.com/vibefix-labs/vibefix-backend/internal/projects/service"
	"github.com/vibefix-labs/vibefix-backend/internal/users"
	usershttp "github.com/vibefix-labs/vibefix-backend/internal/users/http"
	"github.com/vibefix-labs/vibefix-backend/internal/wallet"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	AllowedOrigins []string

	DB      *pgxpool.Pool
	Redis   *redis.Client
	Auth    *firebaseauth.Client
	Ledger  *ledger.Client
	Custody *custody.Custody

	MinBountyLamports int64
	BalanceCacheTTL   time.Duration
}

// BuildRouter wires repositories, services, and handlers into the API router.
// The settlement service is returned alongside so the process can schedule
// its reconciliation sweep.
func BuildRouter(dep RouterDeps) (*gin.Engine, *settlement.Service) {
	r := gin.Default()

	r.Use(apimiddleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	userRepo := users.NewRepo(dep.DB)
	projectRepo := projrepo.NewRepo(dep.DB)
	bidRepo := bidsrepo.NewRepo(dep.DB)

	projectSvc := projservice.New(projectRepo, dep.Ledger, dep.Custody.PublicKey(), dep.MinBountyLamports)
	bidSvc := bidsservice.New(bidRepo, projectRepo)
	settleSvc := settlement.New(projectRepo, bidRepo, userRepo, dep.Custody, dep.Ledger,
		settlement.NewQueue(dep.Redis))
	walletSvc := wallet.New(dep.Ledger, dep.Redis, dep.BalanceCacheTTL)

	projHandler := projhttp.New(projectSvc, bidSvc)
	bidHandler := bidshttp.New(bidSvc)

	api := r.Group("/api/v1")

	// marketplace reads are public; a token is honored when present so
	// owner-scoped filters work
	public := api.Group("")
	public.Use(auth.OptionalUser(dep.Auth, userRepo))

	publicProjects := public.Group("/projects")
	projHandler.RegisterPublic(publicProjects)
	bidHandler.RegisterPublicProjectRoutes(publicProjects)
	wallet.NewHandler(walletSvc).Register(public.Group("/wallet"))

	// everything that mutates state, or is scoped to the caller, requires a
	// signed-in user
	authed := api.Group("")
	authed.Use(auth.RequireUser(dep.Auth, userRepo))

	authedProjects := authed.Group("/projects")
	projHandler.Register(authedProjects)
	bidHandler.RegisterProjectRoutes(authedProjects)
	bidHandler.Register(authed.Group("/bids"))

	escrowhttp.New(settleSvc).Register(authed.Group("/escrow"))
	usershttp.New(userRepo).Register(authed.Group("/users"))

	return r, settleSvc
}
