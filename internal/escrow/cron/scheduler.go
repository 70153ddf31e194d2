package cronjob

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vibefix-labs/vibefix-backend/internal/escrow/settlement"
)

// Scheduler runs the settlement reconciliation sweep on a fixed cadence. The
// sweep only re-checks journaled transfers and repairs records; it never
// initiates a transfer, so overlapping runs are harmless.
type Scheduler struct {
	svc  *settlement.Service
	cron *cron.Cron
}

func NewScheduler(svc *settlement.Service) *Scheduler {
	return &Scheduler{svc: svc}
}

// Start initializes cron tasks
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	// every minute
	_, err := c.AddFunc("0 * * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()

		if err := s.svc.Reconcile(ctx); err != nil {
			log.Printf("[cron] reconciliation sweep failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (settlement reconciliation every minute)")
	c.Start()
	s.cron = c
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
