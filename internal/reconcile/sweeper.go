// Package reconcile repairs completion reports that a failed request left
// behind.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"property-workflow-backend/internal/model"
)

// Store is the part of the record store the sweep touches.
type Store interface {
	DeleteStaleDrafts(ctx context.Context, before time.Time) (int64, error)
	FindUnlinkedCompletedRequests(ctx context.Context) ([]model.MaintenanceRequest, error)
}

// Result summarises one sweep.
type Result struct {
	DraftsDeleted int64
	// Unlinked lists completed requests without a submitted report. They
	// need an operator; the sweep does not guess which report belongs.
	Unlinked []string
}

// Sweeper removes abandoned draft reports and flags broken completions.
type Sweeper struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
}

// NewSweeper creates a sweeper that deletes drafts older than maxAge.
func NewSweeper(store Store, maxAge time.Duration) *Sweeper {
	return &Sweeper{store: store, maxAge: maxAge, now: time.Now}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	cutoff := s.now().UTC().Add(-s.maxAge)
	deleted, err := s.store.DeleteStaleDrafts(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("delete stale drafts: %w", err)
	}
	res.DraftsDeleted = deleted
	if deleted > 0 {
		log.Printf("reconcile: deleted %d draft reports older than %s", deleted, s.maxAge)
	}

	unlinked, err := s.store.FindUnlinkedCompletedRequests(ctx)
	if err != nil {
		return res, fmt.Errorf("find unlinked requests: %w", err)
	}
	for _, r := range unlinked {
		res.Unlinked = append(res.Unlinked, r.ID)
		log.Printf("reconcile: maintenance request %s is completed without a submitted report", r.ID)
	}
	return res, nil
}

// Start runs the sweep every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.RunOnce(ctx); err != nil {
				log.Printf("reconcile: sweep failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("reconcile-completion-reports"),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	sched.Start()
	log.Printf("reconcile: sweeping every %s", interval)
	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("reconcile: scheduler shutdown: %v", err)
		}
	}()
	return nil
}
