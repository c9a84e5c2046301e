// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/openshelf/openshelf/internal/config"
	"github.com/openshelf/openshelf/internal/tasks"
)

// ReservationSweepScheduler enqueues the reservation expiry task on a cron
// schedule. The sweep itself runs on the task queue workers so a slow sweep
// never blocks the scheduler.
type ReservationSweepScheduler struct {
	taskClient *tasks.Client
	config     config.Reservations

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewReservationSweepScheduler creates a new scheduler instance.
func NewReservationSweepScheduler(taskClient *tasks.Client, cfg config.Reservations) *ReservationSweepScheduler {
	return &ReservationSweepScheduler{
		taskClient: taskClient,
		config:     cfg,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the sweep is enabled.
func (s *ReservationSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.SweepEnabled {
		log.Printf("Reservation sweep scheduler: disabled")
		return nil
	}
	if s.taskClient == nil {
		log.Printf("Reservation sweep scheduler: task queue not configured, skipping")
		return nil
	}

	schedule := s.config.SweepSchedule
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	entryID, err := s.cron.AddFunc(schedule, s.enqueueSweep)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reservation sweep scheduler: started with schedule %q. Next run: %v",
		schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *ReservationSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reservation sweep scheduler: stopped")
}

// RunNow enqueues an immediate sweep.
func (s *ReservationSweepScheduler) RunNow() error {
	if s.taskClient == nil {
		return fmt.Errorf("task queue not configured")
	}
	s.enqueueSweep()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *ReservationSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will be enqueued.
func (s *ReservationSweepScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *ReservationSweepScheduler) enqueueSweep() {
	if _, err := s.taskClient.Add(tasks.ExpireReservationsTask{}).Save(); err != nil {
		log.Printf("Reservation sweep scheduler: failed to enqueue sweep: %v", err)
		return
	}
	log.Printf("Reservation sweep scheduler: sweep enqueued")
}
