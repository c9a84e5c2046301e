package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

// ReservationExpirer cancels pending reservations whose expiry has passed.
type ReservationExpirer interface {
	ExpirePending(now time.Time) (int64, error)
}

// ExpireReservationsTask cancels pending reservations past their expiry time.
type ExpireReservationsTask struct{}

// Config returns the queue configuration for reservation expiry tasks.
func (t ExpireReservationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "expire_reservations",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ExpireReservationsProcessor creates a processor function for
// ExpireReservationsTask.
func ExpireReservationsProcessor(expirer ReservationExpirer) backlite.QueueProcessor[ExpireReservationsTask] {
	return func(ctx context.Context, task ExpireReservationsTask) error {
		if expirer == nil {
			return fmt.Errorf("reservation expirer not configured")
		}

		expired, err := expirer.ExpirePending(time.Now())
		if err != nil {
			return fmt.Errorf("expire reservations: %w", err)
		}

		if expired > 0 {
			log.Printf("[TASK] Cancelled %d expired reservations", expired)
		}
		return nil
	}
}

// NewExpireReservationsQueue creates a backlite queue for reservation expiry tasks.
func NewExpireReservationsQueue(expirer ReservationExpirer) backlite.Queue {
	return backlite.NewQueue(ExpireReservationsProcessor(expirer))
}
