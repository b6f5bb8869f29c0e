package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
)

// auctionLock is a mutex whose acquisition can give up: a one slot semaphore.
type auctionLock chan struct{}

func newAuctionLock() auctionLock {
	return make(auctionLock, 1)
}

// acquire waits at most timeout for the lock, or until ctx is done.
// Both outcomes surface as domain.ErrBusy so callers can retry.
func (l auctionLock) acquire(ctx context.Context, timeout time.Duration) error {
	select {
	case l <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l <- struct{}{}:
		return nil
	case <-timer.C:
		return domain.ErrBusy
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrBusy, ctx.Err())
	}
}

func (l auctionLock) release() {
	<-l
}
