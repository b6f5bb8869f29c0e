package application

import (
	"context"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"go.uber.org/zap"
)

// DefaultTickInterval matches the one second countdown refresh of the marketplace UI
const DefaultTickInterval = time.Second

// Scheduler drives status transitions when nobody reads or bids, so an auction
// that runs out still produces AuctionEnded on time.
type Scheduler struct {
	lifecycle *lifecycle
	clock     clock.Clock
	interval  time.Duration
}

func NewScheduler(store AuctionStore, clk clock.Clock, sink domain.EventSink, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		lifecycle: &lifecycle{store: store, sink: sink},
		clock:     clk,
		interval:  interval,
	}
}

// Tick recomputes every non-terminal auction at now and returns the events it published,
// including bids accepted since the last flush.
// Safe to run concurrently with bids, it goes through the same RecomputeStatus.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []domain.Event {
	var emitted []domain.Event
	for _, id := range s.lifecycle.store.NonTerminalIDs() {
		_, events, err := s.lifecycle.refresh(ctx, id, now)
		if err != nil {
			// busy auctions are picked up on the next tick
			log.Warn("Scheduler: failed to recompute auction status",
				zap.String("auctionID", id.String()),
				zap.Error(err),
			)
			continue
		}
		emitted = append(emitted, events...)
	}
	return emitted
}

// Run ticks on the configured interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info("Auction scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx, s.clock.Now())
	for {
		select {
		case <-ctx.Done():
			log.Info("Auction scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, s.clock.Now())
		}
	}
}
