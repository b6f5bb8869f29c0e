package application

import (
	"context"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionStore is the subset of the auction store the application layer drives.
// The store is the only mutator, use cases never touch auction state directly.
type AuctionStore interface {
	Create(ctx context.Context, a *domain.Auction) error
	GetSnapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error)
	AppendBid(ctx context.Context, id uuid.UUID, bidderID string, amount int64) (domain.Bid, error)
	RecomputeStatus(ctx context.Context, id uuid.UUID, now time.Time) (domain.Transition, error)
	IDs() []uuid.UUID
	NonTerminalIDs() []uuid.UUID
	PublishPending(id uuid.UUID, publish func(domain.Event)) ([]domain.Event, error)
}

// lifecycle turns status recomputation into published events. Arbiter and Scheduler
// share it so a transition is reported by whoever observes it first, and only once.
// Events come out of the store's outbox, so they reach the sink in the order the
// store accepted them even when a bid and a tick race.
type lifecycle struct {
	store AuctionStore
	sink  domain.EventSink
}

func (l *lifecycle) refresh(ctx context.Context, id uuid.UUID, now time.Time) (domain.Transition, []domain.Event, error) {
	tr, err := l.store.RecomputeStatus(ctx, id, now)
	if err != nil {
		return domain.Transition{}, nil, err
	}
	return tr, l.flush(ctx, id), nil
}

// flush publishes everything the store recorded for the auction since the last flush
func (l *lifecycle) flush(ctx context.Context, id uuid.UUID) []domain.Event {
	events, err := l.store.PublishPending(id, func(ev domain.Event) {
		l.publish(ctx, ev)
	})
	if err != nil {
		log.Warn("Failed to flush auction events", zap.String("auctionID", id.String()), zap.Error(err))
		return nil
	}
	return events
}

// publish never fails the caller, delivery belongs to the sink
func (l *lifecycle) publish(ctx context.Context, ev domain.Event) {
	if l.sink == nil {
		return
	}
	if err := l.sink.Publish(ctx, ev); err != nil {
		log.Warn("Failed to publish auction event",
			zap.String("type", string(ev.Type)),
			zap.String("auctionID", ev.AuctionID.String()),
			zap.Error(err),
		)
	}
}
