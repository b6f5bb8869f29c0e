package events

import (
	"context"
	"errors"
	"sync"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// LogSink writes every lifecycle event to the structured log
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: log.Named("events")}
}

func (s *LogSink) Publish(_ context.Context, ev domain.Event) error {
	fields := []zap.Field{
		zap.String("type", string(ev.Type)),
		zap.String("auctionID", ev.AuctionID.String()),
		zap.Time("at", ev.At),
	}
	switch ev.Type {
	case domain.EventBidAccepted:
		fields = append(fields, zap.String("bidderID", ev.BidderID), zap.Int64("amount", ev.Amount))
	case domain.EventAuctionEnded:
		fields = append(fields, zap.Int64("finalPrice", ev.FinalPrice))
	}
	s.logger.Info("Auction event", fields...)
	return nil
}

// FanOut publishes to every sink, one failing sink does not stop the others
type FanOut struct {
	sinks []domain.EventSink
}

func NewFanOut(sinks ...domain.EventSink) *FanOut {
	return &FanOut{sinks: sinks}
}

func (f *FanOut) Publish(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory, in publish order.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// OfType filters the recorded events by type.
func (r *Recorder) OfType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
