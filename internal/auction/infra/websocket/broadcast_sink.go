package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/evauction/internal/auction/application"
	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
)

// Broadcaster queues a message for everyone watching an auction. *websocket.Hub implements it.
type Broadcaster interface {
	BroadcastMessageToAuction(auctionID string, data []byte)
}

// Snapshotter reads auction state without recomputing it, so publishing never
// triggers a new transition.
type Snapshotter interface {
	GetSnapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error)
}

// BroadcastSink pushes every lifecycle event to the auction room, followed by the
// refreshed auction state.
type BroadcastSink struct {
	hub   Broadcaster
	state Snapshotter
	clock clock.Clock
}

var _ domain.EventSink = (*BroadcastSink)(nil)

func NewBroadcastSink(hub Broadcaster, state Snapshotter, clk clock.Clock) *BroadcastSink {
	return &BroadcastSink{hub: hub, state: state, clock: clk}
}

func (s *BroadcastSink) Publish(ctx context.Context, ev domain.Event) error {
	room := ev.AuctionID.String()

	eventMsg := ServerEventMessage{BaseMessage: BaseMessage{Type: MessageTypeServerEvent}, Payload: ev}
	data, err := json.Marshal(eventMsg)
	if err != nil {
		return fmt.Errorf("broadcast sink: failed to serialize %s event: %w", ev.Type, err)
	}
	s.hub.BroadcastMessageToAuction(room, data)

	snap, err := s.state.GetSnapshot(ctx, ev.AuctionID)
	if err != nil {
		return fmt.Errorf("broadcast sink: failed to read auction %s: %w", ev.AuctionID, err)
	}
	updateMsg := ServerAuctionUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeServerAuctionUpdate},
		Payload:     newAuctionState(application.NewAuctionView(snap, s.clock.Now())),
	}
	data, err = json.Marshal(updateMsg)
	if err != nil {
		return fmt.Errorf("broadcast sink: failed to serialize auction update: %w", err)
	}
	s.hub.BroadcastMessageToAuction(room, data)
	return nil
}
