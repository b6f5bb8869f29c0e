package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAuctionStarted EventType = "auction_started"
	EventAuctionEnded   EventType = "auction_ended"
	EventBidAccepted    EventType = "bid_accepted"
)

// Event is an outbound lifecycle notification. At holds startAt, endAt or acceptedAt
// depending on Type.
type Event struct {
	Type       EventType `json:"type"`
	AuctionID  uuid.UUID `json:"auction_id"`
	At         time.Time `json:"at"`
	BidderID   string    `json:"bidder_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	FinalPrice int64     `json:"final_price,omitempty"`
}

func NewAuctionStarted(a Auction) Event {
	return Event{Type: EventAuctionStarted, AuctionID: a.ID, At: a.StartAt}
}

func NewAuctionEnded(a Auction, finalPrice int64) Event {
	return Event{Type: EventAuctionEnded, AuctionID: a.ID, At: a.EndAt, FinalPrice: finalPrice}
}

func NewBidAccepted(b Bid) Event {
	return Event{
		Type:      EventBidAccepted,
		AuctionID: b.AuctionID,
		At:        b.AcceptedAt,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
	}
}

// TransitionEvents lists the events a status transition raises, in order.
// A jump from pending straight to ended raises both.
func TransitionEvents(t Transition) []Event {
	if !t.Changed() {
		return nil
	}
	var events []Event
	a := t.Snapshot.Auction
	if t.From == StatusPending {
		events = append(events, NewAuctionStarted(a))
	}
	if t.To == StatusEnded {
		events = append(events, NewAuctionEnded(a, t.Snapshot.CurrentPrice))
	}
	return events
}

// EventSink receives lifecycle events, delivery is the sink's concern
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}
