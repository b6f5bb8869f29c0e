package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bid is an accepted offer on an auction, it is never mutated once accepted
type Bid struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	BidderID   string    `json:"bidder_id"` // identity token of the bidder
	Amount     int64     `json:"amount"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// NewBid creates a new Bid instance
func NewBid(id, auctionID uuid.UUID, bidderID string, amount int64, acceptedAt time.Time) Bid {
	return Bid{
		ID:         id,
		AuctionID:  auctionID,
		BidderID:   bidderID,
		Amount:     amount,
		AcceptedAt: acceptedAt.UTC(),
	}
}

// NextAcceptedAt returns the acceptance timestamp for a bid arriving at now after last.
// Acceptance order within an auction is strictly increasing even if the clock stalls.
func NextAcceptedAt(now time.Time, last *Bid) time.Time {
	t := now.UTC().Truncate(AcceptedAtResolution)
	if last != nil && !t.After(last.AcceptedAt) {
		t = last.AcceptedAt.Add(AcceptedAtResolution)
	}
	return t
}
