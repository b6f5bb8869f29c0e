package domain

import (
	"context"

	"github.com/google/uuid"
)

// AuctionRecord is a persisted auction header with its last observed status
type AuctionRecord struct {
	Auction Auction
	Status  Status
}

type AuctionRepository interface {
	Save(ctx context.Context, a *Auction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	List(ctx context.Context) ([]*AuctionRecord, error)
}

type BidRepository interface {
	// Append stores the bid and moves the auction's current price to its amount atomically
	Append(ctx context.Context, bid *Bid) error
	ListByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
}
