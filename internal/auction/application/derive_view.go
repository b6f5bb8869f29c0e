package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
)

// AuctionView is the output DTO for exposing auction state to the UI/WS
type AuctionView struct {
	AuctionID        uuid.UUID     `json:"auction_id"`
	ListingRef       string        `json:"listing_ref"`
	Status           domain.Status `json:"status"`
	StartingPrice    int64         `json:"starting_price"`
	CurrentPrice     int64         `json:"current_price"`
	MinIncrement     int64         `json:"min_increment"`
	MinAcceptable    int64         `json:"min_acceptable"`
	TotalBids        int           `json:"total_bids"`
	ParticipantCount int           `json:"participant_count"`
	LeadingBidder    string        `json:"leading_bidder,omitempty"`
	StartAt          time.Time     `json:"start_at"`
	EndAt            time.Time     `json:"end_at"`

	TimeRemaining        time.Duration `json:"-"`
	TimeRemainingSeconds int64         `json:"time_remaining_seconds"`
}

// NewAuctionView derives the view of a snapshot at now.
func NewAuctionView(snap domain.Snapshot, now time.Time) *AuctionView {
	remaining := snap.TimeRemaining(now)
	return &AuctionView{
		AuctionID:            snap.Auction.ID,
		ListingRef:           snap.Auction.ListingRef,
		Status:               snap.Status,
		StartingPrice:        snap.Auction.StartingPrice,
		CurrentPrice:         snap.CurrentPrice,
		MinIncrement:         snap.Auction.MinIncrement,
		MinAcceptable:        snap.MinAcceptable(),
		TotalBids:            snap.TotalBids,
		ParticipantCount:     snap.ParticipantCount,
		LeadingBidder:        snap.LeadingBidder,
		StartAt:              snap.Auction.StartAt,
		EndAt:                snap.Auction.EndAt,
		TimeRemaining:        remaining,
		TimeRemainingSeconds: int64(remaining / time.Second),
	}
}

// DeriveViewUseCase retrieves the current state of an auction, refreshed for now
type DeriveViewUseCase struct {
	lifecycle *lifecycle
	clock     clock.Clock
}

// NewDeriveViewUseCase creates a new instance of DeriveViewUseCase.
func NewDeriveViewUseCase(store AuctionStore, clk clock.Clock, sink domain.EventSink) *DeriveViewUseCase {
	return &DeriveViewUseCase{
		lifecycle: &lifecycle{store: store, sink: sink},
		clock:     clk,
	}
}

func (uc *DeriveViewUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionView, error) {
	now := uc.clock.Now()
	tr, _, err := uc.lifecycle.refresh(ctx, auctionID, now)
	if err != nil {
		return nil, fmt.Errorf("derive view: auction %s: %w", auctionID, err)
	}
	return NewAuctionView(tr.Snapshot, now), nil
}

// Bids returns the bid history of an auction in acceptance order.
func (uc *DeriveViewUseCase) Bids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	tr, _, err := uc.lifecycle.refresh(ctx, auctionID, uc.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("bid history: auction %s: %w", auctionID, err)
	}
	return tr.Snapshot.Bids, nil
}
