package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAuctionDTO is sent by the listing management side to open an auction on a listing
type CreateAuctionDTO struct {
	ListingRef    string
	StartingPrice int64
	MinIncrement  int64
	StartAt       time.Time
	EndAt         time.Time
}

type CreateAuctionUseCase struct {
	lifecycle *lifecycle
	clock     clock.Clock
}

func NewCreateAuctionUseCase(store AuctionStore, clk clock.Clock, sink domain.EventSink) *CreateAuctionUseCase {
	return &CreateAuctionUseCase{
		lifecycle: &lifecycle{store: store, sink: sink},
		clock:     clk,
	}
}

// Execute validates the window and prices, registers the auction and reports
// AuctionStarted straight away when the window is already open.
func (uc *CreateAuctionUseCase) Execute(ctx context.Context, cmd CreateAuctionDTO) (*AuctionView, error) {
	now := uc.clock.Now()
	auction, err := domain.NewAuction(uuid.New(), cmd.ListingRef, cmd.StartingPrice, cmd.MinIncrement, cmd.StartAt, cmd.EndAt, now)
	if err != nil {
		log.Warn("CreateAuctionUseCase: Invalid auction",
			zap.String("listingRef", cmd.ListingRef),
			zap.Int64("startingPrice", cmd.StartingPrice),
			zap.Int64("minIncrement", cmd.MinIncrement),
			zap.Time("startAt", cmd.StartAt),
			zap.Time("endAt", cmd.EndAt),
			zap.Error(err),
		)
		return nil, err
	}

	if err := uc.lifecycle.store.Create(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction use case: listing %s: %w", auction.ListingRef, err)
	}

	tr, _, err := uc.lifecycle.refresh(ctx, auction.ID, now)
	if err != nil {
		return nil, fmt.Errorf("create auction use case: refresh %s: %w", auction.ID, err)
	}
	return NewAuctionView(tr.Snapshot, now), nil
}
