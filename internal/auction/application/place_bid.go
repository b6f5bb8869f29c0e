package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  string
	Amount    int64 // whole currency units
}

func (cmd PlaceBidDTO) validate() error {
	if cmd.AuctionID == uuid.Nil {
		return fmt.Errorf("%w: auction id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.BidderID) == "" {
		return fmt.Errorf("%w: bidder id is required", domain.ErrInvalidInput)
	}
	if cmd.Amount <= 0 {
		return fmt.Errorf("%w: bid amount must be positive, got %d", domain.ErrInvalidInput, cmd.Amount)
	}
	return nil
}

// PlaceBidUseCase is the public entry point for bids. It fast-fails on a fresh
// snapshot and then lets the store's locked append decide.
type PlaceBidUseCase struct {
	lifecycle *lifecycle
	clock     clock.Clock
}

func NewPlaceBidUseCase(store AuctionStore, clk clock.Clock, sink domain.EventSink) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		lifecycle: &lifecycle{store: store, sink: sink},
		clock:     clk,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID),
		zap.Int64("amount", cmd.Amount),
	)
	// 1. validates input DTO (basics validations, relative to the input data, not bussines logic)
	if err := cmd.validate(); err != nil {
		log.Warn("PlaceBidUseCase: Invalid bid input",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID),
			zap.Int64("amount", cmd.Amount),
			zap.Error(err),
		)
		return nil, err
	}

	// 2. refresh the status so validation never runs on a stale cache,
	// the transition carries a snapshot taken under the same lock hold
	tr, _, err := uc.lifecycle.refresh(ctx, cmd.AuctionID, uc.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("place bid use case: failed to refresh auction %s: %w", cmd.AuctionID, err)
	}
	snap := tr.Snapshot

	// 3. fast-fail checks, advisory only
	if snap.Status != domain.StatusActive {
		return nil, fmt.Errorf("place bid use case: auction %s is %s: %w", cmd.AuctionID, snap.Status, domain.ErrAuctionNotActive)
	}
	if minAcceptable := snap.MinAcceptable(); cmd.Amount < minAcceptable {
		return nil, fmt.Errorf("place bid use case: bid failed for auction %s: %w", cmd.AuctionID,
			&domain.BidTooLowError{Amount: cmd.Amount, MinAcceptable: minAcceptable})
	}

	// 4. authoritative check and append under the auction lock
	bid, err := uc.lifecycle.store.AppendBid(ctx, cmd.AuctionID, cmd.BidderID, cmd.Amount)
	if err != nil {
		if !isRejection(err) {
			log.Error("PlaceBidUseCase: Failed to append bid",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("place bid use case: bid failed for auction %s: %w", cmd.AuctionID, err)
	}

	// 5. notify watchers, in acceptance order
	uc.lifecycle.flush(ctx, cmd.AuctionID)
	return &bid, nil
}

// isRejection tells business rejections apart from infrastructure failures.
func isRejection(err error) bool {
	return errors.Is(err, domain.ErrAuctionNotActive) ||
		errors.Is(err, domain.ErrBidTooLow) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, domain.ErrInvalidInput)
}
