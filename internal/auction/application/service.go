package application

import (
	"context"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	// PlaceBid handles logic when a bidder makes a bid on an auction
	// receives a command with necesary data and returns the accepted bid or an error
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	// PlaceBidWithRetry is PlaceBid retried once when the auction was busy
	PlaceBidWithRetry(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	DeriveView(ctx context.Context, auctionID uuid.UUID) (*AuctionView, error)
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionView, error)
	ListAuctions(ctx context.Context, filter *domain.Status) ([]*AuctionView, error)
	Bids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error)
}

// Arbiter is the concrete AuctionService. It validates and admits bids, derives
// views and raises lifecycle events, always through the store.
type Arbiter struct {
	placeBidUC      *PlaceBidUseCase
	deriveViewUC    *DeriveViewUseCase
	createAuctionUC *CreateAuctionUseCase
	listAuctionsUC  *ListAuctionsUseCase
}

var _ AuctionService = (*Arbiter)(nil)

func NewArbiter(store AuctionStore, clk clock.Clock, sink domain.EventSink) *Arbiter {
	deriveUC := NewDeriveViewUseCase(store, clk, sink)
	return &Arbiter{
		placeBidUC:      NewPlaceBidUseCase(store, clk, sink),
		deriveViewUC:    deriveUC,
		createAuctionUC: NewCreateAuctionUseCase(store, clk, sink),
		listAuctionsUC:  NewListAuctionsUseCase(store, deriveUC),
	}
}

// PlaceBid implements AuctionService.
func (a *Arbiter) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return a.placeBidUC.Execute(ctx, cmd)
}

// PlaceBidWithRetry retries at most once, and only on a busy auction. The retry is a
// new bid attempt, bids carry no idempotency key.
func (a *Arbiter) PlaceBidWithRetry(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	bid, err := a.placeBidUC.Execute(ctx, cmd)
	if err == nil || !domain.Retryable(err) || ctx.Err() != nil {
		return bid, err
	}
	log.Info("Auction busy, retrying bid once",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID),
	)
	return a.placeBidUC.Execute(ctx, cmd)
}

func (a *Arbiter) DeriveView(ctx context.Context, auctionID uuid.UUID) (*AuctionView, error) {
	return a.deriveViewUC.Execute(ctx, auctionID)
}

func (a *Arbiter) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionView, error) {
	return a.createAuctionUC.Execute(ctx, cmd)
}

func (a *Arbiter) ListAuctions(ctx context.Context, filter *domain.Status) ([]*AuctionView, error) {
	return a.listAuctionsUC.Execute(ctx, filter)
}

func (a *Arbiter) Bids(ctx context.Context, auctionID uuid.UUID) ([]domain.Bid, error) {
	return a.deriveViewUC.Bids(ctx, auctionID)
}
