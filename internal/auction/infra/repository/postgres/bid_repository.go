package postgres

import (
	"context"
	"fmt"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// BidRepository implements domain.BidRepository interface
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Append inserts the bid and moves the auction's current price inside one TX
func (r *BidRepository) Append(ctx context.Context, bid *domain.Bid) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("bid repository: failed to begin transaction: %w", err)
	}

	//config defer() to handles commit/rollback
	defer func() {
		if err != nil {
			log.Warn("BidRepository: Rolling back transaction due to error",
				zap.String("auctionID", bid.AuctionID.String()),
				zap.String("bidID", bid.ID.String()),
				zap.Error(err),
			)
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("bid repository: failed to commit transaction: %w", commitErr)
		}
	}()

	insert := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, accepted_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	if _, err = tx.Exec(ctx, insert, bid.ID, bid.AuctionID, bid.BidderID, bid.Amount, bid.AcceptedAt); err != nil {
		return fmt.Errorf("bid repository: insert bid %s: %w", bid.ID, err)
	}

	// the price only ever moves up, a lower amount here means the caller skipped the locked check
	update := `
        UPDATE auctions SET current_price = $2, updated_at = NOW()
        WHERE id = $1 AND current_price <= $2
    `
	tag, err := tx.Exec(ctx, update, bid.AuctionID, bid.Amount)
	if err != nil {
		return fmt.Errorf("bid repository: update current price of %s: %w", bid.AuctionID, err)
	}
	if tag.RowsAffected() == 0 {
		err = fmt.Errorf("bid repository: auction %s missing or price above %d: %w", bid.AuctionID, bid.Amount, domain.ErrBidTooLow)
		return err
	}
	return nil
}

// ListByAuctionID returns the bid log of an auction in acceptance order
func (r *BidRepository) ListByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder_id, amount, accepted_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY accepted_at ASC
    `
	rows, err := r.pool.Query(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&bid.Amount,
			&bid.AcceptedAt,
		)
		if err != nil {
			return nil, err
		}
		bid.AcceptedAt = bid.AcceptedAt.UTC()
		bids = append(bids, bid)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bids, nil
}
