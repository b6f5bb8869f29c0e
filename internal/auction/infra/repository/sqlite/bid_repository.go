package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/google/uuid"
)

// BidRepository persists the bid log in SQLite.
type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Append inserts the bid and raises the auction's current price in one transaction.
func (r *BidRepository) Append(ctx context.Context, bid *domain.Bid) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bid repository: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("bid repository: commit: %w", commitErr)
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO bids (id, auction_id, bidder_id, amount, accepted_at) VALUES (?, ?, ?, ?, ?)`,
		bid.ID.String(), bid.AuctionID.String(), bid.BidderID, bid.Amount, toMicros(bid.AcceptedAt),
	); err != nil {
		return fmt.Errorf("bid repository: insert bid %s: %w", bid.ID, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE auctions SET current_price = ?, updated_at = ? WHERE id = ? AND current_price <= ?`,
		bid.Amount, toMicros(bid.AcceptedAt), bid.AuctionID.String(), bid.Amount,
	)
	if err != nil {
		return fmt.Errorf("bid repository: update current price of %s: %w", bid.AuctionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bid repository: update current price of %s: %w", bid.AuctionID, err)
	}
	if n == 0 {
		err = fmt.Errorf("bid repository: auction %s missing or price above %d: %w", bid.AuctionID, bid.Amount, domain.ErrBidTooLow)
		return err
	}
	return nil
}

func (r *BidRepository) ListByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, bidder_id, amount, accepted_at FROM bids WHERE auction_id = ? ORDER BY accepted_at ASC`,
		auctionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("bid repository: list: %w", err)
	}
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		var (
			id, bidderID       string
			amount, acceptedAt int64
		)
		if err := rows.Scan(&id, &bidderID, &amount, &acceptedAt); err != nil {
			return nil, fmt.Errorf("bid repository: scan: %w", err)
		}
		bidID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bid repository: bad bid id %q: %w", id, err)
		}
		bids = append(bids, &domain.Bid{
			ID:         bidID,
			AuctionID:  auctionID,
			BidderID:   bidderID,
			Amount:     amount,
			AcceptedAt: fromMicros(acceptedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bid repository: list: %w", err)
	}
	return bids, nil
}
