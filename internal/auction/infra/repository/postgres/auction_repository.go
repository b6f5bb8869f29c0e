package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// AuctionRepository implements domain.AuctionRepository interface
type AuctionRepository struct {
	pool *pgxpool.Pool
}

// NewAuctionRepository creates a new instance of AuctionRepository
func NewAuctionRepository(pool *pgxpool.Pool) *AuctionRepository {
	return &AuctionRepository{pool: pool}
}

// Save inserts a new auction. The current price starts at the starting price and
// updated_at is left to the column default.
func (r *AuctionRepository) Save(ctx context.Context, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (id, listing_ref, starting_price, min_increment, current_price, status, start_at, end_at, created_at)
        VALUES ($1, $2, $3, $4, $3, $5, $6, $7, $8)
    `
	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.ListingRef,
		a.StartingPrice,
		a.MinIncrement,
		string(domain.StatusPending),
		a.StartAt,
		a.EndAt,
		a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("auction repository: save %s: %w", a.ID, err)
	}
	return nil
}

func (r *AuctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	query := `UPDATE auctions SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, string(status))
	if err != nil {
		return fmt.Errorf("auction repository: update status of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns every auction with its last persisted status, oldest window first.
func (r *AuctionRepository) List(ctx context.Context) ([]*domain.AuctionRecord, error) {
	query := `
        SELECT id, listing_ref, starting_price, min_increment, status, start_at, end_at, created_at
        FROM auctions
        ORDER BY start_at ASC, id ASC
    `
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuctionRecord
	for rows.Next() {
		rec := &domain.AuctionRecord{}
		var status string
		err := rows.Scan(
			&rec.Auction.ID,
			&rec.Auction.ListingRef,
			&rec.Auction.StartingPrice,
			&rec.Auction.MinIncrement,
			&status,
			&rec.Auction.StartAt,
			&rec.Auction.EndAt,
			&rec.Auction.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.Status = domain.Status(status)
		rec.Auction.StartAt = rec.Auction.StartAt.UTC()
		rec.Auction.EndAt = rec.Auction.EndAt.UTC()
		rec.Auction.CreatedAt = rec.Auction.CreatedAt.UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
