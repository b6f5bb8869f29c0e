// Package sqlite provides SQLite-backed auction and bid repositories.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

func toMicros(value time.Time) int64 {
	return value.UTC().UnixMicro()
}

func fromMicros(value int64) time.Time {
	return time.UnixMicro(value).UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE
}

// AuctionRepository persists auction headers in SQLite.
type AuctionRepository struct {
	db *sql.DB
}

func NewAuctionRepository(db *sql.DB) *AuctionRepository {
	return &AuctionRepository{db: db}
}

func (r *AuctionRepository) Save(ctx context.Context, a *domain.Auction) error {
	now := toMicros(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auctions (
		   id, listing_ref, starting_price, min_increment, current_price,
		   status, start_at, end_at, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(),
		a.ListingRef,
		a.StartingPrice,
		a.MinIncrement,
		a.StartingPrice,
		string(domain.StatusPending),
		toMicros(a.StartAt),
		toMicros(a.EndAt),
		toMicros(a.CreatedAt),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("auction repository: save %s: %w", a.ID, err)
	}
	return nil
}

func (r *AuctionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE auctions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toMicros(time.Now()), id.String(),
	)
	if err != nil {
		return fmt.Errorf("auction repository: update status of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("auction repository: update status of %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AuctionRepository) List(ctx context.Context) ([]*domain.AuctionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_ref, starting_price, min_increment, status, start_at, end_at, created_at
		 FROM auctions
		 ORDER BY start_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("auction repository: list: %w", err)
	}
	defer rows.Close()

	var records []*domain.AuctionRecord
	for rows.Next() {
		var (
			id, listingRef, status      string
			startingPrice, minIncrement int64
			startAt, endAt, createdAt   int64
		)
		if err := rows.Scan(&id, &listingRef, &startingPrice, &minIncrement, &status, &startAt, &endAt, &createdAt); err != nil {
			return nil, fmt.Errorf("auction repository: scan: %w", err)
		}
		auctionID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("auction repository: bad auction id %q: %w", id, err)
		}
		records = append(records, &domain.AuctionRecord{
			Auction: domain.Auction{
				ID:            auctionID,
				ListingRef:    listingRef,
				StartingPrice: startingPrice,
				MinIncrement:  minIncrement,
				StartAt:       fromMicros(startAt),
				EndAt:         fromMicros(endAt),
				CreatedAt:     fromMicros(createdAt),
			},
			Status: domain.Status(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("auction repository: list: %w", err)
	}
	return records, nil
}
