package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultMinIncrement is the increment used when the listing does not set one
const DefaultMinIncrement int64 = 100_000

// AcceptedAtResolution is the granularity of bid acceptance timestamps.
// Storage backends keep microseconds, so consecutive bids are spaced by at least this much.
const AcceptedAtResolution = time.Microsecond

// Auction is the immutable header of a time boxed sale of one listing.
// Monetary amounts are whole currency units.
type Auction struct {
	ID            uuid.UUID
	ListingRef    string // opaque reference to the externally owned listing
	StartingPrice int64
	MinIncrement  int64
	StartAt       time.Time
	EndAt         time.Time
	CreatedAt     time.Time
}

// NewAuction builds and validates an auction header. Timestamps are normalized to UTC and
// truncated to AcceptedAtResolution, the precision storage keeps and acceptedAt is assigned in.
func NewAuction(id uuid.UUID, listingRef string, startingPrice, minIncrement int64, startAt, endAt, createdAt time.Time) (*Auction, error) {
	a := Auction{
		ID:            id,
		ListingRef:    strings.TrimSpace(listingRef),
		StartingPrice: startingPrice,
		MinIncrement:  minIncrement,
		StartAt:       startAt,
		EndAt:         endAt,
		CreatedAt:     createdAt,
	}.Normalized()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Normalized returns a copy with every timestamp in UTC at AcceptedAtResolution.
func (a Auction) Normalized() Auction {
	a.StartAt = a.StartAt.UTC().Truncate(AcceptedAtResolution)
	a.EndAt = a.EndAt.UTC().Truncate(AcceptedAtResolution)
	a.CreatedAt = a.CreatedAt.UTC().Truncate(AcceptedAtResolution)
	return a
}

func (a *Auction) Validate() error {
	switch {
	case a.ID == uuid.Nil:
		return fmt.Errorf("%w: auction id is required", ErrInvalidInput)
	case a.ListingRef == "":
		return fmt.Errorf("%w: listing reference is required", ErrInvalidInput)
	case a.StartingPrice <= 0:
		return fmt.Errorf("%w: starting price must be positive, got %d", ErrInvalidInput, a.StartingPrice)
	case a.MinIncrement <= 0:
		return fmt.Errorf("%w: minimum increment must be positive, got %d", ErrInvalidInput, a.MinIncrement)
	case a.StartingPrice > math.MaxInt64-a.MinIncrement:
		return fmt.Errorf("%w: starting price %d leaves no room for a %d increment", ErrInvalidInput, a.StartingPrice, a.MinIncrement)
	case a.StartAt.IsZero() || a.EndAt.IsZero():
		return fmt.Errorf("%w: auction window is required", ErrInvalidInput)
	case !a.EndAt.After(a.StartAt):
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidInput,
			a.EndAt.Format(time.RFC3339), a.StartAt.Format(time.RFC3339))
	}
	return nil
}

// StatusAt derives the status of the auction window at now
func (a *Auction) StatusAt(now time.Time) Status {
	return DeriveStatus(a.StartAt, a.EndAt, now)
}

// Accepts reports whether t lies in the bidding window [StartAt, EndAt).
func (a *Auction) Accepts(t time.Time) bool {
	return !t.Before(a.StartAt) && t.Before(a.EndAt)
}

// TimeRemaining is max(EndAt - now, 0).
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	if d := a.EndAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
