package domain

import (
	"math"
	"time"
)

// Snapshot is a consistent point in time copy of one auction, taken under its lock
type Snapshot struct {
	Auction      Auction
	Status       Status
	CurrentPrice int64
	Bids         []Bid

	TotalBids        int
	ParticipantCount int
	LeadingBidder    string
}

// NewSnapshot copies bids and derives the counters from them, so totals can never drift from the log.
func NewSnapshot(a Auction, status Status, currentPrice int64, bids []Bid) Snapshot {
	s := Snapshot{
		Auction:      a,
		Status:       status,
		CurrentPrice: currentPrice,
		Bids:         append([]Bid(nil), bids...),
		TotalBids:    len(bids),
	}
	bidders := make(map[string]struct{}, len(bids))
	for _, b := range bids {
		bidders[b.BidderID] = struct{}{}
	}
	s.ParticipantCount = len(bidders)
	if n := len(bids); n > 0 {
		s.LeadingBidder = bids[n-1].BidderID
	}
	return s
}

// CurrentPriceOf is the amount of the last accepted bid, or the starting price when there is none.
func CurrentPriceOf(a Auction, bids []Bid) int64 {
	if n := len(bids); n > 0 {
		return bids[n-1].Amount
	}
	return a.StartingPrice
}

// NextMinimum is price + increment. ok is false when the sum does not fit in an int64,
// the returned value is then clamped to math.MaxInt64.
func NextMinimum(price, increment int64) (minimum int64, ok bool) {
	if price > math.MaxInt64-increment {
		return math.MaxInt64, false
	}
	return price + increment, true
}

// MinAcceptable is the smallest amount a new bid must reach.
func (s Snapshot) MinAcceptable() int64 {
	minimum, _ := NextMinimum(s.CurrentPrice, s.Auction.MinIncrement)
	return minimum
}

// TimeRemaining is zero once the auction is ended, whatever now says.
func (s Snapshot) TimeRemaining(now time.Time) time.Duration {
	if s.Status == StatusEnded {
		return 0
	}
	return s.Auction.TimeRemaining(now)
}

// Transition is what RecomputeStatus observed for one auction.
// From equals To when nothing changed.
type Transition struct {
	From     Status
	To       Status
	Snapshot Snapshot
}

func (t Transition) Changed() bool {
	return t.From != t.To
}
