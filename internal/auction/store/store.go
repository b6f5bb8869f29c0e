package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// DefaultLockTimeout bounds the wait for an auction's lock when no option overrides it
const DefaultLockTimeout = 2 * time.Second

// entry is the process wide state of one auction. Everything except terminal
// and the outbox is guarded by lock.
type entry struct {
	lock auctionLock
	// terminal mirrors status == ended so the scheduler can skip ended auctions without locking
	terminal atomic.Bool

	auction      domain.Auction
	status       domain.Status // cached, never ground truth
	currentPrice int64         // denormalized from the last bid
	bids         []domain.Bid  // append only, acceptance order

	// events recorded under lock, in the order the state changed
	outboxMu sync.Mutex
	outbox   []domain.Event
	// held while draining so concurrent drainers cannot reorder events
	publishMu sync.Mutex
}

func newEntry(a domain.Auction, status domain.Status) *entry {
	e := &entry{
		lock:         newAuctionLock(),
		auction:      a,
		status:       status,
		currentPrice: a.StartingPrice,
	}
	e.terminal.Store(status.Terminal())
	return e
}

func (e *entry) snapshot() domain.Snapshot {
	return domain.NewSnapshot(e.auction, e.status, e.currentPrice, e.bids)
}

// record queues events for PublishPending, callers hold lock.
func (e *entry) record(events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	e.outboxMu.Lock()
	e.outbox = append(e.outbox, events...)
	e.outboxMu.Unlock()
}

func (e *entry) lastBid() *domain.Bid {
	if n := len(e.bids); n > 0 {
		return &e.bids[n-1]
	}
	return nil
}

// Store is the only component allowed to mutate auctions and bids.
// All invariant checks happen here, under the auction's lock.
type Store struct {
	mu      sync.RWMutex // guards the entries map, not the entries
	entries map[uuid.UUID]*entry

	clock       clock.Clock
	lockTimeout time.Duration

	// optional durable record, written before the in memory state changes
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
}

type Option func(*Store)

func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithRepositories makes the store write through to durable storage.
func WithRepositories(auctions domain.AuctionRepository, bids domain.BidRepository) Option {
	return func(s *Store) {
		s.auctionRepo = auctions
		s.bidRepo = bids
	}
}

func New(clk clock.Clock, opts ...Option) *Store {
	s := &Store{
		entries:     make(map[uuid.UUID]*entry),
		clock:       clk,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) persistent() bool {
	return s.auctionRepo != nil && s.bidRepo != nil
}

// Load rebuilds the in memory state from the repositories. Statuses start from the
// last persisted value so transitions missed while the process was down are still reported.
func (s *Store) Load(ctx context.Context) error {
	if !s.persistent() {
		return nil
	}
	records, err := s.auctionRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("store: failed to load auctions: %w", err)
	}

	loaded := make(map[uuid.UUID]*entry, len(records))
	totalBids := 0
	for _, rec := range records {
		bids, err := s.bidRepo.ListByAuctionID(ctx, rec.Auction.ID)
		if err != nil {
			return fmt.Errorf("store: failed to load bids for auction %s: %w", rec.Auction.ID, err)
		}
		status := rec.Status
		if !status.Valid() {
			status = domain.StatusPending
		}
		e := newEntry(rec.Auction, status)
		for _, b := range bids {
			e.bids = append(e.bids, *b)
		}
		e.currentPrice = domain.CurrentPriceOf(e.auction, e.bids)
		loaded[rec.Auction.ID] = e
		totalBids += len(bids)
	}

	s.mu.Lock()
	for id, e := range loaded {
		s.entries[id] = e
	}
	s.mu.Unlock()

	log.Info("Auction store loaded from repository",
		zap.Int("auctions", len(loaded)),
		zap.Int("bids", totalBids),
	)
	return nil
}

// Create registers a new auction in the pending state, with its timestamps normalized
// the way NewAuction does.
func (s *Store) Create(ctx context.Context, a *domain.Auction) error {
	if a == nil {
		return fmt.Errorf("%w: auction is required", domain.ErrInvalidInput)
	}
	norm := a.Normalized()
	a = &norm
	if err := a.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	_, exists := s.entries[a.ID]
	s.mu.RUnlock()
	if exists {
		return domain.ErrAlreadyExists
	}

	if s.persistent() {
		if err := s.auctionRepo.Save(ctx, a); err != nil {
			return fmt.Errorf("store: failed to save auction %s: %w", a.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[a.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.entries[a.ID] = newEntry(*a, domain.StatusPending)

	log.Info("Auction created",
		zap.String("auctionID", a.ID.String()),
		zap.String("listingRef", a.ListingRef),
		zap.Int64("startingPrice", a.StartingPrice),
		zap.Int64("minIncrement", a.MinIncrement),
		zap.Time("startAt", a.StartAt),
		zap.Time("endAt", a.EndAt),
	)
	return nil
}

func (s *Store) lookup(id uuid.UUID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// GetSnapshot returns a consistent copy of the auction taken under its lock.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID) (domain.Snapshot, error) {
	e, err := s.lookup(id)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := e.lock.acquire(ctx, s.lockTimeout); err != nil {
		return domain.Snapshot{}, err
	}
	defer e.lock.release()
	return e.snapshot(), nil
}

// AppendBid is the authoritative accept path. Under the auction's lock it re-derives
// the status at the instant of the call, checks the increment against the price as it
// is now, assigns acceptedAt and only then appends. Check and append cannot interleave
// with another bid on the same auction.
func (s *Store) AppendBid(ctx context.Context, id uuid.UUID, bidderID string, amount int64) (domain.Bid, error) {
	bidderID = strings.TrimSpace(bidderID)
	if bidderID == "" {
		return domain.Bid{}, fmt.Errorf("%w: bidder id is required", domain.ErrInvalidInput)
	}
	if amount <= 0 {
		return domain.Bid{}, fmt.Errorf("%w: bid amount must be positive, got %d", domain.ErrInvalidInput, amount)
	}

	e, err := s.lookup(id)
	if err != nil {
		return domain.Bid{}, err
	}
	if err := e.lock.acquire(ctx, s.lockTimeout); err != nil {
		log.Warn("Bid rejected: auction lock not acquired",
			zap.String("auctionID", id.String()),
			zap.String("bidderID", bidderID),
			zap.Duration("timeout", s.lockTimeout),
			zap.Error(err),
		)
		return domain.Bid{}, err
	}
	defer e.lock.release()

	now := s.clock.Now()
	// the cache is left alone here, RecomputeStatus is the one place transitions are reported
	status := domain.Advance(e.status, e.auction.StatusAt(now))
	if status != domain.StatusActive {
		log.Warn("Bid rejected: auction not active",
			zap.String("auctionID", id.String()),
			zap.String("status", string(status)),
			zap.String("bidderID", bidderID),
			zap.Int64("amount", amount),
		)
		return domain.Bid{}, domain.ErrAuctionNotActive
	}

	minAcceptable, ok := domain.NextMinimum(e.currentPrice, e.auction.MinIncrement)
	if !ok {
		log.Warn("Bid rejected: price ceiling reached",
			zap.String("auctionID", id.String()),
			zap.Int64("currentPrice", e.currentPrice),
			zap.Int64("minIncrement", e.auction.MinIncrement),
		)
		return domain.Bid{}, fmt.Errorf("%w: auction %s cannot take a higher bid", domain.ErrInvalidInput, id)
	}
	if amount < minAcceptable {
		log.Warn("Bid rejected: amount too low",
			zap.String("auctionID", id.String()),
			zap.String("bidderID", bidderID),
			zap.Int64("amount", amount),
			zap.Int64("currentPrice", e.currentPrice),
			zap.Int64("minAcceptable", minAcceptable),
		)
		return domain.Bid{}, &domain.BidTooLowError{Amount: amount, MinAcceptable: minAcceptable}
	}

	acceptedAt := domain.NextAcceptedAt(now, e.lastBid())
	if !e.auction.Accepts(acceptedAt) {
		// spacing after a stalled clock pushed the slot past the end of the window
		return domain.Bid{}, domain.ErrAuctionNotActive
	}

	bid := domain.NewBid(uuid.New(), id, bidderID, amount, acceptedAt)
	if s.persistent() {
		if err := s.bidRepo.Append(ctx, &bid); err != nil {
			log.Error("Failed to persist bid",
				zap.String("auctionID", id.String()),
				zap.String("bidID", bid.ID.String()),
				zap.Error(err),
			)
			return domain.Bid{}, fmt.Errorf("store: failed to persist bid for auction %s: %w", id, err)
		}
	}

	e.bids = append(e.bids, bid)
	e.currentPrice = bid.Amount
	e.record(domain.NewBidAccepted(bid))

	log.Info("Bid accepted",
		zap.String("auctionID", id.String()),
		zap.String("bidID", bid.ID.String()),
		zap.String("bidderID", bidderID),
		zap.Int64("amount", amount),
		zap.Time("acceptedAt", bid.AcceptedAt),
		zap.Int("totalBids", len(e.bids)),
	)
	return bid, nil
}

// RecomputeStatus refreshes the cached status for now. It is idempotent: only the first
// caller that observes a change gets a Transition with From != To. The transition events
// are recorded for PublishPending.
func (s *Store) RecomputeStatus(ctx context.Context, id uuid.UUID, now time.Time) (domain.Transition, error) {
	e, err := s.lookup(id)
	if err != nil {
		return domain.Transition{}, err
	}
	if err := e.lock.acquire(ctx, s.lockTimeout); err != nil {
		return domain.Transition{}, err
	}
	defer e.lock.release()

	from := e.status
	to := domain.Advance(from, e.auction.StatusAt(now))
	if to == from {
		return domain.Transition{From: from, To: to, Snapshot: e.snapshot()}, nil
	}

	if s.persistent() {
		// written under the lock so statuses reach storage in transition order.
		// a lost write only means the transition is reported once more after a restart
		if err := s.auctionRepo.UpdateStatus(ctx, id, to); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Failed to persist auction status",
				zap.String("auctionID", id.String()),
				zap.String("status", string(to)),
				zap.Error(err),
			)
		}
	}

	e.status = to
	e.terminal.Store(to.Terminal())
	tr := domain.Transition{From: from, To: to, Snapshot: e.snapshot()}
	e.record(domain.TransitionEvents(tr)...)

	log.Info("Auction status changed",
		zap.String("auctionID", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("currentPrice", tr.Snapshot.CurrentPrice),
	)
	return tr, nil
}

// PublishPending hands the events recorded for an auction to publish, oldest first, and
// returns them. Drainers of one auction are serialized, so whichever goroutine drains, a
// BidAccepted is never published after the AuctionEnded that followed it.
func (s *Store) PublishPending(id uuid.UUID, publish func(domain.Event)) ([]domain.Event, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.publishMu.Lock()
	defer e.publishMu.Unlock()

	e.outboxMu.Lock()
	pending := e.outbox
	e.outbox = nil
	e.outboxMu.Unlock()

	for _, ev := range pending {
		publish(ev)
	}
	return pending, nil
}

// IDs lists every known auction.
func (s *Store) IDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}

// NonTerminalIDs lists auctions that may still transition.
func (s *Store) NonTerminalIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.entries))
	for id, e := range s.entries {
		if !e.terminal.Load() {
			ids = append(ids, id)
		}
	}
	return ids
}
