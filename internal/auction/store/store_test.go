package store

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/evauction/internal/auction/domain"
	"github.com/cristianortiz/evauction/internal/shared/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now0 = time.Date(2026, time.June, 10, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(now0)
	return New(clk, opts...), clk
}

func createAuction(t *testing.T, s *Store, startingPrice, inc int64, start, end time.Time) *domain.Auction {
	t.Helper()
	a, err := domain.NewAuction(uuid.New(), "listing-ev-1", startingPrice, inc, start, end, now0)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), a))
	return a
}

// assertInvariants checks price monotonicity, window bounds and acceptedAt ordering on a snapshot.
func assertInvariants(t *testing.T, snap domain.Snapshot) {
	t.Helper()
	price := snap.Auction.StartingPrice
	for i, b := range snap.Bids {
		assert.GreaterOrEqual(t, b.Amount, price+snap.Auction.MinIncrement, "bid %d breaks the increment rule", i)
		assert.True(t, snap.Auction.Accepts(b.AcceptedAt), "bid %d accepted outside the window", i)
		if i > 0 {
			assert.True(t, b.AcceptedAt.After(snap.Bids[i-1].AcceptedAt), "bid %d not strictly after its predecessor", i)
		}
		price = b.Amount
	}
	assert.Equal(t, price, snap.CurrentPrice)
	assert.Equal(t, len(snap.Bids), snap.TotalBids)
}

func TestAppendBidBoundaryScenario(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 45_000_000, 100_000, now0.Add(-time.Hour), now0.Add(time.Hour))

	_, err := s.AppendBid(ctx, a.ID, "buyer-1", 45_050_000)
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.Equal(t, int64(45_100_000), tooLow.MinAcceptable)

	bid, err := s.AppendBid(ctx, a.ID, "buyer-1", 45_100_000)
	require.NoError(t, err)
	assert.Equal(t, int64(45_100_000), bid.Amount)
	assert.Equal(t, a.ID, bid.AuctionID)
	assert.True(t, bid.AcceptedAt.Equal(now0))

	snap, err := s.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45_100_000), snap.CurrentPrice)
	assert.Equal(t, 1, snap.ParticipantCount)
	assertInvariants(t, snap)
}

func TestAppendBidOutsideWindow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	elapsed := createAuction(t, s, 45_000_000, 100_000, now0.Add(-time.Hour), now0.Add(-time.Second))
	_, err := s.AppendBid(ctx, elapsed.ID, "buyer-1", 90_000_000)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)

	upcoming := createAuction(t, s, 45_000_000, 100_000, now0.Add(time.Minute), now0.Add(time.Hour))
	_, err = s.AppendBid(ctx, upcoming.ID, "buyer-1", 90_000_000)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)

	_, err = s.AppendBid(ctx, uuid.New(), "buyer-1", 90_000_000)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendBidRejectsInvalidInput(t *testing.T) {
	s, _ := newTestStore(t)
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	_, err := s.AppendBid(context.Background(), a.ID, "   ", 5_000)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.AppendBid(context.Background(), a.ID, "buyer", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEndedAuctionStaysClosedWhenClockStepsBack(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Minute))

	_, err := s.AppendBid(ctx, a.ID, "buyer-1", 1_100)
	require.NoError(t, err)

	tr, err := s.RecomputeStatus(ctx, a.ID, now0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusEnded, tr.To)

	// wall clock jumps back inside the window, the auction must not reopen
	clk.Set(now0)
	_, err = s.AppendBid(ctx, a.ID, "buyer-2", 5_000)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)

	tr, err = s.RecomputeStatus(ctx, a.ID, now0)
	require.NoError(t, err)
	assert.False(t, tr.Changed())
	assert.Equal(t, domain.StatusEnded, tr.To)
	assert.Equal(t, 1, tr.Snapshot.TotalBids)
}

func TestRecomputeStatusIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 1_000, 100, now0.Add(time.Minute), now0.Add(time.Hour))

	tr, err := s.RecomputeStatus(ctx, a.ID, now0)
	require.NoError(t, err)
	assert.False(t, tr.Changed())
	assert.Equal(t, domain.StatusPending, tr.To)

	at := now0.Add(2 * time.Minute)
	first, err := s.RecomputeStatus(ctx, a.ID, at)
	require.NoError(t, err)
	assert.True(t, first.Changed())
	assert.Equal(t, domain.StatusPending, first.From)
	assert.Equal(t, domain.StatusActive, first.To)

	for i := 0; i < 5; i++ {
		again, err := s.RecomputeStatus(ctx, a.ID, at)
		require.NoError(t, err)
		assert.False(t, again.Changed())
		assert.Equal(t, domain.StatusActive, again.To)
	}
}

func TestRecomputeStatusConcurrentCallersSeeOneTransition(t *testing.T) {
	s, _ := newTestStore(t)
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := s.RecomputeStatus(context.Background(), a.ID, now0)
			if err == nil && tr.Changed() {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, changed)
}

func TestConcurrentBidsAtTheSamePriceOnlyOneWins(t *testing.T) {
	s, _ := newTestStore(t, WithLockTimeout(5*time.Second))
	a := createAuction(t, s, 45_100_000, 100_000, now0.Add(-time.Hour), now0.Add(time.Hour))

	const n = 64
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		tooLow   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendBid(context.Background(), a.ID, uuid.NewString(), 45_200_000)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrBidTooLow):
				tooLow++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, tooLow)

	snap, err := s.GetSnapshot(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45_200_000), snap.CurrentPrice)
	assertInvariants(t, snap)
}

func TestConcurrentRaceOfTwoBids(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 45_000_000, 100_000, now0.Add(-time.Hour), now0.Add(time.Hour))
	_, err := s.AppendBid(ctx, a.ID, "opener", 45_100_000)
	require.NoError(t, err)

	amounts := []int64{46_000_000, 46_200_000}
	errs := make([]error, len(amounts))
	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount int64) {
			defer wg.Done()
			_, errs[i] = s.AppendBid(ctx, a.ID, "racer", amount)
		}(i, amount)
	}
	wg.Wait()

	snap, err := s.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assertInvariants(t, snap)

	// whichever order the lock picked, 46.2M is always accepted and the log stays monotonic
	assert.NoError(t, errs[1])
	assert.Equal(t, int64(46_200_000), snap.CurrentPrice)
	if errs[0] != nil {
		var tooLow *domain.BidTooLowError
		require.ErrorAs(t, errs[0], &tooLow)
		assert.Equal(t, int64(46_300_000), tooLow.MinAcceptable)
		assert.Equal(t, 2, snap.TotalBids)
	} else {
		assert.Equal(t, 3, snap.TotalBids)
		assert.Equal(t, int64(46_000_000), snap.Bids[1].Amount)
	}
}

func TestConcurrentEscalatingBidsKeepInvariants(t *testing.T) {
	s, _ := newTestStore(t, WithLockTimeout(5*time.Second))
	a := createAuction(t, s, 1_000, 10, now0.Add(-time.Hour), now0.Add(time.Hour))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = s.AppendBid(context.Background(), a.ID, "bidder", int64(1_000+(w+1)*i*7))
			}
		}(w)
	}
	wg.Wait()

	snap, err := s.GetSnapshot(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Bids)
	assertInvariants(t, snap)
	assert.True(t, sort.SliceIsSorted(snap.Bids, func(i, j int) bool { return snap.Bids[i].Amount < snap.Bids[j].Amount }))
}

func TestAcceptedAtIsSpacedWithFrozenClockAndBoundedByEnd(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	end := now0.Add(time.Hour)
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), end)

	first, err := s.AppendBid(ctx, a.ID, "a", 1_100)
	require.NoError(t, err)
	second, err := s.AppendBid(ctx, a.ID, "b", 1_200)
	require.NoError(t, err)
	assert.Equal(t, domain.AcceptedAtResolution, second.AcceptedAt.Sub(first.AcceptedAt))

	clk.Set(end.Add(-domain.AcceptedAtResolution))
	last, err := s.AppendBid(ctx, a.ID, "c", 1_300)
	require.NoError(t, err)
	assert.True(t, last.AcceptedAt.Before(end))

	// the next slot would land exactly on endAt
	_, err = s.AppendBid(ctx, a.ID, "d", 1_400)
	assert.ErrorIs(t, err, domain.ErrAuctionNotActive)
}

func TestLockTimeoutFailsWithBusy(t *testing.T) {
	s, _ := newTestStore(t, WithLockTimeout(20*time.Millisecond))
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	e, err := s.lookup(a.ID)
	require.NoError(t, err)
	require.NoError(t, e.lock.acquire(context.Background(), time.Second))

	_, err = s.AppendBid(context.Background(), a.ID, "buyer", 1_100)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.True(t, domain.Retryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.GetSnapshot(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.ErrorIs(t, err, context.Canceled)

	e.lock.release()
	_, err = s.AppendBid(context.Background(), a.ID, "buyer", 1_100)
	assert.NoError(t, err)
}

func TestCreateRejectsDuplicatesAndInvalidAuctions(t *testing.T) {
	s, _ := newTestStore(t)
	a := createAuction(t, s, 1_000, 100, now0, now0.Add(time.Hour))

	assert.ErrorIs(t, s.Create(context.Background(), a), domain.ErrAlreadyExists)

	bad := *a
	bad.ID = uuid.New()
	bad.EndAt = bad.StartAt
	assert.ErrorIs(t, s.Create(context.Background(), &bad), domain.ErrInvalidInput)
	assert.Len(t, s.IDs(), 1)

	_, err := s.GetSnapshot(context.Background(), bad.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNonTerminalIDsSkipsEndedAuctions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	live := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))
	done := createAuction(t, s, 1_000, 100, now0.Add(-2*time.Hour), now0.Add(-time.Hour))

	assert.Len(t, s.NonTerminalIDs(), 2)
	_, err := s.RecomputeStatus(ctx, done.ID, now0)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{live.ID}, s.NonTerminalIDs())
	assert.ElementsMatch(t, []uuid.UUID{live.ID, done.ID}, s.IDs())
}

type memoryAuctionRepo struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*domain.AuctionRecord
	statuses []domain.Status
}

func (r *memoryAuctionRepo) Save(_ context.Context, a *domain.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[a.ID] = &domain.AuctionRecord{Auction: *a, Status: domain.StatusPending}
	return nil
}

func (r *memoryAuctionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].Status = status
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memoryAuctionRepo) List(context.Context) ([]*domain.AuctionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuctionRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

type memoryBidRepo struct {
	mu   sync.Mutex
	bids map[uuid.UUID][]*domain.Bid
	fail error
}

func (r *memoryBidRepo) Append(_ context.Context, bid *domain.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	cp := *bid
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], &cp)
	return nil
}

func (r *memoryBidRepo) ListByAuctionID(_ context.Context, id uuid.UUID) ([]*domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Bid(nil), r.bids[id]...), nil
}

func TestWriteThroughAndLoad(t *testing.T) {
	auctions := &memoryAuctionRepo{records: map[uuid.UUID]*domain.AuctionRecord{}}
	bids := &memoryBidRepo{bids: map[uuid.UUID][]*domain.Bid{}}
	ctx := context.Background()

	s, _ := newTestStore(t, WithRepositories(auctions, bids))
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))
	_, err := s.RecomputeStatus(ctx, a.ID, now0)
	require.NoError(t, err)
	_, err = s.AppendBid(ctx, a.ID, "alice", 1_100)
	require.NoError(t, err)
	_, err = s.AppendBid(ctx, a.ID, "bob", 1_500)
	require.NoError(t, err)
	assert.Equal(t, []domain.Status{domain.StatusActive}, auctions.statuses)

	// a failing durable write leaves memory untouched
	bids.fail = errors.New("disk full")
	_, err = s.AppendBid(ctx, a.ID, "carol", 2_000)
	require.Error(t, err)
	bids.fail = nil

	restarted, _ := newTestStore(t, WithRepositories(auctions, bids))
	require.NoError(t, restarted.Load(ctx))

	snap, err := restarted.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, snap.Status)
	assert.Equal(t, int64(1_500), snap.CurrentPrice)
	assert.Equal(t, 2, snap.TotalBids)
	assert.Equal(t, 2, snap.ParticipantCount)
	assertInvariants(t, snap)

	original, err := s.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Bids, snap.Bids)
}

func TestAppendBidStopsAtThePriceCeiling(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	crowded := &domain.Auction{
		ID:            uuid.New(),
		ListingRef:    "listing-ev-1",
		StartingPrice: math.MaxInt64 - 10,
		MinIncrement:  100,
		StartAt:       now0.Add(-time.Hour),
		EndAt:         now0.Add(time.Hour),
		CreatedAt:     now0,
	}
	assert.ErrorIs(t, s.Create(ctx, crowded), domain.ErrInvalidInput)

	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))
	_, err := s.AppendBid(ctx, a.ID, "buyer-1", math.MaxInt64-50)
	require.NoError(t, err)

	for _, amount := range []int64{1, math.MaxInt64} {
		_, err = s.AppendBid(ctx, a.ID, "buyer-2", amount)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	snap, err := s.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64-50), snap.CurrentPrice)
	assert.Equal(t, int64(math.MaxInt64), snap.MinAcceptable())
	assert.Equal(t, 1, snap.TotalBids)
	assertInvariants(t, snap)
}

func TestAppendBidAtTheFirstInstantOfASubMicrosecondWindow(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()

	a := createAuction(t, s, 1_000, 100, now0.Add(500*time.Nanosecond), now0.Add(time.Hour))
	clk.Set(now0.Add(900 * time.Nanosecond))

	tr, err := s.RecomputeStatus(ctx, a.ID, clk.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, tr.To)

	bid, err := s.AppendBid(ctx, a.ID, "buyer-1", 1_100)
	require.NoError(t, err)
	assert.True(t, bid.AcceptedAt.Equal(now0))

	// a header built without NewAuction is normalized on the way in
	raw := &domain.Auction{
		ID:            uuid.New(),
		ListingRef:    "listing-ev-2",
		StartingPrice: 1_000,
		MinIncrement:  100,
		StartAt:       now0.Add(500 * time.Nanosecond),
		EndAt:         now0.Add(time.Hour),
		CreatedAt:     now0,
	}
	require.NoError(t, s.Create(ctx, raw))
	bid, err = s.AppendBid(ctx, raw.ID, "buyer-1", 1_100)
	require.NoError(t, err)

	snap, err := s.GetSnapshot(ctx, raw.ID)
	require.NoError(t, err)
	assert.True(t, snap.Auction.StartAt.Equal(now0))
	assert.True(t, snap.Auction.Accepts(bid.AcceptedAt))
	assertInvariants(t, snap)
}

// blockingAuctionRepo parks the first write of one status until release is closed
type blockingAuctionRepo struct {
	*memoryAuctionRepo
	blockOn domain.Status
	entered chan struct{}
	release chan struct{}
}

func (r *blockingAuctionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error {
	if status == r.blockOn {
		close(r.entered)
		<-r.release
	}
	return r.memoryAuctionRepo.UpdateStatus(ctx, id, status)
}

func TestStatusWritesReachStorageInTransitionOrder(t *testing.T) {
	auctions := &blockingAuctionRepo{
		memoryAuctionRepo: &memoryAuctionRepo{records: map[uuid.UUID]*domain.AuctionRecord{}},
		blockOn:           domain.StatusActive,
		entered:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	bids := &memoryBidRepo{bids: map[uuid.UUID][]*domain.Bid{}}
	ctx := context.Background()

	s, _ := newTestStore(t, WithRepositories(auctions, bids))
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	started := make(chan error, 1)
	go func() {
		_, err := s.RecomputeStatus(ctx, a.ID, now0)
		started <- err
	}()
	<-auctions.entered

	ended := make(chan domain.Transition, 1)
	go func() {
		tr, err := s.RecomputeStatus(ctx, a.ID, now0.Add(2*time.Hour))
		assert.NoError(t, err)
		ended <- tr
	}()

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, ended, "the end cannot be recorded while the start is being written")

	close(auctions.release)
	require.NoError(t, <-started)
	tr := <-ended
	assert.Equal(t, domain.StatusActive, tr.From)
	assert.Equal(t, domain.StatusEnded, tr.To)

	auctions.mu.Lock()
	assert.Equal(t, []domain.Status{domain.StatusActive, domain.StatusEnded}, auctions.statuses)
	auctions.mu.Unlock()

	restarted, _ := newTestStore(t, WithRepositories(auctions, bids))
	require.NoError(t, restarted.Load(ctx))
	tr, err := restarted.RecomputeStatus(ctx, a.ID, now0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, tr.Changed(), "a restart does not report the end again")
	assert.Equal(t, domain.StatusEnded, tr.To)
}

func TestPublishPendingHandsOutEventsInAcceptanceOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	_, err := s.RecomputeStatus(ctx, a.ID, now0)
	require.NoError(t, err)
	_, err = s.AppendBid(ctx, a.ID, "buyer-1", 1_100)
	require.NoError(t, err)
	_, err = s.AppendBid(ctx, a.ID, "buyer-1", 1_000)
	require.Error(t, err)
	_, err = s.RecomputeStatus(ctx, a.ID, now0.Add(2*time.Hour))
	require.NoError(t, err)

	var published []domain.EventType
	pending, err := s.PublishPending(a.ID, func(ev domain.Event) {
		published = append(published, ev.Type)
	})
	require.NoError(t, err)
	want := []domain.EventType{domain.EventAuctionStarted, domain.EventBidAccepted, domain.EventAuctionEnded}
	assert.Equal(t, want, published)
	require.Len(t, pending, 3)
	assert.Equal(t, int64(1_100), pending[2].FinalPrice)

	pending, err = s.PublishPending(a.ID, func(domain.Event) { t.Fatal("outbox already drained") })
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = s.PublishPending(uuid.New(), func(domain.Event) {})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentDrainersPublishEachEventOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := createAuction(t, s, 1_000, 100, now0.Add(-time.Hour), now0.Add(time.Hour))

	var mu sync.Mutex
	var amounts []int64
	publish := func(ev domain.Event) {
		if ev.Type != domain.EventBidAccepted {
			return
		}
		mu.Lock()
		amounts = append(amounts, ev.Amount)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			if _, err := s.AppendBid(ctx, a.ID, "buyer", amount); err == nil {
				_, _ = s.PublishPending(a.ID, publish)
			}
		}(int64(2_000 + i*200))
	}
	wg.Wait()
	_, err := s.PublishPending(a.ID, publish)
	require.NoError(t, err)

	snap, err := s.GetSnapshot(ctx, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Bids)
	require.Len(t, amounts, len(snap.Bids))
	for i, b := range snap.Bids {
		assert.Equal(t, b.Amount, amounts[i], "event %d out of acceptance order", i)
	}
}
