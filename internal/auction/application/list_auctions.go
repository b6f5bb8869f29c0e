package application

import (
	"context"
	"errors"
	"sort"

	"github.com/cristianortiz/evauction/internal/auction/domain"
)

// ListAuctionsUseCase backs the listing and moderation screens, optionally
// partitioned by status
type ListAuctionsUseCase struct {
	store    AuctionStore
	deriveUC *DeriveViewUseCase
}

func NewListAuctionsUseCase(store AuctionStore, deriveUC *DeriveViewUseCase) *ListAuctionsUseCase {
	return &ListAuctionsUseCase{store: store, deriveUC: deriveUC}
}

// Execute returns the views ordered by start time. A nil filter lists everything.
func (uc *ListAuctionsUseCase) Execute(ctx context.Context, filter *domain.Status) ([]*AuctionView, error) {
	ids := uc.store.IDs()
	views := make([]*AuctionView, 0, len(ids))
	for _, id := range ids {
		view, err := uc.deriveUC.Execute(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if filter != nil && view.Status != *filter {
			continue
		}
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		if !views[i].StartAt.Equal(views[j].StartAt) {
			return views[i].StartAt.Before(views[j].StartAt)
		}
		return views[i].AuctionID.String() < views[j].AuctionID.String()
	})
	return views, nil
}
