package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/crimewatch/internal/domain/news"
	"github.com/geocoder89/crimewatch/internal/utils"
)

// NewsRepo keeps items in insertion order, which is also timestamp order.
type NewsRepo struct {
	mu    sync.RWMutex
	items []news.Item
	clock *utils.Clock
}

func NewNewsRepo() *NewsRepo {
	return &NewsRepo{clock: utils.NewClock()}
}

func (r *NewsRepo) Create(ctx context.Context, req news.CreateRequest) (news.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item := news.NewFromCreateRequest(req, r.clock.Now())
	r.items = append(r.items, item)

	return item, nil
}

func (r *NewsRepo) List(ctx context.Context, filter news.ListFilter) ([]news.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.items)
	if filter.Limit > 0 && filter.Limit < n {
		n = filter.Limit
	}

	out := make([]news.Item, 0, n)
	for i := 0; i < n; i++ {
		if filter.Ascending {
			out = append(out, r.items[i])
		} else {
			out = append(out, r.items[len(r.items)-1-i])
		}
	}
	return out, nil
}

func (r *NewsRepo) GetByID(ctx context.Context, id string) (news.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, it := range r.items {
		if it.ID == id {
			return it, nil
		}
	}
	return news.Item{}, news.ErrNotFound
}

func (r *NewsRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}
