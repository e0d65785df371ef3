package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/crimewatch/internal/domain/incident"
	"github.com/geocoder89/crimewatch/internal/utils"
)

// IncidentsRepo keeps incidents in insertion order, which is also timestamp order.
type IncidentsRepo struct {
	mu    sync.RWMutex
	items []incident.Incident
	index map[string]int
	clock *utils.Clock
}

func NewIncidentsRepo() *IncidentsRepo {
	return &IncidentsRepo{
		index: make(map[string]int),
		clock: utils.NewClock(),
	}
}

func (r *IncidentsRepo) Create(ctx context.Context, req incident.ReportRequest, reporter string) (incident.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inc := incident.NewFromReport(req, reporter, r.clock.Now())
	r.index[inc.ID] = len(r.items)
	r.items = append(r.items, inc)

	return inc, nil
}

func (r *IncidentsRepo) List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]incident.Incident, 0, len(r.items))
	for i := range r.items {
		it := r.items[len(r.items)-1-i]
		if filter.Ascending {
			it = r.items[i]
		}
		if filter.Status != nil && it.Status != *filter.Status {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *IncidentsRepo) GetByID(ctx context.Context, id string) (incident.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[id]
	if !ok {
		return incident.Incident{}, incident.ErrNotFound
	}
	return r.items[i], nil
}

func (r *IncidentsRepo) UpdateStatus(ctx context.Context, id string, upd incident.StatusUpdate) (incident.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return incident.Incident{}, incident.ErrNotFound
	}

	r.items[i].Status = upd.Status
	if upd.ActionsTaken != nil {
		r.items[i].ActionsTaken = *upd.ActionsTaken
	}
	return r.items[i], nil
}

func (r *IncidentsRepo) Count(ctx context.Context, filter incident.ListFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Status == nil {
		return len(r.items), nil
	}

	n := 0
	for _, it := range r.items {
		if it.Status == *filter.Status {
			n++
		}
	}
	return n, nil
}
