package session

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/crimewatch/internal/cache"
)

const purgeEvery = time.Minute

type MemoryStore struct {
	c *cache.Cache[Session]

	mu         sync.Mutex
	byUser     map[string]map[string]struct{}
	lastPurged time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		c:          cache.New[Session](defaultTTL),
		byUser:     make(map[string]map[string]struct{}),
		lastPurged: time.Now(),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	m.c.SetTTL(s.ID, s, ttl)

	m.mu.Lock()
	ids, ok := m.byUser[s.UserID]
	if !ok {
		ids = make(map[string]struct{})
		m.byUser[s.UserID] = ids
	}
	ids[s.ID] = struct{}{}
	m.mu.Unlock()

	m.maybePurge()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, error) {
	s, ok := m.c.Get(id)
	if !ok || s.Expired(time.Now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.c.Delete(id)
	return nil
}

func (m *MemoryStore) RevokeAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	ids := m.byUser[userID]
	delete(m.byUser, userID)
	m.mu.Unlock()

	for id := range ids {
		m.c.Delete(id)
	}
	return nil
}

func (m *MemoryStore) maybePurge() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastPurged) < purgeEvery {
		return
	}
	m.lastPurged = time.Now()
	m.c.Purge()

	// drop index entries whose sessions are gone
	for uid, ids := range m.byUser {
		for id := range ids {
			if _, ok := m.c.Get(id); !ok {
				delete(ids, id)
			}
		}
		if len(ids) == 0 {
			delete(m.byUser, uid)
		}
	}
}
