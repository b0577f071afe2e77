package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskbench/backend/internal/models"
	"github.com/taskbench/backend/pkg/tool"
)

// MemoryStore is a map-backed SubscriptionStore for tests and local runs.
// A single mutex serializes all mutations, which satisfies the per-row
// locking contract of Mutate.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]models.Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]models.Subscription)}
}

func (m *MemoryStore) Create(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub.ID == "" {
		sub.ID = tool.GenerateUUIDV7()
	}
	m.subs[sub.ID] = *sub
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := sub
	return &cp, nil
}

func (m *MemoryStore) FindCurrentByUser(_ context.Context, userID string) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.Subscription
	for id := range m.subs {
		sub := m.subs[id]
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.StartDate.After(latest.StartDate) {
			cp := sub
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStore) ListDueForRenewal(_ context.Context, now time.Time) ([]*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*models.Subscription
	for id := range m.subs {
		sub := m.subs[id]
		if sub.IsActive && sub.PaymentMethodID != "" && sub.EndDate != nil && !sub.EndDate.After(now) {
			cp := sub
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].EndDate.Before(*due[j].EndDate) })
	return due, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *MemoryStore) Mutate(_ context.Context, id string, fn func(sub *models.Subscription) (MutateResult, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return ErrNotFound
	}
	result, err := fn(&sub)
	if err != nil {
		return err
	}
	switch result {
	case MutateSave:
		m.subs[id] = sub
	case MutateDelete:
		delete(m.subs, id)
	}
	return nil
}

// Count returns the number of subscription rows owned by the user.
func (m *MemoryStore) Count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sub := range m.subs {
		if sub.UserID == userID {
			n++
		}
	}
	return n
}
