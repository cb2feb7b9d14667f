package broadcast

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	broadcasts map[string]*Broadcast
}

// NewInMemoryRepository creates a new in-memory broadcast repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		broadcasts: make(map[string]*Broadcast),
	}
}

// Get retrieves a broadcast by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Broadcast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.broadcasts[id]
	if !ok {
		return nil, ErrBroadcastNotFound
	}

	cpy := *b
	return &cpy, nil
}

// List retrieves broadcasts, newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*Broadcast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[Status]struct{}, len(opts.Statuses))
	for _, s := range opts.Statuses {
		wanted[s] = struct{}{}
	}

	var out []*Broadcast
	for _, b := range r.broadcasts {
		if len(wanted) > 0 {
			if _, ok := wanted[b.Status]; !ok {
				continue
			}
		}
		cpy := *b
		out = append(out, &cpy)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Create creates a new broadcast record.
func (r *InMemoryRepository) Create(_ context.Context, b *Broadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *b
	r.broadcasts[b.ID] = &cpy
	return nil
}

// Update updates an existing broadcast record.
func (r *InMemoryRepository) Update(_ context.Context, b *Broadcast) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.broadcasts[b.ID]; !ok {
		return ErrBroadcastNotFound
	}
	cpy := *b
	r.broadcasts[b.ID] = &cpy
	return nil
}
