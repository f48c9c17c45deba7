package store

import (
	"context"
	"sync"

	"github.com/agentic-research/seedgraph/internal/record"
	"github.com/google/uuid"
)

// Memory is an in-process engine. Committed records are kept as clones.
type Memory struct {
	mu      sync.RWMutex
	records map[record.EntityType][]*record.Record
	byID    map[string]*record.Record
	newID   func() string
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[record.EntityType][]*record.Record),
		byID:    make(map[string]*record.Record),
		newID:   uuid.NewString,
	}
}

func (m *Memory) NewUnitOfWork(order []record.EntityType) UnitOfWork {
	return &memoryUnit{queue: newQueue(order), store: m}
}

// Records returns copies of the committed records of type t in commit order.
func (m *Memory) Records(t record.EntityType) []*record.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*record.Record, 0, len(m.records[t]))
	for _, r := range m.records[t] {
		out = append(out, r.Clone())
	}
	return out
}

// Get returns a copy of the committed record with the given identifier.
func (m *Memory) Get(id string) (*record.Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// lookupLocked must be called with m.mu held.
func (m *Memory) lookupLocked(_ context.Context, target record.Descriptor, externalID any) (string, bool, error) {
	for _, r := range m.records[target.Entity] {
		if v, ok := r.Get(target.Field); ok && record.Equal(v, externalID) {
			return r.ID, true, nil
		}
	}
	return "", false, nil
}

type memoryUnit struct {
	*queue
	store *Memory
}

func (u *memoryUnit) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := u.store
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := u.plan(ctx, m.newID, m.lookupLocked)
	if err != nil {
		return err
	}
	for _, r := range rows {
		stored := record.FromValues(r.rec.Type, r.values)
		stored.ID = r.id
		m.records[stored.Type] = append(m.records[stored.Type], stored)
		m.byID[stored.ID] = stored
	}
	apply(rows)
	return nil
}

var _ Engine = (*Memory)(nil)
