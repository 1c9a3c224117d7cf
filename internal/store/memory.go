package store

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Client used by tests and local development. It
// mirrors the push semantics of the remote backends: every mutation redelivers
// the full result set to matching subscriptions.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Record
	counters    map[string]int
	subs        map[int]*memorySub
	nextSubID   int
}

type memorySub struct {
	store      *Memory
	id         int
	collection string
	query      Query
	fn         SnapshotFunc
	cancelOnce sync.Once
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Record),
		counters:    make(map[string]int),
		subs:        make(map[int]*memorySub),
	}
}

var _ Client = (*Memory)(nil)
var _ Counter = (*Memory)(nil)

// Create inserts a record, assigning its ID and creation timestamp.
func (m *Memory) Create(_ context.Context, collection string, fields map[string]any) (Record, error) {
	rec := Record{
		ID:        uuid.NewString(),
		Fields:    maps.Clone(fields),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	coll, ok := m.collections[collection]
	if !ok {
		coll = make(map[string]Record)
		m.collections[collection] = coll
	}
	coll[rec.ID] = rec
	m.mu.Unlock()

	m.notify(collection)
	return rec, nil
}

// Query returns a point-in-time filtered, ordered result set.
func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Record, error) {
	m.mu.Lock()
	records := m.snapshotLocked(collection)
	m.mu.Unlock()
	return Eval(records, q), nil
}

// Update patches the named fields of an existing record.
func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	rec, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	updated := maps.Clone(rec.Fields)
	maps.Copy(updated, fields)
	rec.Fields = updated
	m.collections[collection][id] = rec
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

// Delete removes a record. Deleting an absent record is a no-op.
func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	_, existed := m.collections[collection][id]
	delete(m.collections[collection], id)
	m.mu.Unlock()

	if existed {
		m.notify(collection)
	}
	return nil
}

// Subscribe registers a live query. The current result set is delivered
// synchronously before Subscribe returns.
func (m *Memory) Subscribe(_ context.Context, collection string, q Query, fn SnapshotFunc) (Subscription, error) {
	m.mu.Lock()
	m.nextSubID++
	sub := &memorySub{store: m, id: m.nextSubID, collection: collection, query: q, fn: fn}
	m.subs[sub.id] = sub
	records := m.snapshotLocked(collection)
	m.mu.Unlock()

	fn(Eval(records, q))
	return sub, nil
}

// Next atomically increments and returns the named counter.
func (m *Memory) Next(_ context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	return m.counters[name], nil
}

func (s *memorySub) Cancel() {
	s.cancelOnce.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
	})
}

func (m *Memory) snapshotLocked(collection string) []Record {
	coll := m.collections[collection]
	records := make([]Record, 0, len(coll))
	for _, r := range coll {
		records = append(records, r)
	}
	return records
}

// notify redelivers snapshots to every subscription on the collection.
// Callbacks run without the store lock held, so they may re-enter the store.
func (m *Memory) notify(collection string) {
	m.mu.Lock()
	var targets []*memorySub
	for _, sub := range m.subs {
		if sub.collection == collection {
			targets = append(targets, sub)
		}
	}
	records := m.snapshotLocked(collection)
	m.mu.Unlock()

	for _, sub := range targets {
		sub.fn(Eval(records, sub.query))
	}
}
