// Package sync maintains the live client-side view of queue state: one
// subscription per watched patient and per watched clinic, each normalizing
// pushed result sets into view types the UI layer consumes.
package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/observability/metrics"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// PatientViewFunc receives the canonical "my queue" state on every push.
// A nil entry means the patient is not in any queue.
type PatientViewFunc func(entry *queue.Entry)

// RosterFunc receives a clinic's ordered active roster and the aggregate
// recomputed from the same snapshot.
type RosterFunc func(entries []queue.Entry, stats queue.Stats)

// Watcher owns the live subscriptions against the queue store. It guarantees
// at most one live subscription per watch key; re-watching a key replaces the
// previous subscription.
type Watcher struct {
	store   store.Client
	coord   *queue.Coordinator
	logger  *logging.Logger
	metrics *metrics.QueueMetrics

	mu      gosync.Mutex
	watches map[string]store.Subscription
	connErr atomic.Bool
}

// NewWatcher creates a sync watcher.
func NewWatcher(st store.Client, coord *queue.Coordinator, logger *logging.Logger, m *metrics.QueueMetrics) *Watcher {
	if st == nil {
		panic("sync: store client required")
	}
	if coord == nil {
		panic("sync: coordinator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		store:   st,
		coord:   coord,
		logger:  logger,
		metrics: m,
		watches: make(map[string]store.Subscription),
	}
}

// ConnErr reports the sticky connection-error flag. It latches on a failed
// subscribe and clears on the next successful one; data pushed before a fault
// remains the last known good state.
func (w *Watcher) ConnErr() bool {
	return w.connErr.Load()
}

// WatchPatient subscribes to the patient's active entry. Subscribe faults do
// not propagate; they set the sticky connection-error flag.
func (w *Watcher) WatchPatient(ctx context.Context, patientID string, fn PatientViewFunc) {
	q := store.Query{
		Filters: []store.Filter{
			store.Eq(queue.FieldPatientID, patientID),
			store.In(queue.FieldStatus, queue.ActiveStatuses()...),
		},
	}
	w.watch(ctx, "patient:"+patientID, q, func(records []store.Record) {
		if len(records) == 0 {
			fn(nil)
			return
		}
		entry := queue.EntryFromRecord(records[0])
		fn(&entry)
	})
}

// WatchClinic subscribes to a clinic's active roster ordered by position.
func (w *Watcher) WatchClinic(ctx context.Context, clinicID string, fn RosterFunc) {
	q := store.Query{
		Filters: []store.Filter{
			store.Eq(queue.FieldClinicID, clinicID),
			store.In(queue.FieldStatus, queue.ActiveStatuses()...),
		},
		OrderBy: queue.FieldPosition,
	}
	w.watch(ctx, "clinic:"+clinicID, q, func(records []store.Record) {
		entries := make([]queue.Entry, 0, len(records))
		for _, r := range records {
			entries = append(entries, queue.EntryFromRecord(r))
		}
		fn(entries, w.coord.StatsFromRecords(clinicID, records))
	})
}

// CancelPatient tears down the patient watch, if any.
func (w *Watcher) CancelPatient(patientID string) {
	w.cancel("patient:" + patientID)
}

// CancelClinic tears down the clinic watch, if any.
func (w *Watcher) CancelClinic(clinicID string) {
	w.cancel("clinic:" + clinicID)
}

// Close cancels every live subscription.
func (w *Watcher) Close() {
	w.mu.Lock()
	subs := make([]store.Subscription, 0, len(w.watches))
	for key, sub := range w.watches {
		subs = append(subs, sub)
		delete(w.watches, key)
	}
	w.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

func (w *Watcher) watch(ctx context.Context, key string, q store.Query, fn store.SnapshotFunc) {
	w.cancel(key)

	sub, err := w.store.Subscribe(ctx, queue.Collection, q, fn)
	if err != nil {
		w.connErr.Store(true)
		w.metrics.ObserveSubscriptionError()
		w.logger.Error("sync: subscribe failed", "key", key, "error", err)
		return
	}
	w.connErr.Store(false)

	w.mu.Lock()
	if prev, ok := w.watches[key]; ok {
		// A concurrent watch on the same key won the race; keep the newest.
		prev.Cancel()
	}
	w.watches[key] = sub
	w.mu.Unlock()
}

func (w *Watcher) cancel(key string) {
	w.mu.Lock()
	sub, ok := w.watches[key]
	if ok {
		delete(w.watches, key)
	}
	w.mu.Unlock()
	if ok {
		sub.Cancel()
	}
}
