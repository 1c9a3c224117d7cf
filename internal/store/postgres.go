package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// notifyChannel is the Postgres NOTIFY channel carrying change markers.
const notifyChannel = "store_changes"

// pgxDB is the slice of pgxpool.Pool the store needs, kept narrow so tests
// can inject pgxmock.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a Client on a JSONB documents table. Writes NOTIFY on a shared
// channel; a single LISTEN connection dispatches markers to subscriptions,
// which re-run their query and redeliver the full result set.
type Postgres struct {
	db     pgxDB
	pool   *pgxpool.Pool
	logger *logging.Logger

	mu     sync.Mutex
	subs   map[int]*postgresSub
	nextID int
}

type postgresSub struct {
	store      *Postgres
	id         int
	collection string
	query      Query
	fn         SnapshotFunc
	deliverMu  sync.Mutex
	cancelOnce sync.Once
}

// NewPostgres builds a store on the given pool. The pool is retained for the
// dedicated LISTEN connection used by Listen.
func NewPostgres(pool *pgxpool.Pool, logger *logging.Logger) *Postgres {
	if pool == nil {
		panic("store: pgx pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Postgres{db: pool, pool: pool, logger: logger, subs: make(map[int]*postgresSub)}
}

// NewPostgresWithDB allows injecting a mock database for testing. Push
// delivery is unavailable without a pool.
func NewPostgresWithDB(db pgxDB, logger *logging.Logger) *Postgres {
	if logger == nil {
		logger = logging.Default()
	}
	return &Postgres{db: db, logger: logger, subs: make(map[int]*postgresSub)}
}

var _ Client = (*Postgres)(nil)
var _ Counter = (*Postgres)(nil)

// Create inserts a record with a fresh ID; created_at is assigned by Postgres.
func (s *Postgres) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return Record{}, fmt.Errorf("store: failed to marshal fields: %w", err)
	}

	rec := Record{ID: uuid.NewString(), Fields: fields}
	query := `
		INSERT INTO documents (collection, id, fields, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query, collection, rec.ID, payload).Scan(&rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("store: failed to persist record: %w", err)
	}

	s.notify(ctx, collection)
	return rec, nil
}

// Query fetches the collection and evaluates filters client-side, matching
// the semantics of the other backends.
func (s *Postgres) Query(ctx context.Context, collection string, q Query) ([]Record, error) {
	rows, err := s.db.Query(ctx, `SELECT id, fields, created_at FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: failed to scan record: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Fields); err != nil {
			return nil, fmt.Errorf("store: failed to decode record %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: failed to read %s: %w", collection, err)
	}
	return Eval(records, q), nil
}

// Update merges the named fields into an existing record's document.
func (s *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("store: failed to marshal fields: %w", err)
	}

	ct, err := s.db.Exec(ctx,
		`UPDATE documents SET fields = fields || $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, id, payload)
	if err != nil {
		return fmt.Errorf("store: failed to update record %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.notify(ctx, collection)
	return nil
}

// Delete removes a record. Deleting an absent record is a no-op.
func (s *Postgres) Delete(ctx context.Context, collection, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("store: failed to delete record %s: %w", id, err)
	}

	if ct.RowsAffected() > 0 {
		s.notify(ctx, collection)
	}
	return nil
}

// Subscribe registers a live query. Push delivery requires Listen running.
func (s *Postgres) Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (Subscription, error) {
	records, err := s.Query(ctx, collection, q)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.nextID++
	sub := &postgresSub{store: s, id: s.nextID, collection: collection, query: q, fn: fn}
	s.subs[sub.id] = sub
	s.mu.Unlock()

	fn(records)
	return sub, nil
}

// Next atomically increments and returns the named sequence.
func (s *Postgres) Next(ctx context.Context, name string) (int, error) {
	query := `
		INSERT INTO counters (name, seq)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`
	var seq int
	if err := s.db.QueryRow(ctx, query, name).Scan(&seq); err != nil {
		return 0, fmt.Errorf("store: failed to increment counter %s: %w", name, err)
	}
	return seq, nil
}

// Listen holds a dedicated connection on the NOTIFY channel and dispatches
// change markers to subscriptions. It blocks until ctx is cancelled.
func (s *Postgres) Listen(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("store: listen requires a pgx pool")
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("store: failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("store: failed to listen: %w", err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("store: wait for notification: %w", err)
		}
		s.dispatch(ctx, notification.Payload)
	}
}

func (s *Postgres) dispatch(ctx context.Context, collection string) {
	s.mu.Lock()
	var targets []*postgresSub
	for _, sub := range s.subs {
		if sub.collection == collection {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		records, err := s.Query(ctx, collection, sub.query)
		if err != nil {
			s.logger.Error("store: subscription requery failed", "collection", collection, "error", err)
			continue
		}
		sub.deliverMu.Lock()
		sub.fn(records)
		sub.deliverMu.Unlock()
	}
}

func (s *postgresSub) Cancel() {
	s.cancelOnce.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
	})
}

func (s *Postgres) notify(ctx context.Context, collection string) {
	if _, err := s.db.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection); err != nil {
		s.logger.Error("store: failed to publish change marker", "collection", collection, "error", err)
	}
}
