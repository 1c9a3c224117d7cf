package queue

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/observability/metrics"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

var queueTracer = otel.Tracer("clinicconnect.internal.queue")

// PositionMode selects how join positions are assigned.
type PositionMode string

const (
	// PositionModeCount reads the current active count and writes count+1.
	// Two joins inside the same round-trip window can observe the same count
	// and get the same position; this mode exists for store backends without
	// an atomic counter.
	PositionModeCount PositionMode = "count"

	// PositionModeCounter takes the next value of a per-clinic atomic
	// sequence, so concurrent joins always get distinct positions.
	PositionModeCounter PositionMode = "counter"
)

// Gate decides whether a clinic can accept a join right now.
type Gate interface {
	CanJoin(ctx context.Context, clinicID string) (ok bool, reason string, err error)
}

// Rules are the clinic-independent queue coordination constants.
type Rules struct {
	AvgServiceMinutes int
	MinWaitMinutes    int
	PositionMode      PositionMode
}

func (r Rules) withDefaults() Rules {
	if r.AvgServiceMinutes <= 0 {
		r.AvgServiceMinutes = DefaultAvgServiceMinutes
	}
	if r.MinWaitMinutes <= 0 {
		r.MinWaitMinutes = DefaultMinWaitMinutes
	}
	if r.PositionMode == "" {
		r.PositionMode = PositionModeCounter
	}
	return r
}

// Coordinator owns the business logic of joining, leaving, updating and
// aggregating clinic walk-in queues.
type Coordinator struct {
	store   store.Client
	counter store.Counter
	gate    Gate
	rules   Rules
	logger  *logging.Logger
	metrics *metrics.QueueMetrics
}

// NewCoordinator creates a queue coordinator. counter may be nil, in which
// case position assignment falls back to count mode. gate may be nil to skip
// the availability check (tests only).
func NewCoordinator(st store.Client, counter store.Counter, gate Gate, rules Rules, logger *logging.Logger, m *metrics.QueueMetrics) *Coordinator {
	if st == nil {
		panic("queue: store client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		store:   st,
		counter: counter,
		gate:    gate,
		rules:   rules.withDefaults(),
		logger:  logger,
		metrics: m,
	}
}

// Join places the patient in the clinic's queue and returns the created entry.
// It fails with ErrAlreadyInQueue when the patient already holds an active
// entry anywhere, and with *UnavailableError when the clinic is closed or full.
func (c *Coordinator) Join(ctx context.Context, clinicID string, details Details, patientID string) (Entry, error) {
	started := time.Now()

	ctx, span := queueTracer.Start(ctx, "queue.join")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicconnect.clinic_id", clinicID),
	)

	active, err := c.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{
			store.Eq(FieldPatientID, patientID),
			store.In(FieldStatus, ActiveStatuses()...),
		},
	})
	if err != nil {
		span.RecordError(err)
		return Entry{}, storeErr("join: check active entry", err)
	}
	if len(active) > 0 {
		c.metrics.ObserveJoinRejected(clinicID, "already_in_queue")
		return Entry{}, ErrAlreadyInQueue
	}

	if c.gate != nil {
		ok, reason, err := c.gate.CanJoin(ctx, clinicID)
		if err != nil {
			span.RecordError(err)
			return Entry{}, storeErr("join: availability check", err)
		}
		if !ok {
			c.metrics.ObserveJoinRejected(clinicID, "unavailable")
			return Entry{}, &UnavailableError{Reason: reason}
		}
	}

	activeCount, err := c.activeCount(ctx, clinicID)
	if err != nil {
		span.RecordError(err)
		return Entry{}, err
	}
	position := activeCount + 1
	if c.rules.PositionMode == PositionModeCounter && c.counter != nil {
		position, err = c.counter.Next(ctx, "clinic:"+clinicID)
		if err != nil {
			span.RecordError(err)
			return Entry{}, storeErr("join: next position", err)
		}
	}
	// The wait estimate always derives from the live queue depth. Counter
	// tickets never reset, so a drained clinic's ticket number would
	// otherwise inflate the estimate.
	wait := WaitMinutes(activeCount+1, c.rules.AvgServiceMinutes, c.rules.MinWaitMinutes)
	span.SetAttributes(attribute.Int("clinicconnect.position", position))

	rec, err := c.store.Create(ctx, Collection, map[string]any{
		FieldClinicID:          clinicID,
		FieldPatientID:         patientID,
		FieldName:              details.Name,
		FieldNationalID:        details.NationalID,
		FieldPhone:             details.Phone,
		FieldStatus:            string(StatusWaiting),
		FieldPosition:          position,
		FieldEstimatedWait:     wait,
		FieldNotificationCount: 0,
	})
	if err != nil {
		span.RecordError(err)
		return Entry{}, storeErr("join: create entry", err)
	}

	c.metrics.ObserveJoin(clinicID, time.Since(started).Seconds())
	c.logger.Info("queue: patient joined",
		"clinic_id", clinicID,
		"entry_id", rec.ID,
		"position", position,
	)
	return EntryFromRecord(rec), nil
}

// Leave removes the entry. A missing entry is treated as success so repeated
// leaves are idempotent from the caller's perspective.
func (c *Coordinator) Leave(ctx context.Context, entryID string) error {
	ctx, span := queueTracer.Start(ctx, "queue.leave")
	defer span.End()
	span.SetAttributes(attribute.String("clinicconnect.entry_id", entryID))

	if err := c.store.Delete(ctx, Collection, entryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		span.RecordError(err)
		return storeErr("leave: delete entry", err)
	}
	c.metrics.ObserveLeave()
	c.logger.Info("queue: entry removed", "entry_id", entryID)
	return nil
}

// UpdateDetails patches the patient-supplied fields. Status and position are
// never touched. Fails with ErrNotInQueue when the entry is gone.
func (c *Coordinator) UpdateDetails(ctx context.Context, entryID string, updates Details) error {
	fields := make(map[string]any, 3)
	if updates.Name != "" {
		fields[FieldName] = updates.Name
	}
	if updates.NationalID != "" {
		fields[FieldNationalID] = updates.NationalID
	}
	if updates.Phone != "" {
		fields[FieldPhone] = updates.Phone
	}
	if len(fields) == 0 {
		return nil
	}

	if err := c.store.Update(ctx, Collection, entryID, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotInQueue
		}
		return storeErr("update details", err)
	}
	return nil
}

// ClinicStats recomputes the clinic aggregate from the live active entries.
// It never fails outward: on store errors the zero aggregate is returned with
// an unknown wait, since this feeds advisory display only.
func (c *Coordinator) ClinicStats(ctx context.Context, clinicID string) Stats {
	records, err := c.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{
			store.Eq(FieldClinicID, clinicID),
			store.In(FieldStatus, ActiveStatuses()...),
		},
		OrderBy: FieldPosition,
	})
	if err != nil {
		c.logger.Warn("queue: stats query failed", "clinic_id", clinicID, "error", err)
		return Stats{ClinicID: clinicID, EstimatedWait: "unknown"}
	}
	return c.StatsFromRecords(clinicID, records)
}

// StatsFromRecords computes the aggregate from an already-fetched result set,
// used by the sync layer to derive stats from pushed snapshots.
func (c *Coordinator) StatsFromRecords(clinicID string, records []store.Record) Stats {
	stats := Stats{ClinicID: clinicID, Total: len(records)}
	for _, r := range records {
		switch Status(r.String(FieldStatus)) {
		case StatusWaiting:
			stats.Waiting++
		case StatusCalled:
			stats.Called++
		}
	}
	stats.EstimatedWait = CalculateWait(stats.Total+1, c.rules.AvgServiceMinutes, c.rules.MinWaitMinutes)
	return stats
}

// FormatWait renders the wait estimate for a position under this
// coordinator's rules.
func (c *Coordinator) FormatWait(position int) string {
	return CalculateWait(position, c.rules.AvgServiceMinutes, c.rules.MinWaitMinutes)
}

// RecordNotified stamps an entry's notification bookkeeping after an event
// for it reached the patient's feed. A missing entry is ignored: the patient
// may have left between emission and the write.
func (c *Coordinator) RecordNotified(ctx context.Context, entryID string, count int) error {
	err := c.store.Update(ctx, Collection, entryID, map[string]any{
		FieldLastNotifiedAt:    time.Now().UTC().Format(time.RFC3339),
		FieldNotificationCount: count,
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeErr("record notified", err)
	}
	return nil
}

func (c *Coordinator) activeCount(ctx context.Context, clinicID string) (int, error) {
	records, err := c.store.Query(ctx, Collection, store.Query{
		Filters: []store.Filter{
			store.Eq(FieldClinicID, clinicID),
			store.In(FieldStatus, ActiveStatuses()...),
		},
	})
	if err != nil {
		return 0, storeErr("join: count active entries", err)
	}
	return len(records), nil
}
