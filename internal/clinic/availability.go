package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// Checker evaluates the per-clinic business rules gating a join: open-hours
// window and maximum queue size. The verdict is advisory; the store does not
// enforce it, so a race between two near-simultaneous joins remains possible.
type Checker struct {
	directory *Directory
	store     store.Client
	avg       int
	min       int
	maxSize   int
	now       func() time.Time
	logger    *logging.Logger
}

// NewChecker creates an availability checker. avg/min/maxSize are fallbacks
// for clinics without their own values.
func NewChecker(directory *Directory, st store.Client, avg, min, maxSize int, logger *logging.Logger) *Checker {
	if directory == nil {
		panic("clinic: directory required")
	}
	if st == nil {
		panic("clinic: store client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if avg <= 0 {
		avg = queue.DefaultAvgServiceMinutes
	}
	if min <= 0 {
		min = queue.DefaultMinWaitMinutes
	}
	if maxSize <= 0 {
		maxSize = 50
	}
	return &Checker{
		directory: directory,
		store:     st,
		avg:       avg,
		min:       min,
		maxSize:   maxSize,
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock overrides the time source, for tests.
func (c *Checker) WithClock(now func() time.Time) *Checker {
	c.now = now
	return c
}

var _ queue.Gate = (*Checker)(nil)

// IsAvailable reports whether the clinic can accept a join right now, along
// with the current waiting count and the wait estimate a new joiner would see.
func (c *Checker) IsAvailable(ctx context.Context, clinicID string) (Availability, error) {
	clin, err := c.directory.Get(ctx, clinicID)
	if err != nil {
		return Availability{}, err
	}

	waiting, err := c.waitingCount(ctx, clinicID)
	if err != nil {
		return Availability{}, fmt.Errorf("clinic: availability: %w", err)
	}

	avg := clin.AvgServiceMinutes
	if avg <= 0 {
		avg = c.avg
	}
	result := Availability{
		CurrentQueue:  waiting,
		EstimatedWait: queue.CalculateWait(waiting+1, avg, c.min),
	}

	if !withinOpenHours(clin.OpenTime, clin.CloseTime, c.now()) {
		result.Reason = fmt.Sprintf("clinic is closed (open %s–%s)", clin.OpenTime, clin.CloseTime)
		return result, nil
	}

	maxSize := clin.MaxQueueSize
	if maxSize <= 0 {
		maxSize = c.maxSize
	}
	if waiting >= maxSize {
		result.Reason = "queue is full"
		return result, nil
	}

	result.Available = true
	return result, nil
}

// CanJoin adapts IsAvailable to the coordinator's gate interface.
func (c *Checker) CanJoin(ctx context.Context, clinicID string) (bool, string, error) {
	availability, err := c.IsAvailable(ctx, clinicID)
	if err != nil {
		return false, "", err
	}
	return availability.Available, availability.Reason, nil
}

func (c *Checker) waitingCount(ctx context.Context, clinicID string) (int, error) {
	records, err := c.store.Query(ctx, queue.Collection, store.Query{
		Filters: []store.Filter{
			store.Eq(queue.FieldClinicID, clinicID),
			store.Eq(queue.FieldStatus, string(queue.StatusWaiting)),
		},
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// withinOpenHours checks whether the local time of day falls inside the
// clinic's window. Unparseable or missing bounds leave the clinic open.
func withinOpenHours(open, close string, at time.Time) bool {
	openT, err1 := time.Parse("15:04", open)
	closeT, err2 := time.Parse("15:04", close)
	if err1 != nil || err2 != nil {
		return true
	}

	minutes := at.Hour()*60 + at.Minute()
	openMin := openT.Hour()*60 + openT.Minute()
	closeMin := closeT.Hour()*60 + closeT.Minute()

	if openMin == closeMin {
		return true
	}
	if openMin < closeMin {
		return minutes >= openMin && minutes < closeMin
	}
	// Overnight window, e.g. 22:00–06:00.
	return minutes >= openMin || minutes < closeMin
}
