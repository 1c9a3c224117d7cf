package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/observability/metrics"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// Dedup converts the repeating stream of observed states into a
// strictly-deduplicated sequence of feed events. Every processed-key set is
// mutated under one mutex, atomically with the emission it guards, so a
// redelivered snapshot can never double-fire.
type Dedup struct {
	feed      *Feed
	scheduler *Scheduler
	waitFmt   func(position int) string
	namer     func(clinicID string) string
	recency   time.Duration
	now       func() time.Time
	metrics   *metrics.QueueMetrics
	logger    *logging.Logger

	onQueueEmit func(entryID string)

	mu            sync.Mutex
	processedKeys map[string]bool
	lastPosition  map[string]int
	knownAppts    map[string]appointments.Appointment
	processedAppt map[string]bool
	activeClinic  string
	cleared       bool
}

// NewDedup creates a dedup engine writing into the given feed. waitFmt
// renders a position's wait estimate; namer resolves clinic display names and
// may be nil.
func NewDedup(feed *Feed, scheduler *Scheduler, waitFmt func(int) string, namer func(string) string, recency time.Duration, m *metrics.QueueMetrics, logger *logging.Logger) *Dedup {
	if feed == nil {
		panic("notify: feed required")
	}
	if scheduler == nil {
		panic("notify: scheduler required")
	}
	if waitFmt == nil {
		waitFmt = func(position int) string {
			return queue.CalculateWait(position, queue.DefaultAvgServiceMinutes, queue.DefaultMinWaitMinutes)
		}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dedup{
		feed:          feed,
		scheduler:     scheduler,
		waitFmt:       waitFmt,
		namer:         namer,
		recency:       recency,
		now:           time.Now,
		metrics:       m,
		logger:        logger,
		processedKeys: make(map[string]bool),
		lastPosition:  make(map[string]int),
		knownAppts:    make(map[string]appointments.Appointment),
		processedAppt: make(map[string]bool),
	}
}

// WithClock overrides the time source, for tests.
func (d *Dedup) WithClock(now func() time.Time) *Dedup {
	d.now = now
	return d
}

// OnQueueEmit registers a callback fired after a queue event for a live entry
// reaches the feed, carrying the entry id. Set before the first observation.
func (d *Dedup) OnQueueEmit(fn func(entryID string)) {
	d.onQueueEmit = fn
}

// ObserveQueue processes one pushed "my queue" state. A nil entry means the
// patient is in no queue. Reprocessing an already-seen (clinic, position) key
// is a no-op; each disappearance fires its left event once.
func (d *Dedup) ObserveQueue(entry *queue.Entry) {
	// The callback runs outside the lock: it typically writes back to the
	// store, and that write is redelivered into ObserveQueue synchronously
	// on in-process backends.
	if notified := d.observeQueueLocked(entry); notified != "" && d.onQueueEmit != nil {
		d.onQueueEmit(notified)
	}
}

func (d *Dedup) observeQueueLocked(entry *queue.Entry) (notifiedEntryID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry == nil {
		if d.activeClinic == "" {
			return ""
		}
		clinicID := d.activeClinic
		d.activeClinic = ""

		leftKey := "left_" + clinicID
		if d.processedKeys[leftKey] {
			return ""
		}
		d.processedKeys[leftKey] = true
		if d.cleared {
			return ""
		}
		d.emitLocked(Event{
			Type:       TypeQueueUpdate,
			Title:      "Left queue",
			Message:    fmt.Sprintf("You have left the queue at %s.", d.clinicName(clinicID)),
			Priority:   PriorityNormal,
			LinkedType: "queue",
			LinkedID:   clinicID,
			Queue:      &QueueAction{ClinicID: clinicID, ClinicName: d.clinicName(clinicID)},
		})
		return ""
	}

	d.activeClinic = entry.ClinicID
	// The queue is live again, so the next disappearance may fire.
	delete(d.processedKeys, "left_"+entry.ClinicID)

	key := fmt.Sprintf("%s:%d", entry.ClinicID, entry.Position)
	if d.processedKeys[key] {
		return ""
	}
	d.processedKeys[key] = true
	d.cleared = false

	first := d.lastPosition[entry.ClinicID] == 0
	d.lastPosition[entry.ClinicID] = entry.Position

	name := d.clinicName(entry.ClinicID)
	wait := d.waitFmt(entry.Position)
	action := &QueueAction{
		ClinicID:      entry.ClinicID,
		ClinicName:    name,
		Position:      entry.Position,
		EstimatedWait: wait,
	}

	if first {
		d.emitLocked(Event{
			Type:       TypeQueueUpdate,
			Title:      "Joined queue",
			Message:    fmt.Sprintf("You are number %d in line at %s. Estimated wait: %s.", entry.Position, name, wait),
			Priority:   PriorityNormal,
			LinkedType: "queue",
			LinkedID:   entry.ID,
			Queue:      action,
		})
		return entry.ID
	}

	priority := PriorityNormal
	if entry.Position <= 3 {
		priority = PriorityHigh
	}
	d.emitLocked(Event{
		Type:       TypeQueueUpdate,
		Title:      "Queue update",
		Message:    fmt.Sprintf("You are now number %d in line at %s.", entry.Position, name),
		Priority:   priority,
		LinkedType: "queue",
		LinkedID:   entry.ID,
		Queue:      action,
	})
	return entry.ID
}

// ObserveAppointments processes one pushed appointment list for the patient.
// Fresh appointments emit a created event and arm a reminder; disappearing
// ones cancel the reminder and emit a cancelled event; moved ones emit a
// rescheduled event. Appointments older than the recency window on first
// sight are marked processed silently.
func (d *Dedup) ObserveAppointments(appts []appointments.Appointment) {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]bool, len(appts))
	for _, appt := range appts {
		seen[appt.ID] = true

		if prev, ok := d.knownAppts[appt.ID]; ok {
			if !prev.ScheduledFor.Equal(appt.ScheduledFor) {
				d.knownAppts[appt.ID] = appt
				d.cleared = false
				d.emitLocked(Event{
					Type:        TypeAppointmentReminder,
					Title:       "Appointment rescheduled",
					Message:     fmt.Sprintf("Your %s appointment moved to %s.", appt.Service, appt.ScheduledFor.Format("Mon 2 Jan 15:04")),
					Priority:    PriorityHigh,
					LinkedType:  "appointment",
					LinkedID:    appt.ID,
					Appointment: apptAction(appt),
				})
			}
			continue
		}
		d.knownAppts[appt.ID] = appt

		if d.processedAppt[appt.ID] {
			continue
		}
		d.processedAppt[appt.ID] = true

		if d.now().Sub(appt.CreatedAt) > d.recency {
			// Pre-existing appointment observed at startup; announce nothing.
			continue
		}

		d.cleared = false
		d.emitLocked(Event{
			Type:        TypeAppointmentReminder,
			Title:       "Appointment booked",
			Message:     fmt.Sprintf("Your %s appointment is set for %s.", appt.Service, appt.ScheduledFor.Format("Mon 2 Jan 15:04")),
			Priority:    PriorityNormal,
			LinkedType:  "appointment",
			LinkedID:    appt.ID,
			Appointment: apptAction(appt),
		})

		reminder := appt
		d.scheduler.Schedule(appt.ID, func() { d.emitReminder(reminder) })
	}

	for id, prev := range d.knownAppts {
		if seen[id] {
			continue
		}
		delete(d.knownAppts, id)
		d.scheduler.Cancel(id)

		cancelKey := "cancelled_" + id
		if d.processedKeys[cancelKey] {
			continue
		}
		d.processedKeys[cancelKey] = true
		if d.cleared {
			continue
		}
		d.emitLocked(Event{
			Type:        TypeAppointmentReminder,
			Title:       "Appointment cancelled",
			Message:     fmt.Sprintf("Your %s appointment was cancelled.", prev.Service),
			Priority:    PriorityNormal,
			LinkedType:  "appointment",
			LinkedID:    id,
			Appointment: apptAction(prev),
		})
	}
}

// ClearAll empties the feed and suppresses further emission for
// already-processed keys until a new join or appointment resets the flag.
func (d *Dedup) ClearAll() {
	d.mu.Lock()
	d.cleared = true
	d.mu.Unlock()
	d.feed.Clear()
}

// Close cancels all pending reminders.
func (d *Dedup) Close() {
	d.scheduler.Stop()
}

func (d *Dedup) emitReminder(appt appointments.Appointment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cleared {
		return
	}
	d.emitLocked(Event{
		Type:        TypeAppointmentReminder,
		Title:       "Appointment reminder",
		Message:     fmt.Sprintf("Reminder: your %s appointment is coming up at %s.", appt.Service, appt.ScheduledFor.Format("Mon 2 Jan 15:04")),
		Priority:    PriorityHigh,
		LinkedType:  "appointment",
		LinkedID:    appt.ID,
		Appointment: apptAction(appt),
	})
}

func (d *Dedup) emitLocked(e Event) {
	now := d.now()
	e.ID = newEventID(now)
	e.Timestamp = now
	d.feed.Add(e)
	d.metrics.ObserveNotification(string(e.Type))
	d.logger.Debug("notify: event emitted", "type", e.Type, "title", e.Title, "linked_id", e.LinkedID)
}

func (d *Dedup) clinicName(clinicID string) string {
	if d.namer == nil {
		return clinicID
	}
	if name := d.namer(clinicID); name != "" {
		return name
	}
	return clinicID
}

func apptAction(a appointments.Appointment) *AppointmentAction {
	return &AppointmentAction{
		AppointmentID: a.ID,
		ClinicID:      a.ClinicID,
		Service:       a.Service,
		ScheduledFor:  a.ScheduledFor,
	}
}
