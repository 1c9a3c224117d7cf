package notify

import (
	"testing"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
)

func newTestDedup(t *testing.T, delay time.Duration) (*Dedup, *Feed) {
	t.Helper()
	feed := NewFeed()
	scheduler := NewScheduler(delay, nil)
	t.Cleanup(scheduler.Stop)
	d := NewDedup(feed, scheduler, nil, nil, 5*time.Second, nil, nil)
	return d, feed
}

func entryAt(clinicID string, position int) *queue.Entry {
	return &queue.Entry{
		ID:       "entry-1",
		ClinicID: clinicID,
		Position: position,
		Status:   queue.StatusWaiting,
	}
}

func TestObserveQueueJoinedOnce(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)

	d.ObserveQueue(entryAt("clinic-1", 4))
	// Redelivered snapshots of the same state are no-ops.
	d.ObserveQueue(entryAt("clinic-1", 4))
	d.ObserveQueue(entryAt("clinic-1", 4))

	events := feed.List()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.Type != TypeQueueUpdate || e.Title != "Joined queue" {
		t.Errorf("event = %q %q", e.Type, e.Title)
	}
	if e.Queue == nil || e.Queue.Position != 4 {
		t.Fatalf("queue action = %+v", e.Queue)
	}
	if e.Queue.EstimatedWait != "45 min" {
		t.Errorf("estimated wait = %q, want %q", e.Queue.EstimatedWait, "45 min")
	}
	if e.Appointment != nil {
		t.Errorf("appointment payload set on queue event")
	}
}

func TestObserveQueuePositionUpdates(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)

	d.ObserveQueue(entryAt("clinic-1", 5))
	d.ObserveQueue(entryAt("clinic-1", 4))
	d.ObserveQueue(entryAt("clinic-1", 4))
	d.ObserveQueue(entryAt("clinic-1", 2))

	events := feed.List() // newest first
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Title != "Queue update" || events[0].Priority != PriorityHigh {
		t.Errorf("front-of-line update = %q priority %q, want high", events[0].Title, events[0].Priority)
	}
	if events[1].Priority != PriorityNormal {
		t.Errorf("mid-queue update priority = %q, want normal", events[1].Priority)
	}
	if events[2].Title != "Joined queue" {
		t.Errorf("oldest = %q, want joined", events[2].Title)
	}
}

func TestObserveQueueLeftFiresOncePerDisappearance(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)

	d.ObserveQueue(entryAt("clinic-1", 2))
	d.ObserveQueue(nil)
	d.ObserveQueue(nil) // redelivery of the empty state

	events := feed.List()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (joined + left)", len(events))
	}
	if events[0].Title != "Left queue" {
		t.Errorf("newest = %q, want left", events[0].Title)
	}

	// A new join re-arms the left notification.
	d.ObserveQueue(entryAt("clinic-1", 3))
	d.ObserveQueue(nil)
	if got := len(feed.List()); got != 4 {
		t.Errorf("events after rejoin cycle = %d, want 4", got)
	}
}

func TestObserveQueueNilWithoutJoinIsSilent(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)
	d.ObserveQueue(nil)
	d.ObserveQueue(nil)
	if got := len(feed.List()); got != 0 {
		t.Errorf("events = %d, want 0", got)
	}
}

func TestObserveAppointmentsFreshEmitsAndOldIsSilent(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)
	now := time.Now()
	d.WithClock(func() time.Time { return now })

	fresh := appointments.Appointment{
		ID:           "appt-1",
		ClinicID:     "clinic-1",
		Service:      "Dental Checkup",
		ScheduledFor: now.Add(48 * time.Hour),
		CreatedAt:    now.Add(-time.Second),
	}
	stale := appointments.Appointment{
		ID:           "appt-2",
		ClinicID:     "clinic-1",
		Service:      "Eye Test",
		ScheduledFor: now.Add(24 * time.Hour),
		CreatedAt:    now.Add(-time.Hour),
	}

	d.ObserveAppointments([]appointments.Appointment{fresh, stale})
	d.ObserveAppointments([]appointments.Appointment{fresh, stale})

	events := feed.List()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1 (stale appointment silent)", len(events))
	}
	if events[0].Title != "Appointment booked" || events[0].LinkedID != "appt-1" {
		t.Errorf("event = %q linked %q", events[0].Title, events[0].LinkedID)
	}
	if events[0].Appointment == nil || events[0].Appointment.Service != "Dental Checkup" {
		t.Errorf("appointment payload = %+v", events[0].Appointment)
	}
}

func TestAppointmentReminderFiresAfterDelay(t *testing.T) {
	d, feed := newTestDedup(t, 10*time.Millisecond)
	now := time.Now()
	d.WithClock(func() time.Time { return now })

	appt := appointments.Appointment{
		ID:           "appt-1",
		Service:      "Dental Checkup",
		ScheduledFor: now.Add(48 * time.Hour),
		CreatedAt:    now,
	}
	d.ObserveAppointments([]appointments.Appointment{appt})

	waitFor(t, func() bool {
		for _, e := range feed.List() {
			if e.Title == "Appointment reminder" {
				return true
			}
		}
		return false
	})
}

func TestCancelledAppointmentDropsReminder(t *testing.T) {
	d, feed := newTestDedup(t, 30*time.Millisecond)
	now := time.Now()
	d.WithClock(func() time.Time { return now })

	appt := appointments.Appointment{ID: "appt-1", Service: "Dental Checkup", CreatedAt: now}
	d.ObserveAppointments([]appointments.Appointment{appt})
	d.ObserveAppointments(nil) // appointment disappeared
	d.ObserveAppointments(nil)

	time.Sleep(80 * time.Millisecond)

	var cancelled, reminders int
	for _, e := range feed.List() {
		switch e.Title {
		case "Appointment cancelled":
			cancelled++
		case "Appointment reminder":
			reminders++
		}
	}
	if cancelled != 1 {
		t.Errorf("cancelled events = %d, want 1", cancelled)
	}
	if reminders != 0 {
		t.Errorf("reminder fired for cancelled appointment")
	}
}

func TestRescheduledAppointmentEmits(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)
	now := time.Now()
	d.WithClock(func() time.Time { return now })

	appt := appointments.Appointment{ID: "appt-1", Service: "Dental Checkup", ScheduledFor: now.Add(24 * time.Hour), CreatedAt: now}
	d.ObserveAppointments([]appointments.Appointment{appt})

	appt.ScheduledFor = now.Add(72 * time.Hour)
	d.ObserveAppointments([]appointments.Appointment{appt})
	d.ObserveAppointments([]appointments.Appointment{appt})

	var rescheduled int
	for _, e := range feed.List() {
		if e.Title == "Appointment rescheduled" {
			rescheduled++
		}
	}
	if rescheduled != 1 {
		t.Errorf("rescheduled events = %d, want 1", rescheduled)
	}
}

func TestClearAllSuppressesUntilNewState(t *testing.T) {
	d, feed := newTestDedup(t, time.Hour)

	d.ObserveQueue(entryAt("clinic-1", 2))
	d.ClearAll()
	if got := len(feed.List()); got != 0 {
		t.Fatalf("feed after clear = %d events", got)
	}

	// The disappearance after a clear stays silent.
	d.ObserveQueue(nil)
	if got := len(feed.List()); got != 0 {
		t.Errorf("left event emitted after clear")
	}

	// A genuinely new position resets suppression.
	d.ObserveQueue(entryAt("clinic-1", 1))
	events := feed.List()
	if len(events) != 1 {
		t.Fatalf("events after new join = %d, want 1", len(events))
	}
}

func TestClinicNamerFallsBackToID(t *testing.T) {
	feed := NewFeed()
	scheduler := NewScheduler(time.Hour, nil)
	t.Cleanup(scheduler.Stop)
	namer := func(clinicID string) string {
		if clinicID == "clinic-1" {
			return "Soweto Community Clinic"
		}
		return ""
	}
	d := NewDedup(feed, scheduler, nil, namer, 5*time.Second, nil, nil)

	d.ObserveQueue(entryAt("clinic-1", 1))
	d.ObserveQueue(nil)
	d.ObserveQueue(&queue.Entry{ID: "e2", ClinicID: "clinic-x", Position: 1})

	events := feed.List()
	if events[2].Queue.ClinicName != "Soweto Community Clinic" {
		t.Errorf("named clinic = %q", events[2].Queue.ClinicName)
	}
	if events[0].Queue.ClinicName != "clinic-x" {
		t.Errorf("unnamed clinic = %q, want raw id", events[0].Queue.ClinicName)
	}
}
