package notify

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerFiresAfterDelay(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, nil)
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("appt-1", func() { fired.Add(1) })

	waitFor(t, func() bool { return fired.Load() == 1 })
}

func TestSchedulerCancelDropsReminder(t *testing.T) {
	s := NewScheduler(20*time.Millisecond, nil)
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("appt-1", func() { fired.Add(1) })
	s.Cancel("appt-1")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("cancelled reminder fired")
	}
}

func TestSchedulerIgnoresDuplicateAndFiredIDs(t *testing.T) {
	s := NewScheduler(10*time.Millisecond, nil)
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("appt-1", func() { fired.Add(1) })
	s.Schedule("appt-1", func() { fired.Add(1) }) // pending, ignored

	waitFor(t, func() bool { return fired.Load() == 1 })

	s.Schedule("appt-1", func() { fired.Add(1) }) // already fired, ignored
	time.Sleep(40 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestSchedulerStopCancelsEverything(t *testing.T) {
	s := NewScheduler(20*time.Millisecond, nil)

	var fired atomic.Int32
	s.Schedule("a", func() { fired.Add(1) })
	s.Schedule("b", func() { fired.Add(1) })
	s.Stop()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("reminders fired after stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
