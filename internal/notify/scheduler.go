package notify

import (
	"sync"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// Scheduler runs delayed reminder callbacks keyed by appointment id. Each id
// fires at most once; cancelling before the delay elapses drops the reminder,
// so a cancelled appointment never produces a stale one.
type Scheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fired  map[string]bool
	logger *logging.Logger
}

// NewScheduler creates a reminder scheduler with the given delay.
func NewScheduler(delay time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		fired:  make(map[string]bool),
		logger: logger,
	}
}

// Schedule arms a reminder for the id. Ids that are already pending or have
// already fired are ignored.
func (s *Scheduler) Schedule(id string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired[id] {
		return
	}
	if _, pending := s.timers[id]; pending {
		return
	}
	s.timers[id] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		if s.fired[id] {
			s.mu.Unlock()
			return
		}
		s.fired[id] = true
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops a pending reminder. Fired or unknown ids are ignored.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	timer, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	s.mu.Unlock()
	if ok {
		timer.Stop()
	}
}

// Stop cancels every pending reminder.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	timers := make([]*time.Timer, 0, len(s.timers))
	for id, timer := range s.timers {
		timers = append(timers, timer)
		delete(s.timers, id)
	}
	s.mu.Unlock()
	for _, timer := range timers {
		timer.Stop()
	}
}
