// Package state replaces the framework-global provider of the mobile client
// with explicit per-patient session objects: each session owns its live
// subscriptions, its notification dedup state and its local feed, and is torn
// down as a unit.
package state

import (
	"context"
	gosync "sync"
	"time"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/appointments"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/clinic"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/notify"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/observability/metrics"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
	qsync "github.com/Lubabaloboqwana6/clinicconnect-platform/internal/sync"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/pkg/logging"
)

// Session is one patient's live client state: the canonical queue view, the
// notification feed and the subscriptions keeping both current.
type Session struct {
	PatientID string

	watcher *qsync.Watcher
	dedup   *notify.Dedup
	feed    *notify.Feed
	store   store.Client
	stream  *broadcaster
	logger  *logging.Logger

	mu       gosync.Mutex
	current  *queue.Entry
	apptSub  store.Subscription
	apptErr  bool
	closed   bool
}

// Open starts the session's subscriptions. The initial snapshots are
// delivered before Open returns.
func (s *Session) Open(ctx context.Context) {
	s.watcher.WatchPatient(ctx, s.PatientID, func(entry *queue.Entry) {
		s.mu.Lock()
		s.current = entry
		s.mu.Unlock()
		s.dedup.ObserveQueue(entry)
		s.stream.send(StreamUpdate{
			Kind:        "queue",
			InQueue:     entry != nil,
			Entry:       entry,
			UnreadCount: s.feed.UnreadCount(),
		})
	})

	sub, err := s.store.Subscribe(ctx, appointments.Collection, store.Query{
		Filters: []store.Filter{store.Eq(appointments.FieldPatientID, s.PatientID)},
		OrderBy: appointments.FieldScheduledFor,
	}, func(records []store.Record) {
		appts := make([]appointments.Appointment, 0, len(records))
		for _, r := range records {
			appts = append(appts, appointments.FromRecord(r))
		}
		s.dedup.ObserveAppointments(appts)
	})
	if err != nil {
		s.logger.Error("state: appointment subscribe failed", "patient_id", s.PatientID, "error", err)
		s.mu.Lock()
		s.apptErr = true
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.apptSub = sub
	s.apptErr = false
	s.mu.Unlock()
}

// Close cancels the session's subscriptions and pending reminders.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	apptSub := s.apptSub
	s.apptSub = nil
	s.mu.Unlock()

	s.watcher.CancelPatient(s.PatientID)
	if apptSub != nil {
		apptSub.Cancel()
	}
	s.dedup.Close()
}

// CurrentEntry returns the canonical "my queue" state, nil when not queued.
func (s *Session) CurrentEntry() *queue.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	entry := *s.current
	return &entry
}

// ConnErr reports the sticky connection-error flag across the session's
// subscriptions.
func (s *Session) ConnErr() bool {
	s.mu.Lock()
	apptErr := s.apptErr
	s.mu.Unlock()
	return apptErr || s.watcher.ConnErr()
}

// Feed exposes the session's notification feed.
func (s *Session) Feed() *notify.Feed {
	return s.feed
}

// Dedup exposes the session's dedup engine (clear-all goes through it).
func (s *Session) Dedup() *notify.Dedup {
	return s.dedup
}

// Watcher exposes the session's sync watcher for clinic roster screens.
func (s *Session) Watcher() *qsync.Watcher {
	return s.watcher
}

// Manager hands out at most one open session per patient identity.
type Manager struct {
	store         store.Client
	coord         *queue.Coordinator
	directory     *clinic.Directory
	recency       time.Duration
	reminderDelay time.Duration
	metrics       *metrics.QueueMetrics
	logger        *logging.Logger

	mu       gosync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(st store.Client, coord *queue.Coordinator, directory *clinic.Directory, recency, reminderDelay time.Duration, m *metrics.QueueMetrics, logger *logging.Logger) *Manager {
	if st == nil {
		panic("state: store client required")
	}
	if coord == nil {
		panic("state: coordinator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:         st,
		coord:         coord,
		directory:     directory,
		recency:       recency,
		reminderDelay: reminderDelay,
		metrics:       m,
		logger:        logger,
		sessions:      make(map[string]*Session),
	}
}

// Session returns the patient's open session, creating and opening it on
// first use.
func (m *Manager) Session(ctx context.Context, patientID string) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[patientID]; ok {
		m.mu.Unlock()
		return s
	}
	s := m.newSession(patientID)
	m.sessions[patientID] = s
	m.mu.Unlock()

	s.Open(ctx)
	return s
}

// Close tears down one patient's session, if open.
func (m *Manager) Close(patientID string) {
	m.mu.Lock()
	s, ok := m.sessions[patientID]
	if ok {
		delete(m.sessions, patientID)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// CloseAll tears down every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) newSession(patientID string) *Session {
	feed := notify.NewFeed()
	scheduler := notify.NewScheduler(m.reminderDelay, m.logger)
	dedup := notify.NewDedup(feed, scheduler, m.coord.FormatWait, m.clinicNamer(), m.recency, m.metrics, m.logger)
	watcher := qsync.NewWatcher(m.store, m.coord, m.logger, m.metrics)

	s := &Session{
		PatientID: patientID,
		watcher:   watcher,
		dedup:     dedup,
		feed:      feed,
		store:     m.store,
		stream:    newBroadcaster(),
		logger:    m.logger,
	}
	feed.OnChange(func(events []notify.Event, unreadCount int) {
		s.stream.send(StreamUpdate{
			Kind:          "notifications",
			Notifications: events,
			UnreadCount:   unreadCount,
		})
	})
	dedup.OnQueueEmit(func(entryID string) {
		s.mu.Lock()
		count := 1
		if s.current != nil && s.current.ID == entryID {
			count = s.current.NotificationCount + 1
		}
		s.mu.Unlock()
		if err := m.coord.RecordNotified(context.Background(), entryID, count); err != nil {
			m.logger.Warn("state: record notified failed", "entry_id", entryID, "error", err)
		}
	})
	return s
}

func (m *Manager) clinicNamer() func(string) string {
	if m.directory == nil {
		return nil
	}
	return func(clinicID string) string {
		c, err := m.directory.Get(context.Background(), clinicID)
		if err != nil {
			return ""
		}
		return c.Name
	}
}
