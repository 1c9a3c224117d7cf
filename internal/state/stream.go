package state

import (
	gosync "sync"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/notify"
	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/queue"
)

// StreamUpdate is one push frame to a connected client: either the new queue
// view or the new notification feed.
type StreamUpdate struct {
	Kind          string         `json:"kind"` // "queue" or "notifications"
	InQueue       bool           `json:"inQueue,omitempty"`
	Entry         *queue.Entry   `json:"entry,omitempty"`
	Notifications []notify.Event `json:"notifications,omitempty"`
	UnreadCount   int            `json:"unreadCount"`
}

// broadcaster fans session updates out to any number of attached streams.
// Slow consumers drop frames rather than block the push path; every frame is
// a full snapshot, so a dropped frame is superseded by the next one.
type broadcaster struct {
	mu        gosync.Mutex
	listeners map[int]chan StreamUpdate
	nextID    int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]chan StreamUpdate)}
}

func (b *broadcaster) attach() (<-chan StreamUpdate, func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	ch := make(chan StreamUpdate, 16)
	b.listeners[id] = ch
	b.mu.Unlock()

	detach := func() {
		b.mu.Lock()
		if existing, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, detach
}

func (b *broadcaster) send(update StreamUpdate) {
	b.mu.Lock()
	for _, ch := range b.listeners {
		select {
		case ch <- update:
		default:
		}
	}
	b.mu.Unlock()
}

// Stream attaches a listener to the session's push channel. The returned
// cancel func detaches it; the channel is closed on detach.
func (s *Session) Stream() (<-chan StreamUpdate, func()) {
	return s.stream.attach()
}
