package notify

import (
	"sync"
)

// ChangeFunc is pushed the full feed and derived unread count after every
// mutation. The unread count is the only value the navigation surface needs.
type ChangeFunc func(events []Event, unread int)

// Feed is the client-local notification list. It has a single writer (the
// owning session); the mutex only guards against the UI reading concurrently.
type Feed struct {
	mu       sync.Mutex
	events   []Event
	onChange ChangeFunc
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// OnChange registers the single change subscriber.
func (f *Feed) OnChange(fn ChangeFunc) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

// Add prepends an event, newest first.
func (f *Feed) Add(e Event) {
	f.mu.Lock()
	f.events = append([]Event{e}, f.events...)
	f.notifyLocked()
	f.mu.Unlock()
}

// List returns a copy of the feed, newest first.
func (f *Feed) List() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyLocked()
}

// UnreadCount recounts the unread events.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return unread(f.events)
}

// MarkRead flags one event as read. Unknown ids are ignored.
func (f *Feed) MarkRead(id string) {
	f.mu.Lock()
	for i := range f.events {
		if f.events[i].ID == id {
			if !f.events[i].Read {
				f.events[i].Read = true
				f.notifyLocked()
			}
			break
		}
	}
	f.mu.Unlock()
}

// MarkAllRead flags every event as read.
func (f *Feed) MarkAllRead() {
	f.mu.Lock()
	changed := false
	for i := range f.events {
		if !f.events[i].Read {
			f.events[i].Read = true
			changed = true
		}
	}
	if changed {
		f.notifyLocked()
	}
	f.mu.Unlock()
}

// Delete removes one event. Unknown ids are ignored.
func (f *Feed) Delete(id string) {
	f.mu.Lock()
	for i := range f.events {
		if f.events[i].ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			f.notifyLocked()
			break
		}
	}
	f.mu.Unlock()
}

// Clear empties the feed.
func (f *Feed) Clear() {
	f.mu.Lock()
	if len(f.events) > 0 {
		f.events = nil
		f.notifyLocked()
	}
	f.mu.Unlock()
}

func (f *Feed) copyLocked() []Event {
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *Feed) notifyLocked() {
	if f.onChange == nil {
		return
	}
	f.onChange(f.copyLocked(), unread(f.events))
}

func unread(events []Event) int {
	n := 0
	for _, e := range events {
		if !e.Read {
			n++
		}
	}
	return n
}
