package notify

import "sync"

// EventType tags the payload of a stream Event.
type EventType string

const (
	EventNotification EventType = "notification"
	EventNavigation   EventType = "navigation"
	EventState        EventType = "state"
)

// Event is one item flowing to the browser.
type Event struct {
	Type         EventType     `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
	Navigation   *Navigation   `json:"navigation,omitempty"`
	State        any           `json:"state,omitempty"`
}

// Stream is a non-blocking Notifier and Navigator. Notifications and
// navigations are always delivered in order; when the reader falls behind they
// wait in an overflow queue drained by a helper goroutine. State snapshots
// only matter as the latest value, so a queued snapshot is replaced by a newer
// one and counted as dropped.
type Stream struct {
	mu       sync.Mutex
	ch       chan Event
	pending  []Event
	flushing bool
	closed   bool
	dropped  int
}

// NewStream creates a Stream with the given buffer size.
func NewStream(size int) *Stream {
	return &Stream{ch: make(chan Event, size)}
}

// Events returns the receive side. It is closed by Close once every queued
// event has been handed over.
func (s *Stream) Events() <-chan Event { return s.ch }

// Publish enqueues e without blocking.
func (s *Stream) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !s.flushing {
		select {
		case s.ch <- e:
			return
		default:
		}
	}
	if e.Type == EventState {
		if n := len(s.pending); n > 0 && s.pending[n-1].Type == EventState {
			s.pending[n-1] = e
			s.dropped++
			return
		}
	}
	s.pending = append(s.pending, e)
	if !s.flushing {
		s.flushing = true
		go s.flush()
	}
}

// flush hands the overflow queue to the reader, blocking on each send.
func (s *Stream) flush() {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.flushing = false
			if s.closed {
				close(s.ch)
			}
			s.mu.Unlock()
			return
		}
		e := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.ch <- e
	}
}

// Dropped returns how many state snapshots were superseded before delivery.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting events. The channel is closed after the overflow
// queue drains, so the reader must keep receiving until then.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if !s.flushing {
		close(s.ch)
	}
}

func (s *Stream) Notify(n Notification) {
	s.Publish(Event{Type: EventNotification, Notification: &n})
}

func (s *Stream) Replace(path string) {
	s.Publish(Event{Type: EventNavigation, Navigation: &Navigation{Kind: NavigateReplace, Path: path}})
}

func (s *Stream) Push(path string) {
	s.Publish(Event{Type: EventNavigation, Navigation: &Navigation{Kind: NavigatePush, Path: path}})
}

func (s *Stream) Back() {
	s.Publish(Event{Type: EventNavigation, Navigation: &Navigation{Kind: NavigateBack}})
}
