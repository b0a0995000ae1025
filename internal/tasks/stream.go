package tasks

import "sync"

// subscriber buffers events for one StreamEvents caller. The producer side
// (appendEventLocked) only appends to the slice and signals, so publishing
// never blocks on a slow consumer; the buffer grows instead of dropping.
type subscriber struct {
	mu   sync.Mutex
	buf  []Event
	wake chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{wake: make(chan struct{}, 1)}
}

func (s *subscriber) push(evt Event) {
	s.mu.Lock()
	s.buf = append(s.buf, evt)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) next(done <-chan struct{}) (Event, bool) {
	for {
		s.mu.Lock()
		if len(s.buf) > 0 {
			evt := s.buf[0]
			s.buf = append([]Event(nil), s.buf[1:]...)
			s.mu.Unlock()
			return evt, true
		}
		s.mu.Unlock()

		select {
		case <-done:
			return Event{}, false
		case <-s.wake:
		}
	}
}

// StreamEvents returns an infinite feed for a task: the full history first,
// then every subsequently appended event, in append order with no gaps or
// duplicates. The returned cancel func detaches the subscriber; for an
// unknown id the channel is already closed.
func (m *Manager) StreamEvents(id string) (<-chan Event, func()) {
	out := make(chan Event)

	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		close(out)
		return out, func() {}
	}
	// History snapshot and subscriber registration happen under the same
	// critical section so the replay-then-live handoff cannot race an append.
	history := make([]Event, len(task.Events))
	copy(history, task.Events)
	sub := newSubscriber()
	m.nextSubID++
	subID := m.nextSubID
	if _, ok := m.subscribers[id]; !ok {
		m.subscribers[id] = make(map[int]*subscriber)
	}
	m.subscribers[id][subID] = sub
	if m.metrics != nil {
		m.metrics.StreamSubscribers.Inc()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(out)
		for _, evt := range history {
			select {
			case out <- evt:
			case <-done:
				return
			}
		}
		for {
			evt, ok := sub.next(done)
			if !ok {
				return
			}
			select {
			case out <- evt:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			m.mu.Lock()
			subs := m.subscribers[id]
			delete(subs, subID)
			if len(subs) == 0 {
				delete(m.subscribers, id)
			}
			if m.metrics != nil {
				m.metrics.StreamSubscribers.Dec()
			}
			m.mu.Unlock()
		})
	}
	return out, cancel
}
