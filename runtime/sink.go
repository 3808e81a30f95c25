package runtime

import "sync"

// Sink is one connection's outbound queue: unbounded, ordered, with a
// single consumer (the connection's writer goroutine). The room and any
// broadcaster only ever hold the producer side through contract.FrameSink.
type Sink struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []string
	closed bool
}

func NewSink() *Sink {
	s := &Sink{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Consume enqueues one encoded frame for delivery.
// Enqueue order is delivery order. Returns false once the sink is closed;
// the caller treats that as best-effort loss, never as an error.
func (s *Sink) Consume(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.queue = append(s.queue, line)
	s.cond.Signal()
	return true
}

// Next blocks until a frame is available or the sink is closed and drained.
// The second return value is false only when no frame will ever follow.
func (s *Sink) Next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}
	if len(s.queue) == 0 {
		return "", false
	}
	line := s.queue[0]
	s.queue = s.queue[1:]
	return line, true
}

// Close stops accepting frames and wakes the consumer.
// Frames already queued remain readable so that a final notice
// (NameTaken, Unauthenticated) still reaches the peer. Idempotent.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.cond.Broadcast()
}
