package seed

import (
	"log/slog"
	"sync"
)

type EventType string

const (
	EventStart    EventType = "start"
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
	EventAllDone  EventType = "allDone"
)

// Event is a transient progress message. Pct is only set on progress events.
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Pct     *int      `json:"pct,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Sink receives progress events. Delivery is best-effort: a sink must not
// block the pipeline forever and never reports failures back to it.
type Sink interface {
	Send(ev Event)
}

type SinkFunc func(ev Event)

func (f SinkFunc) Send(ev Event) { f(ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type multiSink []Sink

func (m multiSink) Send(ev Event) {
	for _, s := range m {
		s.Send(ev)
	}
}

// Multi fans every event out to all sinks in order.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// ChanSink delivers events over a bounded channel to a single consumer.
// The producer closes the channel after allDone. A consumer that goes away
// calls Detach; later events are dropped instead of blocking the batch.
type ChanSink struct {
	events chan Event
	gone   chan struct{}
	once   sync.Once
}

func NewChanSink(buffer int) *ChanSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChanSink{
		events: make(chan Event, buffer),
		gone:   make(chan struct{}),
	}
}

func (s *ChanSink) Send(ev Event) {
	select {
	case <-s.gone:
		return
	default:
	}
	select {
	case s.events <- ev:
	case <-s.gone:
		slog.Debug("progress consumer detached, dropping event", "type", ev.Type, "source_id", ev.ID)
	}
}

func (s *ChanSink) Events() <-chan Event {
	return s.events
}

func (s *ChanSink) Detach() {
	s.once.Do(func() { close(s.gone) })
}

func (s *ChanSink) close() {
	close(s.events)
}
