// Package hub implements the typed pub/sub dispatch hub that sits
// between producers (SBS1 client, OGN server, GNSS reader, fusion
// output) and subscribers (fusion input, AirConnect output). Grounded
// on data_hub_worker.py's DataHubWorker: a single input queue, a list
// of subscriber queues each tagged with accepted content types, and a
// nil "poison pill" that propagates to every subscriber on shutdown.
package hub

import (
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ContentType tags a Message's payload kind.
type ContentType string

const (
	ContentSBS1  ContentType = "sbs1"
	ContentOGN   ContentType = "ogn"
	ContentNMEA  ContentType = "nmea"
	ContentFLARM ContentType = "flarm"
	ContentTest  ContentType = "test"

	// Any is the wildcard accepted-type marker matching every message,
	// spelled "ANY" in the original module's content_types lists.
	Any ContentType = "ANY"
)

// Message is a (content_type, payload) pair. Immutable once submitted.
type Message struct {
	Type    ContentType
	Payload string
}

// sentinel is delivered to every subscriber sink to mark end-of-stream;
// consumers range over the channel so a closed channel already conveys
// this, but an explicit zero-value message type keeps the shutdown
// semantics readable where callers check for it directly.
const sentinelType ContentType = ""

// IsSentinel reports whether m is the terminal end-of-stream marker.
func (m Message) IsSentinel() bool { return m.Type == sentinelType }

var Sentinel = Message{}

// subscription is a registered sink and the content types it accepts.
type subscription struct {
	types map[ContentType]struct{}
	sink  chan Message
}

func (s *subscription) accepts(t ContentType) bool {
	if _, ok := s.types[Any]; ok {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Hub owns the input queue and the subscriber list. Subscriptions must
// be registered before Run starts delivering, matching spec's
// "Subscriptions are registered before producers begin emitting".
type Hub struct {
	input chan Message

	mu   sync.Mutex
	subs []*subscription
}

// New returns a Hub whose input queue buffers up to bufferSize
// messages (0 makes every Submit wait for Run to take the message).
// The queue is bounded: it does not grow beyond bufferSize.
func New(bufferSize int) *Hub {
	return &Hub{input: make(chan Message, bufferSize)}
}

// Subscribe registers a new sink accepting the given content types (or
// Any) and returns the channel subscribers should range over. Must be
// called before Run.
func (h *Hub) Subscribe(types ...ContentType) <-chan Message {
	set := make(map[ContentType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	sink := make(chan Message, 256)
	h.mu.Lock()
	h.subs = append(h.subs, &subscription{types: set, sink: sink})
	h.mu.Unlock()
	return sink
}

// ContentTypes returns the sorted, deduplicated set of content types
// any current subscriber accepts — useful for a single startup log
// line confirming the wiring before producers begin emitting.
func (h *Hub) ContentTypes() []ContentType {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := make(map[ContentType]struct{})
	for _, s := range h.subs {
		for t := range s.types {
			set[t] = struct{}{}
		}
	}
	types := maps.Keys(set)
	slices.Sort(types)
	return types
}

// Submit hands msg to the hub's input queue. It does not wait for
// subscriber delivery, but it blocks while the input queue is full
// (which happens when Run itself is blocked on a full subscriber
// sink). Ordering is preserved per-caller since Go channel sends from
// a single goroutine are already FIFO.
func (h *Hub) Submit(msg Message) {
	h.input <- msg
}

// Shutdown enqueues the terminal sentinel, causing Run to forward it
// to every subscriber and return.
func (h *Hub) Shutdown() {
	h.input <- Sentinel
}

// Run drains the input queue, fanning each message out to every
// subscription that accepts its content type, until the sentinel is
// received — at which point it forwards the sentinel to every
// subscriber sink, closes them, and returns.
func (h *Hub) Run() {
	for msg := range h.input {
		if msg.IsSentinel() {
			break
		}
		h.mu.Lock()
		for _, s := range h.subs {
			if s.accepts(msg.Type) {
				s.sink <- msg
			}
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subs {
		s.sink <- Sentinel
		close(s.sink)
	}
}
