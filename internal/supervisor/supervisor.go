// Package supervisor starts FlightBox's tasks in dependency order and
// brings them down together on shutdown. Grounded on flightbox.py's
// flightbox_main: hub first, then output/transformation subscribers,
// then input producers, each group started after the previous one has
// had a chance to settle.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

// SettleDelay is the pause between starting each task group, matching
// the original's time.sleep(1) calls between process starts. It is
// not required for correctness — the hub accepts submissions before
// any producer exists — but it mirrors the original's startup order.
const SettleDelay = 1 * time.Second

// Task is a long-running unit of work that returns when ctx is
// cancelled.
type Task func(ctx context.Context)

// Supervisor owns the hub and the full set of dependent tasks, and
// coordinates their startup and shutdown order.
type Supervisor struct {
	hub *hub.Hub
	log logging.Logger

	subscribers []Task
	producers   []Task
}

// New returns a Supervisor around an already-constructed hub.
func New(h *hub.Hub, log logging.Logger) *Supervisor {
	return &Supervisor{hub: h, log: log.With("Supervisor")}
}

// AddSubscriber registers a task that consumes from the hub (fusion,
// AirConnect output) — started after the hub, before any producer.
func (s *Supervisor) AddSubscriber(t Task) {
	s.subscribers = append(s.subscribers, t)
}

// AddProducer registers a task that submits to the hub (SBS1 client,
// OGN server, GNSS reader) — started last, once every subscriber is
// ready to receive.
func (s *Supervisor) AddProducer(t Task) {
	s.producers = append(s.producers, t)
}

// Run starts the hub, then subscribers, then producers, waiting
// SettleDelay between each group, and blocks until ctx is cancelled —
// at which point it requests hub shutdown and joins every task before
// returning.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.hub.Run()
	}()
	s.log.Info("hub started", "accepts", s.hub.ContentTypes())
	sleepOrDone(ctx, SettleDelay)

	for _, t := range s.subscribers {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			t(ctx)
		}(t)
	}
	s.log.Info("subscribers started", "count", len(s.subscribers))
	sleepOrDone(ctx, SettleDelay)

	for _, t := range s.producers {
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			t(ctx)
		}(t)
	}
	s.log.Info("producers started", "count", len(s.producers))

	<-ctx.Done()
	s.log.Info("shutdown requested")
	s.hub.Shutdown()

	wg.Wait()
	s.log.Info("all tasks terminated")
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
