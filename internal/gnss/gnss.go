// Package gnss reads line-framed NMEA sentences off a serial GNSS
// receiver and submits them to the hub. Grounded on
// input_serial_gnss.py's read loop, using tarm/serial for the port
// open/read the teacher already depends on.
package gnss

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

// ReconnectDelay matches the original's 5 s wait before (re)attaching
// to the serial port.
const ReconnectDelay = 5 * time.Second

// OpenFunc abstracts serial.OpenPort so tests can substitute a fake
// reader without a real device attached.
type OpenFunc func(c *serial.Config) (readCloser, error)

type readCloser interface {
	Read(p []byte) (int, error)
	Close() error
}

func defaultOpen(c *serial.Config) (readCloser, error) { return serial.OpenPort(c) }

// Reader owns one serial device and republishes lines as "nmea"
// content items.
type Reader struct {
	device string
	baud   int
	h      *hub.Hub
	log    logging.Logger
	open   OpenFunc

	// delay is the wait before each (re)attach attempt; defaults to
	// ReconnectDelay and is only overridden in tests.
	delay time.Duration
}

// New returns a reader for device at the given baud rate.
func New(device string, baud int, h *hub.Hub, log logging.Logger) *Reader {
	return &Reader{device: device, baud: baud, h: h, log: log.With("GnssSerial"), open: defaultOpen, delay: ReconnectDelay}
}

// Run attaches to the serial device, reads lines until a read error,
// then closes the port, waits ReconnectDelay, and re-attempts —
// looping until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !sleepOrDone(ctx, r.delay) {
			return
		}

		port, err := r.open(&serial.Config{Name: r.device, Baud: r.baud})
		if err != nil {
			r.log.Warn("could not attach to serial port", "device", r.device, "baud", r.baud, "err", err.Error())
			continue
		}

		r.readLines(ctx, port)
		port.Close()
	}
}

func (r *Reader) readLines(ctx context.Context, port readCloser) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		port.Close()
		close(done)
	}()

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.log.Debug("data received", "line", line)
		r.h.Submit(hub.Message{Type: hub.ContentNMEA, Payload: line})
	}

	select {
	case <-done:
	default:
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
