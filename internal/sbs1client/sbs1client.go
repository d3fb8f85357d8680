// Package sbs1client is the reconnecting TCP client that feeds SBS1
// ("dump1090"-style BaseStation) lines into the hub. Grounded on
// input_network_sbs1.py's connect_loop, redesigned per spec §4.5 so
// a peer-close re-enters the reconnect loop rather than terminating
// the process — the original's connection_lost stops the whole event
// loop, which spec's "on peer-close, re-enter the reconnect loop"
// explicitly supersedes.
package sbs1client

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
	"github.com/flightbox/flightbox/internal/wire/sbs1"
)

// ReconnectDelay is the back-off between failed/lost connections.
const ReconnectDelay = 5 * time.Second

// Client connects to an SBS1 feed and submits line-framed messages to
// the hub under content type "sbs1". Per spec §4.5, "the SBS1 client
// accepts only configured message types" — the filter is applied here,
// at ingestion, rather than downstream at parse time.
type Client struct {
	addr         string
	allowedTypes map[string]struct{}
	h            *hub.Hub
	log          logging.Logger

	dial func(network, address string) (net.Conn, error)
}

// New returns a client dialing addr (host:port), defaulting to
// 127.0.0.1:30003 when addr is empty, and accepting only the message
// types in allowedTypes (nil accepts sbs1.DefaultTypes, i.e. {1,2,3,4}).
func New(addr string, allowedTypes map[string]struct{}, h *hub.Hub, log logging.Logger) *Client {
	if addr == "" {
		addr = "127.0.0.1:30003"
	}
	if allowedTypes == nil {
		allowedTypes = sbs1.DefaultTypes
	}
	return &Client{addr: addr, allowedTypes: allowedTypes, h: h, log: log.With("Sbs1Client"), dial: net.Dial}
}

// Run connects, reads lines until error/EOF, and repeats with
// ReconnectDelay between attempts, until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := c.dial("tcp", c.addr)
		if err != nil {
			c.log.Warn("connection failed, retrying", "addr", c.addr, "err", err.Error(), "retry", logging.Since(time.Now().Add(ReconnectDelay)))
			if !sleepOrDone(ctx, ReconnectDelay) {
				return
			}
			continue
		}

		c.log.Info("connected", "addr", c.addr)
		c.readLines(ctx, conn)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
		}
		if !sleepOrDone(ctx, ReconnectDelay) {
			return
		}
	}
}

func (c *Client) readLines(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !c.acceptedType(line) {
			continue
		}
		c.h.Submit(hub.Message{Type: hub.ContentSBS1, Payload: line})
	}
	c.log.Info("connection closed, reconnecting", "addr", c.addr)

	select {
	case <-done:
	default:
	}
}

// acceptedType reports whether line's msg_type field (CSV field index
// 1) is in the client's allowed set. A line too short to carry a
// msg_type field is passed through unfiltered and left for the parser
// to reject.
func (c *Client) acceptedType(line string) bool {
	fields := strings.SplitN(line, ",", 3)
	if len(fields) < 2 {
		return true
	}
	_, ok := c.allowedTypes[fields[1]]
	return ok
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
