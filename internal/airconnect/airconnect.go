// Package airconnect serves FLARM/NMEA sentences to nearby navigation
// clients (e.g. tablet apps) over a plain TCP socket. Grounded on
// output_network_airconnect.py's AirConnectServerClientProtocol, using
// the same net.Listener/client-map idiom as internal/ognserver.
package airconnect

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

// client tracks one connected session's send-enabled state alongside
// its connection, mirroring the original's per-protocol-instance
// _send_data_enabled/_awaiting_pass flags.
type client struct {
	conn         net.Conn
	sendEnabled  bool
	awaitingPass bool
}

// Server is the AirConnect output task: it accepts client connections
// on addr and broadcasts every message delivered on its hub
// subscription to all sessions with sending enabled.
type Server struct {
	addr     string
	password string
	log      logging.Logger

	mu      sync.Mutex
	clients map[net.Conn]*client
}

// New returns a Server listening on addr. An empty password disables
// the password gate, matching the original's password=None default.
func New(addr, password string, log logging.Logger) *Server {
	if addr == "" {
		addr = ":2000"
	}
	return &Server{
		addr:     addr,
		password: password,
		log:      log.With("AirConnectOutput"),
		clients:  make(map[net.Conn]*client),
	}
}

// ClientCount reports the number of currently connected sessions.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run accepts connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("airconnect: listen %s: %w", s.addr, err)
	}
	s.log.Info("listening", "addr", s.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Warn("accept failed", "err", err.Error())
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// RunOutput drains sub (subscribed to {nmea, flarm}) and broadcasts
// every payload to the client set, until the hub closes the channel.
func (s *Server) RunOutput(ctx context.Context, sub <-chan hub.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub:
			if !ok || msg.IsSentinel() {
				return
			}
			s.broadcast(msg.Payload + "\r\n")
		}
	}
}

func (s *Server) handleConn(conn net.Conn) {
	c := &client{conn: conn, sendEnabled: true}
	if s.password != "" {
		c.sendEnabled = false
		c.awaitingPass = true
		conn.Write([]byte("PASS?"))
	}

	s.addClient(c)
	s.log.Info("new connection", "remote", conn.RemoteAddr().String())
	defer func() {
		s.removeClient(c)
		conn.Close()
		s.log.Info("connection closed", "remote", conn.RemoteAddr().String())
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()

		if c.awaitingPass {
			if strings.TrimSpace(line) == s.password {
				c.awaitingPass = false
				c.sendEnabled = true
				continue
			}
			return
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit":
			return
		case "list_clients":
			conn.Write([]byte(s.listClients() + "\r\n"))
		default:
			conn.Write([]byte(line + "\r\n"))
		}
	}
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.conn] = c
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.conn)
}

// listClients renders the connected client set as a bracketed,
// space-joined list of remote addresses, matching the original's
// str(self._clients) rendering of the protocol-instance set.
func (s *Server) listClients() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b bytes.Buffer
	b.WriteByte('[')
	first := true
	for conn := range s.clients {
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(conn.RemoteAddr().String())
	}
	b.WriteByte(']')
	return b.String()
}

func (s *Server) broadcast(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if !c.sendEnabled {
			continue
		}
		c.conn.Write([]byte(payload))
	}
}
