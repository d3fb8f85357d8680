// Package ognserver emulates an APRS-IS server on port 14580 that a
// local OGN RF decoder connects to. Grounded on
// input_network_ogn_server.py's OgnAprsServerClientProtocol and
// ogn_aprs_heartbeat, with the client registry recast as a
// mutex-guarded map following the k3it-stratux TCP-server idiom
// (k3it-stratux/main/flarm-nmea.go's handleMessages client map).
package ognserver

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

// HeartbeatInterval matches the original's 20 s broadcast cadence.
const HeartbeatInterval = 20 * time.Second

var loginPattern = regexp.MustCompile(`^user (\S+) pass (\S+) vers (.+)$`)

// Server listens for APRS-IS connections and submits OGN beacon lines
// to the hub.
type Server struct {
	addr           string
	serverName     string
	serverSoftware string
	h              *hub.Hub
	log            logging.Logger

	mu      sync.Mutex
	clients map[net.Conn]struct{}
}

// New returns a server bound to addr (e.g. ":14580").
func New(addr, serverName, serverSoftware string, h *hub.Hub, log logging.Logger) *Server {
	return &Server{
		addr:           addr,
		serverName:     serverName,
		serverSoftware: serverSoftware,
		h:              h,
		log:            log.With("OgnServer"),
		clients:        make(map[net.Conn]struct{}),
	}
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Run listens and serves until ctx is cancelled, running the
// heartbeat broadcaster alongside the accept loop.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("ognserver: listen %s: %w", s.addr, err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go s.heartbeatLoop(ctx)

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Warn("accept failed", "err", err.Error())
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) addClient(c net.Conn) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(c net.Conn) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	s.log.Info("new connection", "remote", conn.RemoteAddr().String())

	s.addClient(conn)
	defer func() {
		s.removeClient(conn)
		s.log.Info("connection closed", "remote", conn.RemoteAddr().String())
	}()

	fmt.Fprintf(conn, "# %s\r\n", s.serverSoftware)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := loginPattern.FindStringSubmatch(line); m != nil {
			userName := m[1]
			fmt.Fprintf(conn, "# logresp %s verified, server %s\r\n", userName, s.serverName)
			continue
		}

		if strings.ToLower(line) == "exit" {
			return
		}

		s.h.Submit(hub.Message{Type: hub.ContentOGN, Payload: line})
	}
}

func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.broadcastHeartbeat(t)
		}
	}
}

func (s *Server) broadcastHeartbeat(t time.Time) {
	msg := fmt.Sprintf("# %s %s %s 127.0.0.1:14580\r\n",
		s.serverSoftware, t.UTC().Format("02 Jan 2006 15:04:05 GMT"), s.serverName)

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Write([]byte(msg))
	}
}
