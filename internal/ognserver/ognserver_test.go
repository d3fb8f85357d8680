package ognserver

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

func startServer(t *testing.T) (*Server, *hub.Hub, <-chan hub.Message, func()) {
	t.Helper()
	h := hub.New(8)
	sub := h.Subscribe(hub.ContentOGN)
	go h.Run()

	s := New("127.0.0.1:0", "FLIGHTBOX", "flightbox 1.0", h, logging.New(&bytes.Buffer{}, false))
	ctx, cancel := context.WithCancel(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s.addr = ln.Addr().String()
	ln.Close()

	go s.Run(ctx)
	time.Sleep(30 * time.Millisecond)

	return s, h, sub, cancel
}

func TestLoginHandshake(t *testing.T) {
	s, _, _, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	greeting, _ := reader.ReadString('\n')
	if !strings.HasPrefix(greeting, "# flightbox 1.0") {
		t.Errorf("unexpected greeting: %q", greeting)
	}

	conn.Write([]byte("user N0CALL pass -1 vers test 1\r\n"))
	resp, _ := reader.ReadString('\n')
	if !strings.Contains(resp, "logresp N0CALL verified, server FLIGHTBOX") {
		t.Errorf("unexpected login response: %q", resp)
	}
}

func TestBeaconLineForwardedToHub(t *testing.T) {
	s, _, sub, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	bufio.NewReader(conn).ReadString('\n') // discard greeting
	conn.Write([]byte("ICA3D1B5A>APRS,qAR:/133959h0107.07N/00146.75W'259/067/A=003083\r\n"))

	select {
	case msg := <-sub:
		if msg.Type != hub.ContentOGN {
			t.Errorf("type = %v, want ogn", msg.Type)
		}
		if !strings.HasPrefix(msg.Payload, "ICA3D1B5A>APRS") {
			t.Errorf("payload = %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("beacon line not forwarded to hub")
	}
}

func TestExitClosesConnection(t *testing.T) {
	s, _, _, cancel := startServer(t)
	defer cancel()

	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	bufio.NewReader(conn).ReadString('\n') // discard greeting
	conn.Write([]byte("exit\r\n"))

	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	if err == nil {
		t.Error("expected connection to be closed after exit")
	}
}

func TestClientCountTracksConnections(t *testing.T) {
	s, _, _, cancel := startServer(t)
	defer cancel()

	if s.ClientCount() != 0 {
		t.Fatalf("expected 0 clients initially, got %d", s.ClientCount())
	}

	conn, err := net.Dial("tcp", s.addr)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if s.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", s.ClientCount())
	}
	conn.Close()
}
