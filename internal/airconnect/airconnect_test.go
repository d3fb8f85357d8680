package airconnect

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

func startServer(t *testing.T, password string) (*Server, string, context.CancelFunc) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := New(addr, password, logging.New(&bytes.Buffer{}, false))
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	time.Sleep(30 * time.Millisecond)
	return s, addr, cancel
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	s, addr, cancel := startServer(t, "")
	defer cancel()

	h := hub.New(8)
	sub := h.Subscribe(hub.ContentFLARM, hub.ContentNMEA)
	go h.Run()
	ctx, cancelOut := context.WithCancel(context.Background())
	defer cancelOut()
	go s.RunOutput(ctx, sub)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	h.Submit(hub.Message{Type: hub.ContentFLARM, Payload: "$PFLAA,0,0,0,1,ABC*00"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "$PFLAA,0,0,0,1,ABC*00\r\n"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestPasswordGateBlocksUntilCorrectPassword(t *testing.T) {
	s, addr, cancel := startServer(t, "secret")
	defer cancel()

	h := hub.New(8)
	sub := h.Subscribe(hub.ContentFLARM)
	go h.Run()
	outCtx, cancelOut := context.WithCancel(context.Background())
	defer cancelOut()
	go s.RunOutput(outCtx, sub)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 5)
	n, err := conn.Read(buf)
	if err != nil || string(buf[:n]) != "PASS?" {
		t.Fatalf("expected PASS? prompt, got %q err=%v", buf[:n], err)
	}

	// Before authentication, a broadcast must not reach this client.
	h.Submit(hub.Message{Type: hub.ContentFLARM, Payload: "$PFLAA,pre-auth*00"})

	conn.Write([]byte("secret\n"))
	time.Sleep(30 * time.Millisecond)

	h.Submit(hub.Message{Type: hub.ContentFLARM, Payload: "$PFLAA,post-auth*00"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read after auth: %v", err)
	}
	want := "$PFLAA,post-auth*00\r\n"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestExitClosesAirConnectSession(t *testing.T) {
	_, addr, cancel := startServer(t, "")
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Write([]byte("exit\n"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8)
	_, err = conn.Read(buf)
	if err == nil {
		t.Error("expected connection to be closed after exit")
	}
}

func TestListClientsReturnsBracketedAddressList(t *testing.T) {
	s, addr, cancel := startServer(t, "")
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	time.Sleep(20 * time.Millisecond)

	if got := s.ClientCount(); got != 1 {
		t.Fatalf("ClientCount = %d, want 1", got)
	}

	conn.Write([]byte("list_clients\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(line) < 2 || line[0] != '[' {
		t.Errorf("expected bracketed client list, got %q", line)
	}
}

func TestEchoOfUnrecognizedInput(t *testing.T) {
	_, addr, cancel := startServer(t, "")
	defer cancel()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	conn.Write([]byte("hello\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "hello\r\n" {
		t.Errorf("got %q, want echoed %q", line, "hello\\r\\n")
	}
}
