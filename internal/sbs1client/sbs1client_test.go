package sbs1client

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/flightbox/flightbox/internal/hub"
	"github.com/flightbox/flightbox/internal/logging"
)

func TestClientSubmitsLinesFromServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("MSG,3,1,1,ABC123,1,d,t,d,t,,1000,,,50.0,8.0,,,,,\n"))
		time.Sleep(50 * time.Millisecond)
	}()

	h := hub.New(8)
	sub := h.Subscribe(hub.ContentSBS1)
	go h.Run()

	c := New(ln.Addr().String(), nil, h, logging.New(&bytes.Buffer{}, false))
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go c.Run(ctx)

	select {
	case msg := <-sub:
		if msg.Type != hub.ContentSBS1 {
			t.Errorf("type = %v, want sbs1", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for submitted message")
	}
}

func TestDefaultAddrWhenEmpty(t *testing.T) {
	h := hub.New(1)
	c := New("", nil, h, logging.New(&bytes.Buffer{}, false))
	if c.addr != "127.0.0.1:30003" {
		t.Errorf("addr = %q, want default", c.addr)
	}
}
