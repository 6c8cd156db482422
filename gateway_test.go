package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tor1kk/sim800/gsm"
)

type staticDialer struct {
	transport gsm.Transport
}

func (d staticDialer) Dial(context.Context) (gsm.Transport, error) {
	return d.transport, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGatewayModem(t *testing.T, transport *gsm.TestTransport) *gsm.Modem {
	t.Helper()

	config, err := gsm.NewConfigBuilder().
		WithDialer(staticDialer{transport: transport}).
		WithCommandTimeout(2 * time.Second).
		WithSendPause(5 * time.Millisecond).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	m, err := gsm.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	if err := m.StartReceiving(); err != nil {
		t.Fatalf("unexpected error from StartReceiving(): %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestGatewayEnqueue(t *testing.T) {
	g := NewGateway(&Config{RatePerMin: 30, MaxRetries: 3}, discardLogger())

	t.Run("generates id when absent", func(t *testing.T) {
		id, err := g.Enqueue(SmsRequest{To: "+15551234567", Message: "hi"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Error("expected a generated id")
		}
	})

	t.Run("keeps caller supplied id", func(t *testing.T) {
		id, err := g.Enqueue(SmsRequest{To: "+15551234567", Message: "hi", ID: "job-7"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "job-7" {
			t.Errorf("expected caller id to be kept, got %s", id)
		}
	})

	t.Run("rejects when queue is full", func(t *testing.T) {
		full := NewGateway(&Config{RatePerMin: 30}, discardLogger())
		var err error
		for i := 0; i < cap(full.queue)+1; i++ {
			if _, err = full.Enqueue(SmsRequest{To: "+1", Message: "x"}); err != nil {
				break
			}
		}
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("expected ErrQueueFull, got: %v", err)
		}
	})
}

func TestGatewayRunSendsQueuedMessages(t *testing.T) {
	transport := gsm.NewTestTransport()
	sent := make(chan string, 2)
	transport.OnWrite = func(p []byte) {
		s := string(p)
		if strings.HasPrefix(s, "AT+CMGS=") {
			sent <- s
		}
		if strings.HasSuffix(s, "\x1a") {
			transport.SendData("+CMGS: 1\r\nOK\r\n")
		}
	}

	g := NewGateway(&Config{RatePerMin: 6000, MaxRetries: 0}, discardLogger())
	g.Modem = newGatewayModem(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	if _, err := g.Enqueue(SmsRequest{To: "+15551234567", Message: "Hello there"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case cmd := <-sent:
		if cmd != "AT+CMGS=\"+15551234567\"\r\n" {
			t.Errorf("unexpected submit command: %q", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued message was never sent")
	}
}

func TestGatewayRunDropsAfterMaxRetries(t *testing.T) {
	transport := gsm.NewTestTransport()
	attempts := make(chan struct{}, 4)
	transport.OnWrite = func(p []byte) {
		// The body write; the lone recovery Ctrl-Z after a failure
		// must not count as an attempt.
		if string(p) == "Hello\x1a" {
			attempts <- struct{}{}
			transport.SendData("ERROR\r\n")
		}
	}

	g := NewGateway(&Config{RatePerMin: 6000, MaxRetries: 1}, discardLogger())
	g.Modem = newGatewayModem(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.Run(ctx)

	if _, err := g.Enqueue(SmsRequest{To: "+15551234567", Message: "Hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One initial attempt plus one retry, then the job is dropped.
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(5 * time.Second):
			t.Fatalf("attempt %d never happened", i+1)
		}
	}
	select {
	case <-attempts:
		t.Error("job retried past max retries")
	case <-time.After(2 * time.Second):
	}
}
