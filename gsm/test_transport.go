package gsm

import (
	"io"
	"sync"
)

// TestTransport is a test helper that simulates a blocking transport using
// channels. The receive loop reads one byte per call, so queued chunks are
// drained byte-wise from a pending buffer, like a real serial port would
// deliver them.
type TestTransport struct {
	mu       sync.Mutex
	readChan chan []byte
	closed   bool

	// pending is touched only by the reader goroutine.
	pending []byte

	// OnWrite, when set, observes every Write. Tests use it to queue the
	// modem's response only after the command actually went out.
	OnWrite func(p []byte)
}

// NewTestTransport creates a new test transport for testing.
// Exported for use in tests.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		readChan: make(chan []byte, 10),
	}
}

func (t *TestTransport) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	hook := t.OnWrite
	t.mu.Unlock()
	if hook != nil {
		hook(p)
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (n int, err error) {
	if len(t.pending) == 0 {
		data, ok := <-t.readChan
		if !ok {
			return 0, io.EOF
		}
		t.pending = data
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read by the transport.
// This simulates receiving data from the modem.
func (t *TestTransport) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}
