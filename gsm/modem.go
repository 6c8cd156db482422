// Package gsm implements the response-correlation engine for a SIM800
// class cellular modem: a line-oriented, half-duplex AT exchange over a
// byte stream, demultiplexed through a fixed-capacity table of
// registered expectations.
//
// A command-issuing caller registers an expectation for the response
// family it is about to provoke, transmits the command, then waits for
// the dispatcher to close the exchange with a terminal "OK"/"ERROR"
// line. The receive path runs on its own goroutine, consuming one byte
// per read - the software rendition of a one-byte UART interrupt - and
// never blocks: assembling lines, matching prefixes, appending
// continuation data and firing handlers all complete in bounded time.
package gsm

import (
	"context"
	"fmt"
	"sync"
)

// Handlers are the outward hook points invoked by the dispatcher on the
// delivery goroutine. Both are optional.
type Handlers struct {
	// NewMessage is invoked when a new-message notification (+CMTI)
	// arrives, with the storage index of the message. The subscription
	// survives; calling RequestMessage from here is the expected flow.
	NewMessage func(m *Modem, index int)
	// Message is invoked when a requested message payload (+CMGR)
	// completes and parses. Its slot has been released by then.
	Message func(m *Modem, msg Message)
}

// Modem is the handle for one modem link. It owns the expectation
// table, the line assembler and the "current exchange" pointer; none of
// that state is shared across links.
type Modem struct {
	transport Transport
	config    Config
	handlers  Handlers

	mu    sync.Mutex
	table *expectationTable
	// current is the slot most recently registered or matched, the
	// routing target for unprefixed status and continuation lines.
	// -1 until the first registration.
	current    int
	notifySlot int
	receiving  bool
	// looping is true while a receive goroutine exists. A disarmed loop
	// may still be blocked in Read; re-arming reuses it instead of
	// spawning a second reader.
	looping bool
	closed  bool

	// asm is touched only by the receive goroutine.
	asm      *lineAssembler
	readErrs chan error
}

// New creates a Modem by dialing the configured transport. The returned
// Modem does not consume bytes until StartReceiving is called.
func New(ctx context.Context, config Config) (*Modem, error) {
	if config.dialer == nil {
		return nil, ErrNoDialer
	}
	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	return &Modem{
		transport:  transport,
		config:     config,
		handlers:   config.handlers,
		table:      newExpectationTable(config.maxSlots, config.maxPrefixLen, config.maxDataLen),
		asm:        newLineAssembler(config.maxLineLen),
		current:    -1,
		notifySlot: -1,
		readErrs:   make(chan error, 1),
	}, nil
}

// StartReceiving arms reception: a goroutine starts consuming the
// transport one byte at a time and feeding the dispatcher. Calling it
// while reception is already armed is a no-op.
func (m *Modem) StartReceiving() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	if m.transport == nil {
		return ErrNotInitialized
	}
	if m.receiving {
		return nil
	}
	m.receiving = true
	if !m.looping {
		m.looping = true
		go m.receiveLoop()
	}
	return nil
}

// StopReceiving administratively disables reception. A byte already in
// flight is still processed; the loop then stops re-arming and exits.
func (m *Modem) StopReceiving() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiving = false
	return nil
}

// ReadErrors reports transport read failures from the receive loop. The
// loop stops after the first failure; the caller decides whether to
// tear the link down or re-arm with StartReceiving.
func (m *Modem) ReadErrors() <-chan error {
	return m.readErrs
}

// Close shuts the link down and closes the transport. A second Close
// returns ErrAlreadyClosed.
func (m *Modem) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrAlreadyClosed
	}
	m.closed = true
	m.receiving = false
	m.mu.Unlock()

	if m.transport != nil {
		return m.transport.Close()
	}
	return nil
}

// receiveLoop is the delivery path: one byte per Read until reception is
// disabled or the transport fails. It is the only goroutine touching
// the assembler, and the only writer of table state besides the
// register/release entry points.
func (m *Modem) receiveLoop() {
	var buf [1]byte
	for {
		m.mu.Lock()
		armed := m.receiving && !m.closed
		if !armed {
			m.looping = false
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		n, err := m.transport.Read(buf[:])
		if err != nil {
			m.mu.Lock()
			m.receiving = false
			m.looping = false
			closed := m.closed
			m.mu.Unlock()
			if !closed {
				select {
				case m.readErrs <- err:
				default:
				}
			}
			return
		}
		if n == 0 {
			continue
		}
		m.feedByte(buf[0])
	}
}

func (m *Modem) feedByte(b byte) {
	line, ok := m.asm.feed(b)
	if !ok {
		return
	}
	m.mu.Lock()
	calls := m.dispatchLine(line)
	m.mu.Unlock()
	for _, call := range calls {
		call()
	}
}

// addExpectation registers a slot and marks it current: the most recent
// registration is the implicit target for plain status lines until
// something else matches.
func (m *Modem) addExpectation(prefix string, kind handlerKind, persistent bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return -1, ErrAlreadyClosed
	}
	slot, err := m.table.register(prefix, kind, persistent)
	if err != nil {
		return -1, err
	}
	m.current = slot
	return slot, nil
}

// releaseSlot frees a slot and clears any pointers at it.
func (m *Modem) releaseSlot(slot int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.table.release(slot); err != nil {
		return
	}
	if m.current == slot {
		m.current = -1
	}
	if m.notifySlot == slot {
		m.notifySlot = -1
	}
}

// slotData copies out the accumulated data of a slot.
func (m *Modem) slotData(slot int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(m.table.slots[slot].data))
	copy(data, m.table.slots[slot].data)
	return data
}

func (m *Modem) transmit(cmd string) error {
	if _, err := m.transport.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	return nil
}

// commandContext applies the configured command timeout when the
// caller's context carries no deadline.
func (m *Modem) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); !ok && m.config.commandTimeout > 0 {
		return context.WithTimeout(ctx, m.config.commandTimeout)
	}
	return context.WithCancel(ctx)
}
