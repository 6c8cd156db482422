package gsm

import (
	"bytes"

	"github.com/tor1kk/sim800/at"
)

var crlf = []byte(at.CRLF)

// dispatchLine routes one completed line. Must be called with m.mu held;
// it completes in bounded time and never blocks. Outward callbacks are
// returned instead of invoked so the caller can run them after the lock
// is dropped, still synchronously on the delivery goroutine, which lets
// a callback register a fresh expectation (e.g. RequestMessage from the
// new-message handler).
//
// Routing, in order:
//
//  1. Terminal status line ("OK"/"ER" at line start): appended to the
//     current slot's data, closes it. Correct because at most one
//     exchange is outstanding at a time.
//  2. Prefix match against waiting slots, index order: the line
//     overwrites the slot's data and the slot becomes current.
//  3. Otherwise a continuation line of the current matched slot,
//     appended to its data.
//  4. Anything else is dropped.
func (m *Modem) dispatchLine(line []byte) []func() {
	if at.IsFinal(line) {
		if m.current < 0 {
			// No exchange has ever been current; nowhere to route.
			return nil
		}
		s := &m.table.slots[m.current]
		if s.state == SlotFree {
			return nil
		}
		s.appendData(line, m.table.maxDataLen)
		s.state = SlotClosed
		s.notifyWaiter()
		return m.runHandler(m.current)
	}

	if i, ok := m.table.findWaiting(line); ok {
		s := &m.table.slots[i]
		s.setData(line, m.table.maxDataLen)
		m.current = i
		s.state = SlotMatched
		s.notifyWaiter()
		return m.runHandler(i)
	}

	if m.current < 0 {
		return nil
	}
	s := &m.table.slots[m.current]
	if (s.state == SlotMatched || s.state == SlotContinued) && !bytes.HasPrefix(s.data, crlf) {
		s.appendData(line, m.table.maxDataLen)
		s.state = SlotContinued
		s.notifyWaiter()
	}
	return nil
}

// runHandler runs the slot's built-in handler for the state it is in and
// collects any outward callback to invoke after the lock is released.
func (m *Modem) runHandler(i int) []func() {
	s := &m.table.slots[i]
	switch s.kind {
	case handlerNotification:
		if s.state != SlotMatched {
			// A stray terminal status closed the subscription slot.
			// Re-arm it without notifying anyone; the subscription
			// must survive.
			s.state = SlotWaiting
			s.notifyWaiter()
			return nil
		}
		index, err := parseNotificationIndex(s.data)
		s.state = SlotWaiting
		s.notifyWaiter()
		if err != nil || m.handlers.NewMessage == nil {
			return nil
		}
		return []func(){func() { m.handlers.NewMessage(m, index) }}

	case handlerMessage:
		if s.state != SlotClosed {
			// Header matched but the exchange is still open; nothing
			// to do until the terminal status arrives.
			return nil
		}
		msg, err := parseMessage(s.data)
		_ = m.table.release(i)
		if m.current == i {
			m.current = -1
		}
		if m.notifySlot == i {
			m.notifySlot = -1
		}
		if err != nil || m.handlers.Message == nil {
			return nil
		}
		return []func(){func() { m.handlers.Message(m, msg) }}
	}
	return nil
}
