package gsm

import "bytes"

// SlotState is the lifecycle state of one expectation slot.
type SlotState uint8

const (
	// SlotFree marks an unregistered slot.
	SlotFree SlotState = iota
	// SlotWaiting marks a registered expectation awaiting its response.
	SlotWaiting
	// SlotMatched marks a slot whose prefix matched an incoming line.
	SlotMatched
	// SlotContinued marks a matched slot after continuation lines have
	// been appended to its data.
	SlotContinued
	// SlotClosed marks a slot whose exchange ended with a terminal
	// status line.
	SlotClosed
)

// handlerKind selects the built-in handler attached to a slot.
type handlerKind uint8

const (
	handlerNone handlerKind = iota
	handlerNotification
	handlerMessage
)

// expectation is one row of the expectation table. A slot's identity is
// its table index, stable for the expectation's lifetime.
type expectation struct {
	prefix     []byte
	data       []byte
	state      SlotState
	kind       handlerKind
	persistent bool
	// signal wakes a waiter after any state change. Buffered so the
	// delivery path never blocks on it.
	signal chan struct{}
}

func (e *expectation) notifyWaiter() {
	if e.signal == nil {
		return
	}
	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// setData overwrites the accumulated data with line, truncated to max.
func (e *expectation) setData(line []byte, max int) {
	if len(line) > max {
		line = line[:max]
	}
	e.data = append(e.data[:0], line...)
}

// appendData appends line to the accumulated data. Bytes beyond max are
// silently dropped; truncation is not a fault.
func (e *expectation) appendData(line []byte, max int) {
	room := max - len(e.data)
	if room <= 0 {
		return
	}
	if len(line) > room {
		line = line[:room]
	}
	e.data = append(e.data, line...)
}

// expectationTable is the fixed-capacity set of registered expectations
// for one link. All methods must be called with the owning Modem's lock
// held.
type expectationTable struct {
	slots        []expectation
	live         int
	maxPrefixLen int
	maxDataLen   int
}

func newExpectationTable(capacity, maxPrefixLen, maxDataLen int) *expectationTable {
	return &expectationTable{
		slots:        make([]expectation, capacity),
		maxPrefixLen: maxPrefixLen,
		maxDataLen:   maxDataLen,
	}
}

// register claims a free slot for the given prefix and built-in handler,
// returning its index. The empty prefix is the sentinel for the
// degenerate "wait for the terminal status only" exchange and never
// matches an incoming line.
//
// Registration fails with ErrTableFull when the prefix is too long or no
// free slot remains, and with ErrExchangeInFlight while any
// non-persistent slot is still live: at most one exchange may be
// outstanding, and the table enforces that instead of trusting callers.
func (t *expectationTable) register(prefix string, kind handlerKind, persistent bool) (int, error) {
	if len(prefix) > t.maxPrefixLen {
		return -1, ErrTableFull
	}
	for i := range t.slots {
		if t.slots[i].state != SlotFree && !t.slots[i].persistent {
			return -1, ErrExchangeInFlight
		}
	}
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != SlotFree {
			continue
		}
		s.prefix = append(s.prefix[:0], prefix...)
		s.data = s.data[:0]
		s.kind = kind
		s.persistent = persistent
		s.state = SlotWaiting
		s.signal = make(chan struct{}, 1)
		t.live++
		return i, nil
	}
	return -1, ErrTableFull
}

// release frees the slot back to SlotFree. Releasing a slot that is not
// live is a checked fault.
func (t *expectationTable) release(i int) error {
	if i < 0 || i >= len(t.slots) {
		return ErrSlotNotLive
	}
	s := &t.slots[i]
	if s.state == SlotFree {
		return ErrSlotNotLive
	}
	s.state = SlotFree
	s.prefix = s.prefix[:0]
	s.data = s.data[:0]
	s.kind = handlerNone
	s.persistent = false
	s.notifyWaiter()
	t.live--
	return nil
}

// findWaiting scans slots in index order for a waiting expectation whose
// prefix matches the leading bytes of line. The first match wins; the
// scan never exits early, so a persistent notification slot registered
// after other waiting slots is always reachable.
func (t *expectationTable) findWaiting(line []byte) (int, bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.state != SlotWaiting || len(s.prefix) == 0 {
			continue
		}
		if bytes.HasPrefix(line, s.prefix) {
			return i, true
		}
	}
	return -1, false
}
