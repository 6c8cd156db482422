package gsm

// lineAssembler accumulates the one-byte-at-a-time receive feed into
// complete lines. It is owned by the receive goroutine and needs no
// locking.
type lineAssembler struct {
	buf []byte
	max int
}

func newLineAssembler(maxLen int) *lineAssembler {
	// One spare byte so appending the terminator at capacity never grows
	// the buffer.
	return &lineAssembler{buf: make([]byte, 0, maxLen+1), max: maxLen}
}

// feed consumes one byte. When the byte is the line terminator the
// assembled line, terminator included, is returned and the buffer is
// reset. Bytes arriving while the buffer is at capacity are dropped, but
// the terminator still closes the line.
func (a *lineAssembler) feed(b byte) ([]byte, bool) {
	if b != '\n' {
		if len(a.buf) < a.max {
			a.buf = append(a.buf, b)
		}
		return nil, false
	}
	a.buf = append(a.buf, b)
	line := make([]byte, len(a.buf))
	copy(line, a.buf)
	a.buf = a.buf[:0]
	return line, true
}
