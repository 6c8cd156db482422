package gsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(a *lineAssembler, s string) []string {
	var lines []string
	for i := 0; i < len(s); i++ {
		if line, ok := a.feed(s[i]); ok {
			lines = append(lines, string(line))
		}
	}
	return lines
}

func TestLineAssembler(t *testing.T) {
	t.Run("one line per terminator", func(t *testing.T) {
		a := newLineAssembler(100)
		lines := feedAll(a, "+CBC: 1,80,4100\r\nOK\r\n")
		require.Equal(t, []string{"+CBC: 1,80,4100\r\n", "OK\r\n"}, lines)
	})

	t.Run("no emission without terminator", func(t *testing.T) {
		a := newLineAssembler(100)
		require.Empty(t, feedAll(a, "+CREG: 0,1"))
		// The partial line completes once the terminator arrives.
		require.Equal(t, []string{"+CREG: 0,1\r\n"}, feedAll(a, "\r\n"))
	})

	t.Run("empty line", func(t *testing.T) {
		a := newLineAssembler(100)
		require.Equal(t, []string{"\r\n"}, feedAll(a, "\r\n"))
	})

	t.Run("overflow truncates but still closes the line", func(t *testing.T) {
		a := newLineAssembler(5)
		lines := feedAll(a, "abcdefgh\nOK\n")
		require.Equal(t, []string{"abcde\n", "OK\n"}, lines)
	})

	t.Run("buffer resets between lines", func(t *testing.T) {
		a := newLineAssembler(8)
		first := feedAll(a, "12345678XX\n")
		require.Equal(t, []string{"12345678\n"}, first)
		require.Equal(t, []string{"short\n"}, feedAll(a, "short\n"))
	})
}
