package gsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpectationTableRegister(t *testing.T) {
	t.Run("claims the first free slot", func(t *testing.T) {
		tbl := newExpectationTable(10, 10, 100)
		slot, err := tbl.register("+CBC", handlerNone, false)
		require.NoError(t, err)
		require.Equal(t, 0, slot)
		require.Equal(t, SlotWaiting, tbl.slots[slot].state)
		require.Equal(t, "+CBC", string(tbl.slots[slot].prefix))
		require.Equal(t, 1, tbl.live)
	})

	t.Run("prefix too long", func(t *testing.T) {
		tbl := newExpectationTable(10, 4, 100)
		_, err := tbl.register("+CMGR", handlerNone, false)
		require.ErrorIs(t, err, ErrTableFull)
		require.Equal(t, 0, tbl.live)
	})

	t.Run("second exchange rejected while one is open", func(t *testing.T) {
		tbl := newExpectationTable(10, 10, 100)
		_, err := tbl.register("+CBC", handlerNone, false)
		require.NoError(t, err)
		_, err = tbl.register("+CREG", handlerNone, false)
		require.ErrorIs(t, err, ErrExchangeInFlight)
	})

	t.Run("persistent slots are exempt from the exchange check", func(t *testing.T) {
		tbl := newExpectationTable(10, 10, 100)
		_, err := tbl.register("+CMTI", handlerNotification, true)
		require.NoError(t, err)
		slot, err := tbl.register("+CBC", handlerNone, false)
		require.NoError(t, err)
		require.Equal(t, 1, slot)
	})

	t.Run("table full", func(t *testing.T) {
		tbl := newExpectationTable(3, 10, 100)
		for i := 0; i < 3; i++ {
			_, err := tbl.register("+CMTI", handlerNotification, true)
			require.NoError(t, err)
		}
		_, err := tbl.register("+CMTI", handlerNotification, true)
		require.ErrorIs(t, err, ErrTableFull)
		require.Equal(t, 3, tbl.live)
	})
}

func TestExpectationTableRelease(t *testing.T) {
	tbl := newExpectationTable(4, 10, 100)
	slot, err := tbl.register("+CBC", handlerNone, false)
	require.NoError(t, err)

	require.NoError(t, tbl.release(slot))
	require.Equal(t, SlotFree, tbl.slots[slot].state)
	require.Equal(t, 0, tbl.live)

	// Double release is a checked fault, not silent slot reuse.
	require.ErrorIs(t, tbl.release(slot), ErrSlotNotLive)
	require.ErrorIs(t, tbl.release(-1), ErrSlotNotLive)
	require.ErrorIs(t, tbl.release(4), ErrSlotNotLive)

	// The slot is registrable again after release.
	again, err := tbl.register("+CREG", handlerNone, false)
	require.NoError(t, err)
	require.Equal(t, slot, again)
}

func TestExpectationTableFindWaiting(t *testing.T) {
	tbl := newExpectationTable(6, 10, 100)

	_, err := tbl.register("+CMGR", handlerMessage, true)
	require.NoError(t, err)
	notify, err := tbl.register("+CMTI", handlerNotification, true)
	require.NoError(t, err)

	t.Run("scan order is slot index order", func(t *testing.T) {
		slot, ok := tbl.findWaiting([]byte("+CMGR: \"REC UNREAD\",...\r\n"))
		require.True(t, ok)
		require.Equal(t, 0, slot)
	})

	t.Run("later persistent slot is always reachable", func(t *testing.T) {
		slot, ok := tbl.findWaiting([]byte("+CMTI: \"SM\",3\r\n"))
		require.True(t, ok)
		require.Equal(t, notify, slot)
	})

	t.Run("non-waiting slots are skipped", func(t *testing.T) {
		tbl.slots[0].state = SlotMatched
		_, ok := tbl.findWaiting([]byte("+CMGR: ...\r\n"))
		require.False(t, ok)
		tbl.slots[0].state = SlotWaiting
	})

	t.Run("sentinel empty prefix never matches", func(t *testing.T) {
		empty := newExpectationTable(2, 10, 100)
		_, err := empty.register("", handlerNone, false)
		require.NoError(t, err)
		_, ok := empty.findWaiting([]byte("OK\r\n"))
		require.False(t, ok)
		_, ok = empty.findWaiting([]byte("+CBC: 1,80,4100\r\n"))
		require.False(t, ok)
	})
}

func TestExpectationTableCapacityInvariant(t *testing.T) {
	const capacity = 5
	tbl := newExpectationTable(capacity, 10, 100)

	for round := 0; round < 3; round++ {
		var slots []int
		for {
			slot, err := tbl.register("+CMTI", handlerNotification, true)
			if err != nil {
				require.ErrorIs(t, err, ErrTableFull)
				break
			}
			slots = append(slots, slot)
		}
		require.Len(t, slots, capacity)
		require.Equal(t, capacity, tbl.live)
		for _, slot := range slots {
			require.NoError(t, tbl.release(slot))
		}
		require.Equal(t, 0, tbl.live)
	}
}

func TestExpectationDataTruncation(t *testing.T) {
	tbl := newExpectationTable(1, 10, 10)
	slot, err := tbl.register("+CBC", handlerNone, false)
	require.NoError(t, err)

	s := &tbl.slots[slot]
	s.setData([]byte("0123456789ABCDEF"), tbl.maxDataLen)
	require.Equal(t, "0123456789", string(s.data))

	s.setData([]byte("01234"), tbl.maxDataLen)
	s.appendData([]byte("56789ABCDEF"), tbl.maxDataLen)
	require.Equal(t, "0123456789", string(s.data))

	// Appending at capacity drops the excess without growing the buffer.
	s.appendData([]byte("XYZ"), tbl.maxDataLen)
	require.Equal(t, "0123456789", string(s.data))
}
