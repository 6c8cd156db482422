package gsm

import (
	"context"
	"errors"
)

// waitForState blocks until the slot reaches the target state or the
// context ends. An elapsed deadline reports ErrTimeout; a canceled
// context reports context.Canceled. It blocks only the calling
// goroutine, never the delivery path, and does not mutate the table: on
// either error the slot is exactly as the dispatcher left it, and the
// caller remains responsible for releasing it.
func (m *Modem) waitForState(ctx context.Context, slot int, target SlotState) error {
	for {
		m.mu.Lock()
		s := &m.table.slots[slot]
		state := s.state
		signal := s.signal
		m.mu.Unlock()

		if state == target {
			return nil
		}
		if state == SlotFree {
			return ErrSlotNotLive
		}

		select {
		case <-signal:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		}
	}
}
