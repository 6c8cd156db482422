package gsm

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/tor1kk/sim800/at"
)

// Battery carries the charge information reported by AT+CBC.
type Battery struct {
	// ChargeStatus: 0 not charging, 1 charging, 2 charging finished.
	ChargeStatus int
	// ConnectionLevel is the battery connection level in percent.
	ConnectionLevel int
	// BatteryLevel is the battery voltage in millivolts.
	BatteryLevel int
}

// Message is a text message read from modem storage.
type Message struct {
	Sender string
	Body   string
}

// NetworkRegStatus is the registration state reported by AT+CREG?.
type NetworkRegStatus int

const (
	RegNotSearching NetworkRegStatus = iota
	RegHome
	RegSearching
	RegDenied
	RegUnknown
	RegRoaming
)

func (s NetworkRegStatus) String() string {
	switch s {
	case RegNotSearching:
		return "not registered"
	case RegHome:
		return "registered (home)"
	case RegSearching:
		return "searching"
	case RegDenied:
		return "denied"
	case RegRoaming:
		return "registered (roaming)"
	default:
		return "unknown"
	}
}

const (
	maxRecipientLen = 20
	maxBodyLen      = 160
)

// execStatus runs one complete exchange: register an expectation for
// prefix, transmit cmd, wait for the terminal status, validate it and
// return the accumulated data. The slot is released on every path.
func (m *Modem) execStatus(ctx context.Context, prefix, cmd string) ([]byte, error) {
	if m.transport == nil {
		return nil, ErrNotInitialized
	}

	slot, err := m.addExpectation(prefix, handlerNone, false)
	if err != nil {
		return nil, err
	}
	if err := m.transmit(cmd); err != nil {
		m.releaseSlot(slot)
		return nil, err
	}

	ctx, cancel := m.commandContext(ctx)
	defer cancel()
	if err := m.waitForState(ctx, slot, SlotClosed); err != nil {
		m.releaseSlot(slot)
		return nil, err
	}

	data := m.slotData(slot)
	m.releaseSlot(slot)
	if !bytes.Contains(data, []byte(at.OK)) {
		return data, ErrCommandFailed
	}
	return data, nil
}

// Ping checks that the modem answers AT at all. It registers the
// sentinel empty prefix, which matches no line: the exchange consists
// of the terminal status alone.
func (m *Modem) Ping(ctx context.Context) error {
	_, err := m.execStatus(ctx, "", at.CmdAt)
	return err
}

// BatteryInfo queries AT+CBC and parses the charge report.
func (m *Modem) BatteryInfo(ctx context.Context) (Battery, error) {
	data, err := m.execStatus(ctx, at.PrefixBattery, at.CmdBattery)
	if err != nil {
		return Battery{}, err
	}
	return parseBattery(data)
}

// NetworkRegistration queries AT+CREG? and returns the registration
// state.
func (m *Modem) NetworkRegistration(ctx context.Context) (NetworkRegStatus, error) {
	data, err := m.execStatus(ctx, at.PrefixRegistration, at.CmdRegistration)
	if err != nil {
		return RegUnknown, err
	}
	return parseRegistration(data)
}

// SetTextMode switches the modem to SMS text mode (AT+CMGF=1).
func (m *Modem) SetTextMode(ctx context.Context) error {
	_, err := m.execStatus(ctx, at.PrefixTextMode, at.CmdTextMode)
	return err
}

// DeleteAllMessages removes every stored message (AT+CMGD=1,4).
func (m *Modem) DeleteAllMessages(ctx context.Context) error {
	_, err := m.execStatus(ctx, at.PrefixDeleteAll, at.CmdDeleteAll)
	return err
}

// SendMessage submits a text message to the given recipient and blocks
// until the network accepts it or the exchange fails.
//
// The "> " prompt the modem emits between the submit command and the
// body never carries a line terminator, so it cannot transit the
// dispatcher; a fixed pause stands in for prompt detection. Ctrl-Z is
// re-sent on the failure paths so an interrupted submission cannot
// leave the modem stuck in body-entry mode.
func (m *Modem) SendMessage(ctx context.Context, recipient, body string) error {
	if m.transport == nil {
		return ErrNotInitialized
	}
	if len(recipient) > maxRecipientLen || len(body) > maxBodyLen {
		return ErrMessageTooLong
	}

	slot, err := m.addExpectation(at.PrefixSend, handlerNone, false)
	if err != nil {
		return err
	}
	if err := m.transmit(at.SendCommand(recipient)); err != nil {
		m.releaseSlot(slot)
		return err
	}

	select {
	case <-time.After(m.config.sendPause):
	case <-ctx.Done():
		m.releaseSlot(slot)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}

	if err := m.transmit(body + at.CtrlZ); err != nil {
		_ = m.transmit(at.CtrlZ)
		m.releaseSlot(slot)
		return err
	}

	waitCtx, cancel := m.commandContext(ctx)
	defer cancel()
	if err := m.waitForState(waitCtx, slot, SlotClosed); err != nil {
		_ = m.transmit(at.CtrlZ)
		m.releaseSlot(slot)
		return err
	}

	data := m.slotData(slot)
	m.releaseSlot(slot)
	if !bytes.Contains(data, []byte(at.OK)) {
		_ = m.transmit(at.CtrlZ)
		return ErrCommandFailed
	}
	return nil
}

// RequestMessage asks the modem for the stored message at the given
// index. It does not block for the payload: the multi-line response is
// collected by the dispatcher and delivered through the Message
// handler, which also releases the slot.
func (m *Modem) RequestMessage(index int) error {
	if m.transport == nil {
		return ErrNotInitialized
	}
	slot, err := m.addExpectation(at.PrefixReadMessage, handlerMessage, false)
	if err != nil {
		return err
	}
	if err := m.transmit(at.ReadCommand(index)); err != nil {
		m.releaseSlot(slot)
		return err
	}
	return nil
}

// EnableNotifications registers the persistent +CMTI expectation that
// feeds the NewMessage handler. The slot survives each delivery; it is
// freed only by DisableNotifications or Close.
func (m *Modem) EnableNotifications() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrAlreadyClosed
	}
	if m.notifySlot >= 0 {
		return ErrNotificationsEnabled
	}
	slot, err := m.table.register(at.PrefixNewMessage, handlerNotification, true)
	if err != nil {
		return err
	}
	m.current = slot
	m.notifySlot = slot
	return nil
}

// DisableNotifications releases the persistent notification slot.
// Disabling when nothing is enabled is a no-op.
func (m *Modem) DisableNotifications() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifySlot < 0 {
		return nil
	}
	if err := m.table.release(m.notifySlot); err != nil {
		return err
	}
	if m.current == m.notifySlot {
		m.current = -1
	}
	m.notifySlot = -1
	return nil
}
