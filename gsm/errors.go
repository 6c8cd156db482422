package gsm

import "errors"

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Modem
	// that has not been successfully initialized.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Modem that has
	// already been closed.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrTableFull is returned by a registration when no free expectation
	// slot remains, or when the requested prefix exceeds the configured
	// maximum prefix length.
	ErrTableFull = errors.New("expectation table full")

	// ErrExchangeInFlight is returned by a registration while a previous
	// command/response exchange is still open. The protocol supports a
	// single outstanding exchange at a time; pipelining would corrupt
	// response routing, so the constraint is checked rather than assumed.
	// Persistent notification subscriptions are exempt.
	ErrExchangeInFlight = errors.New("command exchange already in flight")

	// ErrTimeout is returned when the deadline elapses before the awaited
	// response state is observed. The expectation slot is left untouched;
	// commands release it themselves before returning.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrMalformedResponse is returned when accumulated response data does
	// not contain an expected delimiter or field. Parsing fails soft with
	// this error instead of reading past the buffer.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrSlotNotLive is returned when a slot operation targets a slot that
	// is not registered, typically a double release.
	ErrSlotNotLive = errors.New("expectation slot not live")

	// ErrCommandFailed is returned when an exchange closed with a terminal
	// status other than OK.
	ErrCommandFailed = errors.New("command failed")

	// ErrNotificationsEnabled is returned when EnableNotifications is
	// called while the notification subscription is already registered.
	ErrNotificationsEnabled = errors.New("notifications already enabled")

	// ErrMessageTooLong is returned when an outgoing SMS recipient or body
	// exceeds the transmit buffer limits.
	ErrMessageTooLong = errors.New("message too long")
)
