package gsm

import (
	"bytes"
	"strconv"
)

// Field extraction works by delimiter search over the accumulated data.
// Every lookup checks delimiter presence before slicing and fails with
// ErrMalformedResponse instead of reading out of bounds.

// fieldAfter returns the bytes following the first occurrence of delim.
func fieldAfter(data []byte, delim byte) ([]byte, error) {
	i := bytes.IndexByte(data, delim)
	if i < 0 || i+1 >= len(data) {
		return nil, ErrMalformedResponse
	}
	return data[i+1:], nil
}

// leadingInt parses the base-10 integer at the start of data, ignoring
// whatever follows the last digit.
func leadingInt(data []byte) (int, error) {
	data = bytes.TrimLeft(data, " ")
	j := 0
	for j < len(data) && data[j] >= '0' && data[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, ErrMalformedResponse
	}
	n, err := strconv.Atoi(string(data[:j]))
	if err != nil {
		return 0, ErrMalformedResponse
	}
	return n, nil
}

// parseNotificationIndex extracts the storage index from a new-message
// notification line of the shape +CMTI: "SM",3.
func parseNotificationIndex(data []byte) (int, error) {
	rest, err := fieldAfter(data, ',')
	if err != nil {
		return 0, err
	}
	return leadingInt(rest)
}

// parseBattery extracts charge information from a response of the shape
// +CBC: <bcs>,<bcl>,<voltage>.
func parseBattery(data []byte) (Battery, error) {
	var b Battery
	rest, err := fieldAfter(data, ':')
	if err != nil {
		return b, err
	}
	if b.ChargeStatus, err = leadingInt(rest); err != nil {
		return b, err
	}
	if rest, err = fieldAfter(rest, ','); err != nil {
		return b, err
	}
	if b.ConnectionLevel, err = leadingInt(rest); err != nil {
		return b, err
	}
	if rest, err = fieldAfter(rest, ','); err != nil {
		return b, err
	}
	if b.BatteryLevel, err = leadingInt(rest); err != nil {
		return b, err
	}
	return b, nil
}

// parseRegistration extracts the registration state from a response of
// the shape +CREG: <n>,<stat>.
func parseRegistration(data []byte) (NetworkRegStatus, error) {
	rest, err := fieldAfter(data, ',')
	if err != nil {
		return RegUnknown, err
	}
	n, err := leadingInt(rest)
	if err != nil {
		return RegUnknown, err
	}
	return NetworkRegStatus(n), nil
}

// parseMessage extracts sender and body from an accumulated +CMGR
// exchange:
//
//	+CMGR: "REC UNREAD","+15551234567","","23/01/01,00:00:00+00"
//	Hello there
//	OK
func parseMessage(data []byte) (Message, error) {
	var msg Message
	lines := bytes.Split(data, crlf)
	if len(lines) < 3 {
		return msg, ErrMalformedResponse
	}
	// Quoted header fields: splitting on '"' puts the sender at index 3.
	fields := bytes.Split(lines[0], []byte(`"`))
	if len(fields) < 4 {
		return msg, ErrMalformedResponse
	}
	msg.Sender = string(fields[3])
	msg.Body = string(lines[1])
	return msg, nil
}
