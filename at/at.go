// Package at holds the AT command vocabulary spoken by the SIM800 family
// of GSM modems: the command strings the driver issues, the response
// prefixes it watches for, and the framing bytes of the wire protocol.
package at

import "strconv"

const (
	// Terminal control
	CRLF  = "\r\n"
	CtrlZ = "\x1a"

	// Final result codes. A terminal status line is identified by its
	// first two bytes only ("OK" or "ER"), matching what the modem
	// actually guarantees at line start.
	OK    = "OK"
	ERROR = "ERROR"

	// Response prefixes
	PrefixBattery      = "+CBC"
	PrefixRegistration = "+CREG"
	PrefixTextMode     = "+CMGF"
	PrefixDeleteAll    = "+CMGD"
	PrefixSend         = "+CMGS"
	PrefixReadMessage  = "+CMGR"
	PrefixNewMessage   = "+CMTI"

	// Fixed commands
	CmdAt           = "AT\r\n"
	CmdBattery      = "AT+CBC\r\n"
	CmdRegistration = "AT+CREG?\r\n"
	CmdTextMode     = "AT+CMGF=1\r\n"
	CmdDeleteAll    = "AT+CMGD=1,4\r\n"
)

// IsFinal reports whether line is a terminal status line closing the
// active exchange. Only the first two bytes are inspected: "OK" covers
// the success code and "ER" covers "ERROR".
func IsFinal(line []byte) bool {
	if len(line) < 2 {
		return false
	}
	if line[0] == 'O' && line[1] == 'K' {
		return true
	}
	return line[0] == 'E' && line[1] == 'R'
}

// SendCommand builds the AT+CMGS command that opens an SMS submission to
// the given recipient. The message body follows separately, terminated
// by Ctrl-Z.
func SendCommand(recipient string) string {
	return "AT+CMGS=\"" + recipient + "\"\r\n"
}

// ReadCommand builds the AT+CMGR command requesting the stored message
// at the given index.
func ReadCommand(index int) string {
	return "AT+CMGR=" + strconv.Itoa(index) + "\r\n"
}
