package at_test

import (
	"testing"

	"github.com/tor1kk/sim800/at"
)

func TestIsFinal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "OK line", input: "OK\r\n", expected: true},
		{name: "ERROR line", input: "ERROR\r\n", expected: true},
		{name: "Bare OK", input: "OK", expected: true},
		{name: "Bare ERROR", input: "ERROR", expected: true},
		{name: "Battery response", input: "+CBC: 1,80,4100\r\n", expected: false},
		{name: "New message notification", input: "+CMTI: \"SM\",3\r\n", expected: false},
		{name: "Message body", input: "Hello there\r\n", expected: false},
		{name: "Empty line", input: "\r\n", expected: false},
		{name: "Single byte", input: "O", expected: false},
		{name: "Lowercase ok", input: "ok\r\n", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := at.IsFinal([]byte(tt.input)); got != tt.expected {
				t.Errorf("IsFinal(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSendCommand(t *testing.T) {
	got := at.SendCommand("+15551234567")
	want := "AT+CMGS=\"+15551234567\"\r\n"
	if got != want {
		t.Errorf("SendCommand: expected %q, got %q", want, got)
	}
}

func TestReadCommand(t *testing.T) {
	tests := []struct {
		index    int
		expected string
	}{
		{index: 1, expected: "AT+CMGR=1\r\n"},
		{index: 42, expected: "AT+CMGR=42\r\n"},
	}

	for _, tt := range tests {
		if got := at.ReadCommand(tt.index); got != tt.expected {
			t.Errorf("ReadCommand(%d): expected %q, got %q", tt.index, tt.expected, got)
		}
	}
}
