package email

import (
	"strings"
	"testing"
)

func TestValidAddress(t *testing.T) {
	tests := map[string]bool{
		"ops@example.com":             true,
		"no-at-sign":                  false,
		"":                            false,
		"Ops <ops@example.com>":       false,
		"a@example.com,b@example.com": false,
	}
	for addr, want := range tests {
		if got := ValidAddress(addr); got != want {
			t.Errorf("ValidAddress(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestMessage(t *testing.T) {
	msg := string(Message("alerts@example.com", "ops@example.com", "Fire", "line one\nline two"))
	for _, want := range []string{
		"From: alerts@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: Fire\r\n",
		"\r\n\r\nline one\r\nline two",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSendRejectsBadAddress(t *testing.T) {
	if err := Send("localhost", 25, "u", "p", "nobody", "s", "b"); err == nil {
		t.Fatal("expected error for invalid address")
	}
}
