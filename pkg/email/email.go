// Package email sends plain-text mail over authenticated SMTP.
package email

import (
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"
)

// ValidAddress reports whether to is a single bare mail address.
func ValidAddress(to string) bool {
	addr, err := mail.ParseAddress(to)
	return err == nil && addr.Address == to
}

// Message renders the RFC 5322 message for a plain-text mail.
func Message(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// Send delivers one message. The SMTP session upgrades to STARTTLS when the
// server offers it.
func Send(server string, port int, username, password, to, subject, body string) error {
	if !ValidAddress(to) {
		return fmt.Errorf("invalid email address: %s", to)
	}

	auth := smtp.PlainAuth("", username, password, server)
	addr := fmt.Sprintf("%s:%d", server, port)
	return smtp.SendMail(addr, auth, username, []string{to}, Message(username, to, subject, body))
}
