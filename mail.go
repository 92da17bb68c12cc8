// SMTP delivery of the packaged epub (send-to-kindle style).
package main

import (
	"encoding/base64"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
)

// errAuth marks delivery failures caused by SMTP authentication so callers
// can tell credential problems from transient transport errors.
type authError struct {
	err error
}

func (e *authError) Error() string { return "SMTP authentication failed: " + e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

// sendFile emails the file at path as an attachment using the configured
// SMTP account.
func sendFile(cfg mailConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading attachment: %w", err)
	}

	msg := buildMessage(cfg.From, cfg.To, filepath.Base(path), data)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, []string{cfg.To}, msg); err != nil {
		if isAuthFailure(err) {
			return &authError{err: err}
		}
		return fmt.Errorf("sending mail: %w", err)
	}

	fmt.Fprintf(logOut, "Sent %s to %s\n", filepath.Base(path), cfg.To)
	return nil
}

// isAuthFailure recognizes SMTP authentication rejections by reply code.
func isAuthFailure(err error) bool {
	msg := err.Error()
	for _, code := range []string{"535 ", "534 ", "530 "} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(msg), "auth")
}

// buildMessage assembles a MIME multipart message with one base64-encoded
// epub attachment.
func buildMessage(from, to, filename string, attachment []byte) []byte {
	const boundary = "bindery-boundary-7cf1a3"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", filename)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&b, "Attached: %s\r\n\r\n", filename)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: application/epub+zip; name=%q\r\n", filename)
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	// 76-character lines per RFC 2045.
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
