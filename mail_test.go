package main

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	attachment := []byte("fake epub bytes")
	msg := string(buildMessage("me@example.com", "kindle@example.com", "book.epub", attachment))

	for _, want := range []string{
		"From: me@example.com\r\n",
		"To: kindle@example.com\r\n",
		"Subject: book.epub\r\n",
		"MIME-Version: 1.0\r\n",
		"Content-Type: application/epub+zip",
		`filename="book.epub"`,
		"Content-Transfer-Encoding: base64",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}

	if !strings.Contains(msg, base64.StdEncoding.EncodeToString(attachment)) {
		t.Error("message should contain base64-encoded attachment")
	}
}

func TestBuildMessage_WrapsBase64Lines(t *testing.T) {
	// Attachment large enough to need several encoded lines.
	attachment := make([]byte, 600)
	msg := string(buildMessage("a@b.c", "d@e.f", "x.epub", attachment))

	inBody := false
	for _, line := range strings.Split(msg, "\r\n") {
		if strings.Contains(line, "Content-Disposition") {
			inBody = true
			continue
		}
		if inBody && len(line) > 76 {
			t.Errorf("encoded line exceeds 76 chars: %d", len(line))
		}
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("535 5.7.8 Username and Password not accepted"), true},
		{errors.New("534 5.7.9 Application-specific password required"), true},
		{errors.New("530 5.7.0 Authentication Required"), true},
		{errors.New("SMTP auth unsupported"), true},
		{errors.New("dial tcp: connection refused"), false},
		{errors.New("450 mailbox busy"), false},
	}
	for _, tt := range tests {
		if got := isAuthFailure(tt.err); got != tt.want {
			t.Errorf("isAuthFailure(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	inner := errors.New("535 bad credentials")
	err := &authError{err: inner}
	if !errors.Is(err, inner) {
		t.Error("authError should unwrap to inner error")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestSendFile_MissingAttachment(t *testing.T) {
	err := sendFile(mailConfig{Host: "smtp.example.com", Port: "587"}, "/nonexistent/book.epub")
	if err == nil {
		t.Fatal("expected error for missing attachment file")
	}
	if !strings.Contains(err.Error(), "reading attachment") {
		t.Errorf("unexpected error: %v", err)
	}
}
