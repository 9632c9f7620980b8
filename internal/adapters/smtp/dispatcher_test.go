package smtp

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
)

func baseConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:           "relay.example.com",
		Port:           587,
		Security:       "starttls",
		FromAddress:    "noreply@growthspect.com",
		FromName:       "GrowthSpect",
		NotifyAddress:  "sales@growthspect.com",
		Timeout:        10 * time.Second,
		MaxRetries:     1,
		RetryDelay:     time.Second,
		SendsPerMinute: 30,
	}
}

func TestNewDispatcher_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.SMTPConfig)
		wantOK bool
	}{
		{"valid starttls", func(c *config.SMTPConfig) {}, true},
		{"valid tls", func(c *config.SMTPConfig) { c.Security = "tls" }, true},
		{"valid none", func(c *config.SMTPConfig) { c.Security = "none" }, true},
		{"missing host", func(c *config.SMTPConfig) { c.Host = "" }, false},
		{"missing sender", func(c *config.SMTPConfig) { c.FromAddress = "" }, false},
		{"bad security mode", func(c *config.SMTPConfig) { c.Security = "ssl3" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)

			d, err := NewDispatcher(cfg, zap.NewNop())
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("expected a configuration error")
				}
				if d != nil {
					t.Fatal("expected nil dispatcher on error")
				}
			}
		})
	}
}

func TestBuildMessage_Headers(t *testing.T) {
	msg := &core.EmailMessage{
		From:     "noreply@growthspect.com",
		FromName: "GrowthSpect",
		To:       "jan@firma.cz",
		ReplyTo:  "sales@growthspect.com",
		Subject:  "Hello",
		HTMLBody: "<p>Hi</p>",
	}

	raw := string(BuildMessage(msg, "app-1"))
	headers, _, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		t.Fatal("message must separate headers from body with a blank line")
	}

	wantHeaders := []string{
		"From: GrowthSpect <noreply@growthspect.com>",
		"To: jan@firma.cz",
		"Reply-To: sales@growthspect.com",
		"Subject: Hello",
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
	}
	for _, h := range wantHeaders {
		if !strings.Contains(headers, h+"\r\n") && !strings.HasSuffix(headers, h) {
			t.Fatalf("missing header %q in:\n%s", h, headers)
		}
	}
	if !strings.Contains(headers, "Message-ID: <") || !strings.Contains(headers, "@app-1>") {
		t.Fatalf("expected a host-qualified Message-ID, got:\n%s", headers)
	}
	if !strings.Contains(headers, "Date: ") {
		t.Fatal("expected a Date header")
	}
}

func TestBuildMessage_NonASCIIHeadersAreEncoded(t *testing.T) {
	msg := &core.EmailMessage{
		From:     "noreply@growthspect.com",
		FromName: "Poptávky",
		To:       "sales@growthspect.com",
		Subject:  "Nová poptávka z webu: Jan Novák",
		HTMLBody: "<p>Ahoj</p>",
	}

	raw := BuildMessage(msg, "app-1")
	headers, _, _ := bytes.Cut(raw, []byte("\r\n\r\n"))

	for _, b := range headers {
		if b > 127 {
			t.Fatalf("headers must be pure ASCII, found byte %#x in:\n%s", b, headers)
		}
	}
	if !bytes.Contains(headers, []byte("=?utf-8?q?")) {
		t.Fatalf("expected Q-encoded header words, got:\n%s", headers)
	}
}

func TestBuildMessage_QuotedPrintableBody(t *testing.T) {
	msg := &core.EmailMessage{
		From:     "noreply@growthspect.com",
		To:       "jan@firma.cz",
		Subject:  "Hello",
		HTMLBody: "<p>Děkujeme za vaši zprávu.</p>",
	}

	raw := string(BuildMessage(msg, "app-1"))
	_, body, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		t.Fatal("message must separate headers from body with a blank line")
	}

	for _, b := range []byte(body) {
		if b > 127 {
			t.Fatalf("quoted-printable body must be pure ASCII, found byte %#x", b)
		}
	}
	// "ě" is 0xC4 0x9B in UTF-8
	if !strings.Contains(body, "=C4=9B") {
		t.Fatalf("expected quoted-printable encoded text, got:\n%s", body)
	}
	if !strings.Contains(body, "<p>") {
		t.Fatal("markup should survive the body encoding")
	}
}

func TestBuildMessage_OmitsEmptyOptionalHeaders(t *testing.T) {
	msg := &core.EmailMessage{
		From:     "noreply@growthspect.com",
		To:       "jan@firma.cz",
		Subject:  "Hello",
		HTMLBody: "<p>Hi</p>",
	}

	raw := string(BuildMessage(msg, "app-1"))
	if strings.Contains(raw, "Reply-To:") {
		t.Fatal("empty Reply-To must not emit a header")
	}
	if !strings.Contains(raw, "From: noreply@growthspect.com\r\n") {
		t.Fatal("bare From address should be used when no display name is set")
	}
}
