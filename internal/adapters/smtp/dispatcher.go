package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"os"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/growthspect/contact-intake/internal/config"
	"github.com/growthspect/contact-intake/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dispatcher delivers composed messages through an external SMTP relay.
// Every send carries a connection deadline and one bounded retry, so a
// stalled relay cannot hold a request handler indefinitely.
type Dispatcher struct {
	cfg     config.SMTPConfig
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewDispatcher creates a new SMTP dispatcher
func NewDispatcher(cfg config.SMTPConfig, logger *zap.Logger) (*Dispatcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is not configured")
	}
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("smtp sender address is not configured")
	}
	switch cfg.Security {
	case "none", "starttls", "tls":
	default:
		return nil, fmt.Errorf("unsupported smtp security mode: %s", cfg.Security)
	}

	perMinute := cfg.SendsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	return &Dispatcher{
		cfg:    cfg,
		logger: logger,
		// Global outbound throttle shared by all request handlers.
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}, nil
}

// Send delivers a single message, retrying once on failure
func (d *Dispatcher) Send(ctx context.Context, msg *core.EmailMessage) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("outbound throttle: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.Warn("Retrying mail dispatch",
				zap.Int("attempt", attempt+1),
				zap.String("to", msg.To),
				zap.Error(lastErr))
			select {
			case <-time.After(d.cfg.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = d.sendOnce(ctx, msg)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// sendOnce performs one full SMTP conversation with the relay
func (d *Dispatcher) sendOnce(ctx context.Context, msg *core.EmailMessage) error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	dialer := net.Dialer{Timeout: d.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to mail relay: %w", err)
	}

	deadline := time.Now().Add(d.cfg.Timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	if d.cfg.Security == "tls" {
		conn = tls.Client(conn, &tls.Config{ServerName: d.cfg.Host})
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if d.cfg.Security == "starttls" {
		if err := c.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if d.cfg.Username != "" {
		auth := sasl.NewPlainClient("", d.cfg.Username, d.cfg.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("AUTH failed: %w", err)
		}
	}

	if err := c.Mail(msg.From, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := c.Rcpt(msg.To, nil); err != nil {
		return fmt.Errorf("RCPT TO failed: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(BuildMessage(msg, hostname)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		d.logger.Warn("QUIT command failed", zap.Error(err))
		// The message is already accepted at this point.
	}

	return nil
}

// BuildMessage renders the full RFC 5322 message: headers plus the
// quoted-printable encoded HTML body.
func BuildMessage(msg *core.EmailMessage, hostname string) []byte {
	var buf bytes.Buffer

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), msg.From)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&buf, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%s@%s>\r\n", uuid.NewString(), hostname)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	qp.Write([]byte(msg.HTMLBody))
	qp.Close()

	return buf.Bytes()
}
