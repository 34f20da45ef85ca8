package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
)

// MailerConfig holds the SMTP settings and recipients of the summary email.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	UseTLS   bool
	To       string
	Bcc      []string
}

// Mailer sends the digest as a multipart/alternative (text + HTML) email.
type Mailer struct {
	cfg    MailerConfig
	logger arbor.ILogger
}

func NewMailer(cfg MailerConfig, logger arbor.ILogger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, logger: logger}
}

func (m *Mailer) Name() string { return "email" }

// Send builds the summary email and delivers it to To plus every Bcc address.
func (m *Mailer) Send(ctx context.Context, d *model.Digest) error {
	if m.cfg.Host == "" {
		return errors.New("SMTP host not configured")
	}
	if m.cfg.From == "" || m.cfg.To == "" {
		return errors.New("sender and recipient must be configured")
	}

	msg, err := m.BuildMessage(d, time.Now())
	if err != nil {
		return err
	}
	rcpts := append([]string{m.cfg.To}, m.cfg.Bcc...)

	if err := m.deliver(ctx, rcpts, msg); err != nil {
		return err
	}
	m.logger.Info().
		Str("newsletter_id", d.NewsletterID).
		Str("to", m.cfg.To).
		Int("bcc", len(m.cfg.Bcc)).
		Msg("Summary email sent")
	return nil
}

// BuildMessage renders the RFC 5322 message. Bcc recipients are envelope-only
// and never appear in the headers.
func (m *Mailer) BuildMessage(d *model.Digest, now time.Time) ([]byte, error) {
	htmlBody, err := RenderHTML(FormatMarkdown(d))
	if err != nil {
		return nil, err
	}

	var h mail.Header
	h.SetDate(now)
	h.SetSubject(SummarySubject)
	h.SetAddressList("From", []*mail.Address{{Name: m.cfg.FromName, Address: m.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: m.cfg.To}})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline writer: %w", err)
	}
	if err := writePart(tw, "text/plain", FormatText(d)); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", htmlBody); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return w.Close()
}

// deliver connects with implicit TLS when configured, falling back to
// STARTTLS when the TLS handshake fails.
func (m *Mailer) deliver(ctx context.Context, rcpts []string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	tlsConfig := &tls.Config{ServerName: m.cfg.Host}

	var (
		conn     net.Conn
		err      error
		startTLS = true
	)
	if m.cfg.UseTLS {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			startTLS = false
		} else {
			m.logger.Debug().Err(err).Str("addr", addr).Msg("Implicit TLS failed, trying STARTTLS")
		}
	}
	if conn == nil {
		var d net.Dialer
		if conn, err = d.DialContext(ctx, "tcp", addr); err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if startTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		} else if m.cfg.UseTLS {
			return errors.New("server does not support STARTTLS")
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}
