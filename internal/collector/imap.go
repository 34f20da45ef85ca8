package collector

import (
	"context"
	"fmt"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/ternarybob/arbor"
)

// IMAPConfig holds the mailbox connection settings.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Mailbox  string
	Sender   string // only messages from this address are considered
	Timeout  time.Duration
}

// IMAPSource reads the newest newsletter from an IMAP mailbox.
type IMAPSource struct {
	cfg    IMAPConfig
	logger arbor.ILogger
}

// NewIMAPSource creates an IMAPSource.
func NewIMAPSource(cfg IMAPConfig, logger arbor.ILogger) *IMAPSource {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &IMAPSource{cfg: cfg, logger: logger}
}

func (s *IMAPSource) Name() string { return "imap" }

// FetchLatest returns the most recent message from the configured sender.
// The mailbox is opened read-only so nothing is marked as seen.
func (s *IMAPSource) FetchLatest(ctx context.Context) (*model.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cfg.Host == "" || s.cfg.Username == "" || s.cfg.Password == "" {
		return nil, fmt.Errorf("IMAP not configured")
	}

	c, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer c.Logout()
	c.Timeout = s.cfg.Timeout

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	mbox, err := c.Select(s.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", s.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, ErrNoMessage
	}

	criteria := imap.NewSearchCriteria()
	if s.cfg.Sender != "" {
		criteria.Header.Add("From", s.cfg.Sender)
	}
	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(seqNums) == 0 {
		s.logger.Debug().Str("sender", s.cfg.Sender).Msg("No messages from sender")
		return nil, ErrNoMessage
	}

	latest := seqNums[0]
	for _, n := range seqNums[1:] {
		if n > latest {
			latest = n
		}
	}
	s.logger.Debug().Int("matches", len(seqNums)).Int("seq", int(latest)).Msg("Fetching newest newsletter")

	return s.fetch(c, latest)
}

func (s *IMAPSource) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if s.cfg.UseTLS {
		return client.DialTLS(addr, nil)
	}
	return client.Dial(addr)
}

func (s *IMAPSource) fetch(c *client.Client, seq uint32) (*model.RawMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seq)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		if m != nil {
			msg = m
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", seq, err)
	}
	if msg == nil {
		return nil, ErrNoMessage
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body section", seq)
	}
	raw, err := ReadMessage(body)
	if err != nil {
		return nil, fmt.Errorf("parse message %d: %w", seq, err)
	}

	if raw.Subject == "" && msg.Envelope != nil {
		raw.Subject = msg.Envelope.Subject
	}
	if raw.ReceivedAt.IsZero() {
		if msg.Envelope != nil && !msg.Envelope.Date.IsZero() {
			raw.ReceivedAt = msg.Envelope.Date
		} else {
			raw.ReceivedAt = msg.InternalDate
		}
	}
	return raw, nil
}
