package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestCollector_Collect(t *testing.T) {
	received := time.Date(2026, time.October, 16, 20, 45, 0, 0, time.UTC)
	src := &StaticSource{Message: &model.RawMessage{ReceivedAt: received, Subject: "Plan", Body: "Supports are: 5700"}}
	c := NewCollector(src, arbor.NewLogger())

	msg, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Plan", msg.Subject)
	assert.Equal(t, received, msg.ReceivedAt)
}

func TestCollector_NoMessage(t *testing.T) {
	c := NewCollector(&StaticSource{}, arbor.NewLogger())

	_, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestCollector_SourceError(t *testing.T) {
	boom := errors.New("mailbox offline")
	c := NewCollector(&StaticSource{Err: boom}, arbor.NewLogger())

	_, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCollector_RejectsMissingDate(t *testing.T) {
	c := NewCollector(&StaticSource{Message: &model.RawMessage{Subject: "undated", Body: "x"}}, arbor.NewLogger())

	_, err := c.Collect(context.Background())
	assert.Error(t, err)
}

func TestFileSource_PlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade-plan.txt")
	require.NoError(t, os.WriteFile(path, []byte("Supports are: 5700"), 0644))

	msg, err := (&FileSource{Path: path}).FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trade-plan", msg.Subject)
	assert.Equal(t, "Supports are: 5700", msg.Body)
	assert.False(t, msg.ReceivedAt.IsZero())
}

func TestFileSource_EML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "letter.eml")
	require.NoError(t, os.WriteFile(path, []byte(crlf(multipartMessage)), 0644))

	msg, err := (&FileSource{Path: path}).FetchLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Trade Plan Friday", msg.Subject)
	assert.Contains(t, msg.Body, "5650: strong historical pivot")
}

func TestFileSource_Missing(t *testing.T) {
	_, err := (&FileSource{Path: filepath.Join(t.TempDir(), "absent.txt")}).FetchLatest(context.Background())
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestIMAPSource_NotConfigured(t *testing.T) {
	src := NewIMAPSource(IMAPConfig{}, arbor.NewLogger())

	_, err := src.FetchLatest(context.Background())
	assert.EqualError(t, err, "IMAP not configured")
	assert.Equal(t, "imap", src.Name())
}
