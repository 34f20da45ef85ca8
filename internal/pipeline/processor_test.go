package pipeline

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"NewsletterDigest/internal/collector"
	"NewsletterDigest/internal/digest"
	"NewsletterDigest/internal/model"
	"NewsletterDigest/internal/notifier"
	"NewsletterDigest/internal/recorder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

const body = `View this email in your browser

Market Commentary:
Buyers defended 5700 twice.

Key Levels
5650: strong historical pivot
5702: reclaim trigger

Trade Plan Friday
Buy dips into supports. Supports are: 5700-05 (major), 5690. Resistances are: 5725.

Manage your subscription
`

type recordingNotifier struct {
	name    string
	err     error
	digests []*model.Digest
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(_ context.Context, d *model.Digest) error {
	if r.err != nil {
		return r.err
	}
	r.digests = append(r.digests, d)
	return nil
}

type fixture struct {
	proc   *Processor
	store  *recorder.SQLiteStore
	source *collector.StaticSource
	sink   *recordingNotifier
}

func newFixture(t *testing.T, received time.Time) *fixture {
	t.Helper()
	logger := arbor.NewLogger()
	loc, err := time.LoadLocation(digest.ReferenceTimezone)
	require.NoError(t, err)

	store, err := recorder.NewSQLiteStore(filepath.Join(t.TempDir(), "digest.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &collector.StaticSource{Message: &model.RawMessage{
		ReceivedAt: received,
		Subject:    "Trade Plan Friday",
		Body:       body,
	}}
	sink := &recordingNotifier{name: "recording"}
	engine := digest.NewEngine(digest.Options{Location: loc}, logger)
	proc := NewProcessor(collector.NewCollector(source, logger), engine, store, loc, logger, sink)
	proc.Retries = 0
	proc.now = func() time.Time { return received }

	return &fixture{proc: proc, store: store, source: source, sink: sink}
}

var friday = time.Date(2026, time.October, 16, 21, 0, 0, 0, time.UTC)

func TestProcessLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	require.NoError(t, f.store.ReplaceMarkers(ctx, []model.MarkerRef{{Price: 5703, MarkerType: "Weekly"}}))
	require.NoError(t, f.store.AddEvents(ctx, []model.CalendarEvent{
		{Date: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), Time: "8:30 AM", Event: "CPI"},
		{Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), Time: "8:30 AM", Event: "Retail Sales"},
	}))

	res, err := f.proc.ProcessLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20261016", res.NewsletterID)
	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Parsed.KeyLevels, 4)
	assert.Equal(t, "5700-05 [Weekly at 5703]", digest.FormatLevel(res.Parsed.KeyLevels[1]))

	d, err := f.proc.LatestDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20261016", d.NewsletterID)
	assert.Equal(t, res.Parsed.ComposedSummary, d.Summary)
	assert.Equal(t, "Monday (10/19)\n\n8:30 AM - CPI", d.UpcomingEvents)
	assert.Len(t, d.KeyLevels, 4)
}

func TestProcessLatest_AlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)

	_, err := f.proc.ProcessLatest(ctx)
	require.NoError(t, err)

	_, err = f.proc.ProcessLatest(ctx)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestProcessLatest_CollectFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	f.source.Err = errors.New("imap timeout")

	_, err := f.proc.ProcessLatest(ctx)
	assert.Error(t, err)

	_, err = f.proc.LatestDigest(ctx)
	assert.ErrorIs(t, err, recorder.ErrNotFound)
}

func TestNewsletterID_UsesReferenceTimezone(t *testing.T) {
	loc, err := time.LoadLocation(digest.ReferenceTimezone)
	require.NoError(t, err)

	// 02:00 UTC on Saturday is still Friday evening in New York.
	assert.Equal(t, "20261016", NewsletterID(time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC), loc))
	assert.Equal(t, "20261017", NewsletterID(time.Date(2026, 10, 17, 2, 0, 0, 0, time.UTC), time.UTC))
}

func TestSendSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)

	assert.ErrorIs(t, f.proc.SendSummary(ctx), recorder.ErrNotFound)

	_, err := f.proc.ProcessLatest(ctx)
	require.NoError(t, err)

	require.NoError(t, f.proc.SendSummary(ctx))
	require.Len(t, f.sink.digests, 1)
	assert.Equal(t, "20261016", f.sink.digests[0].NewsletterID)
}

func TestSendSummary_ChannelFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	_, err := f.proc.ProcessLatest(ctx)
	require.NoError(t, err)

	broken := &recordingNotifier{name: "broken", err: errors.New("smtp down")}
	f.proc.notifiers = []notifier.Notifier{broken, f.sink}

	err = f.proc.SendSummary(ctx)
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, f.sink.digests, 1, "a failing channel must not block the others")
}

func TestSendSummary_NoChannels(t *testing.T) {
	f := newFixture(t, friday)
	f.proc.notifiers = nil
	assert.Error(t, f.proc.SendSummary(context.Background()))
}

func TestDeleteLatestAndExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, friday)
	_, err := f.proc.ProcessLatest(ctx)
	require.NoError(t, err)

	var page bytes.Buffer
	require.NoError(t, f.proc.ExportHTML(ctx, &page))
	assert.Contains(t, page.String(), "<title>Market Newsletter Summary 20261016</title>")

	id, err := f.proc.DeleteLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20261016", id)

	_, err = f.proc.DeleteLatest(ctx)
	assert.ErrorIs(t, err, recorder.ErrNotFound)

	_, err = f.proc.ProcessLatest(ctx)
	assert.NoError(t, err, "a deleted newsletter can be processed again")
}
