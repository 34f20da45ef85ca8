package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"NewsletterDigest/internal/collector"
	"NewsletterDigest/internal/model"
	"NewsletterDigest/internal/notifier"
	"NewsletterDigest/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeProcessor struct {
	processErr error
	summaryErr error
	processed  int
	summaries  int
	digest     *model.Digest
}

func (f *fakeProcessor) ProcessLatest(_ context.Context) (*pipeline.Result, error) {
	f.processed++
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &pipeline.Result{
		NewsletterID: "20261016",
		Parsed:       &model.ParsedNewsletter{KeyLevels: make([]model.PriceLevel, 4)},
	}, nil
}

func (f *fakeProcessor) SendSummary(_ context.Context) error {
	f.summaries++
	return f.summaryErr
}

func (f *fakeProcessor) LatestDigest(_ context.Context) (*model.Digest, error) {
	if f.digest == nil {
		return nil, errors.New("empty")
	}
	return f.digest, nil
}

type alertSink struct{ texts []string }

func (a *alertSink) SendText(_ context.Context, text string) error {
	a.texts = append(a.texts, text)
	return nil
}

func newTestScheduler(p *fakeProcessor) (*Scheduler, *alertSink) {
	s := NewScheduler(context.Background(), p, nil, arbor.NewLogger())
	alerts := &alertSink{}
	s.Alerts = alerts
	return s, alerts
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(&fakeProcessor{})
	require.NoError(t, s.RegisterAll("0 30 17 * * 1-5", "0 0 18 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)

	s, _ = newTestScheduler(&fakeProcessor{})
	assert.Error(t, s.RegisterAll("30 17 * * 1-5", "0 0 18 * * 1-5"))
}

func TestProcessTask_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantAlert bool
	}{
		{"success", nil, false},
		{"already processed", fmt.Errorf("20261016: %w", pipeline.ErrAlreadyProcessed), false},
		{"no message", fmt.Errorf("fetch: %w", collector.ErrNoMessage), false},
		{"failure", errors.New("disk full"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{processErr: tt.err}
			s, alerts := newTestScheduler(p)

			s.RunProcessNow()
			assert.Equal(t, 1, p.processed)
			if tt.wantAlert {
				require.Len(t, alerts.texts, 1)
				assert.Contains(t, alerts.texts[0], "disk full")
			} else {
				assert.Empty(t, alerts.texts)
			}
		})
	}
}

func TestSummaryTask_AlertsOnFailure(t *testing.T) {
	p := &fakeProcessor{summaryErr: errors.New("smtp down")}
	s, alerts := newTestScheduler(p)

	s.summaryTask()
	assert.Equal(t, 1, p.summaries)
	require.Len(t, alerts.texts, 1)
	assert.Contains(t, alerts.texts[0], "smtp down")
}

func TestHandleCommand(t *testing.T) {
	p := &fakeProcessor{}
	s, _ := newTestScheduler(p)
	ctx := context.Background()

	assert.Equal(t, notifier.NoSummary, s.HandleCommand(ctx, "/summary"))

	p.digest = &model.Digest{NewsletterID: "20261016", Summary: "Key Levels:\n5700"}
	assert.Contains(t, s.HandleCommand(ctx, "/summary"), "20261016")

	assert.Equal(t, "Processed newsletter 20261016 with 4 key levels.", s.HandleCommand(ctx, "/process"))

	p.processErr = pipeline.ErrAlreadyProcessed
	assert.Equal(t, "Nothing new to process.", s.HandleCommand(ctx, "/process"))

	assert.Contains(t, s.HandleCommand(ctx, "/help"), "/summary")
}
