package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"NewsletterDigest/internal/collector"
	"NewsletterDigest/internal/model"
	"NewsletterDigest/internal/notifier"
	"NewsletterDigest/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Processor is the pipeline surface the scheduled tasks drive.
type Processor interface {
	ProcessLatest(ctx context.Context) (*pipeline.Result, error)
	SendSummary(ctx context.Context) error
	LatestDigest(ctx context.Context) (*model.Digest, error)
}

// Alerter receives short failure notices. Optional.
type Alerter interface {
	SendText(ctx context.Context, text string) error
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Processor Processor
	Alerts    Alerter
	Ctx       context.Context

	logger  arbor.ILogger
	running sync.Mutex
}

// NewScheduler creates a Scheduler whose cron expressions (with a leading
// seconds field) are evaluated in loc.
func NewScheduler(ctx context.Context, proc Processor, loc *time.Location, logger arbor.ILogger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Processor: proc,
		Ctx:       ctx,
		logger:    logger,
	}
}

// RegisterAll registers the newsletter processing and summary delivery tasks.
func (s *Scheduler) RegisterAll(processCron, summaryCron string) error {
	skip := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger))
	if _, err := s.Cron.AddJob(processCron, skip.Then(cron.FuncJob(s.processTask))); err != nil {
		return fmt.Errorf("register process task: %w", err)
	}
	if _, err := s.Cron.AddJob(summaryCron, skip.Then(cron.FuncJob(s.summaryTask))); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("tasks", len(s.Cron.Entries())).Msg("Scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunProcessNow executes the processing task immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunProcessNow() {
	s.processTask()
}

func (s *Scheduler) processTask() {
	if _, err := s.process(); err != nil {
		s.alert("Newsletter processing failed: " + err.Error())
	}
}

// process runs one processing pass. Finding nothing new is not a failure.
func (s *Scheduler) process() (*pipeline.Result, error) {
	if !s.running.TryLock() {
		s.logger.Warn().Msg("Processing already running, skipping")
		return nil, nil
	}
	defer s.running.Unlock()

	s.logger.Info().Msg("Running process task")
	res, err := s.Processor.ProcessLatest(s.Ctx)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyProcessed):
		s.logger.Info().Msg("Latest newsletter already processed")
		return nil, nil
	case errors.Is(err, collector.ErrNoMessage):
		s.logger.Info().Msg("No newsletter available")
		return nil, nil
	case err != nil:
		s.logger.Error().Err(err).Msg("Process task failed")
		return nil, err
	}
	return res, nil
}

func (s *Scheduler) summaryTask() {
	s.logger.Info().Msg("Running summary task")
	if err := s.Processor.SendSummary(s.Ctx); err != nil {
		s.logger.Error().Err(err).Msg("Summary task failed")
		s.alert("Summary delivery failed: " + err.Error())
	}
}

// HandleCommand processes a chat command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/summary":
		d, err := s.Processor.LatestDigest(ctx)
		if err != nil {
			return notifier.NoSummary
		}
		return notifier.FormatTelegram(d)
	case "/process":
		res, err := s.process()
		if err != nil {
			return "Processing failed: " + err.Error()
		}
		if res == nil {
			return "Nothing new to process."
		}
		return fmt.Sprintf("Processed newsletter %s with %d key levels.", res.NewsletterID, len(res.Parsed.KeyLevels))
	default:
		return "Available commands:\n/summary - latest digest\n/process - process the latest newsletter now"
	}
}

func (s *Scheduler) alert(text string) {
	if s.Alerts == nil {
		return
	}
	if err := s.Alerts.SendText(s.Ctx, text); err != nil {
		s.logger.Error().Err(err).Msg("Failed to send alert")
	}
}
