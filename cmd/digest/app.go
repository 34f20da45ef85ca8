package main

import (
	"fmt"
	"os"

	"NewsletterDigest/internal/collector"
	"NewsletterDigest/internal/config"
	"NewsletterDigest/internal/digest"
	"NewsletterDigest/internal/logger"
	"NewsletterDigest/internal/notifier"
	"NewsletterDigest/internal/pipeline"
	"NewsletterDigest/internal/recorder"

	"github.com/ternarybob/arbor"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   arbor.ILogger
	store    recorder.Store
	proc     *pipeline.Processor
	telegram *notifier.TelegramNotifier
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.File)

	var store recorder.Store
	if dryRun || cfg.Database.SQLitePath == "" {
		log.Warn().Msg("Dry run: nothing will be stored")
		store = recorder.NewNoopStore()
	} else {
		s, err := recorder.NewSQLiteStore(cfg.Database.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		store = s
	}

	a := &app{cfg: cfg, logger: log, store: store}

	var channels []notifier.Notifier
	if err := cfg.RequireMailer(); err == nil {
		channels = append(channels, notifier.NewMailer(notifier.MailerConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			UseTLS:   !cfg.SMTP.DisableTLS,
			To:       cfg.Recipients.To,
			Bcc:      cfg.Recipients.Bcc,
		}, log))
	} else {
		log.Debug().Err(err).Msg("Summary email disabled")
	}
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		channels = append(channels, a.telegram)
	}

	engine := digest.NewEngine(digest.Options{
		MarkerTolerance:   cfg.Levels.MarkerTolerance,
		MergeTolerance:    cfg.Levels.MergeTolerance,
		DemotedMarkerType: cfg.Levels.DemotedMarkerType,
		Location:          cfg.Location(),
	}, log)
	col := collector.NewCollector(a.source(), log)
	a.proc = pipeline.NewProcessor(col, engine, store, cfg.Location(), log, channels...)
	return a, nil
}

func (a *app) source() collector.Source {
	if a.cfg.Mail.Source == config.SourceFile {
		return &collector.FileSource{Path: a.cfg.Mail.File}
	}
	return collector.NewIMAPSource(collector.IMAPConfig{
		Host:     a.cfg.IMAP.Host,
		Port:     a.cfg.IMAP.Port,
		Username: a.cfg.IMAP.Username,
		Password: a.cfg.IMAP.Password,
		UseTLS:   !a.cfg.IMAP.DisableTLS,
		Mailbox:  a.cfg.IMAP.Mailbox,
		Sender:   a.cfg.IMAP.Sender,
		Timeout:  a.cfg.IMAPTimeout(),
	}, a.logger)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close store")
	}
}
