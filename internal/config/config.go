package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	SourceIMAP = "imap"
	SourceFile = "file"
)

// Config holds all application configuration.
type Config struct {
	Mail struct {
		Source string `yaml:"source" validate:"oneof=imap file"`
		File   string `yaml:"file" validate:"required_if=Source file"`
	} `yaml:"mail"`
	IMAP struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port" validate:"gt=0,lte=65535"`
		Username       string `yaml:"username"`
		Password       string `yaml:"password"`
		DisableTLS     bool   `yaml:"disable_tls"`
		Mailbox        string `yaml:"mailbox"`
		Sender         string `yaml:"sender" validate:"omitempty,email"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
	} `yaml:"imap"`
	SMTP struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port" validate:"gt=0,lte=65535"`
		Username   string `yaml:"username"`
		Password   string `yaml:"password"`
		DisableTLS bool   `yaml:"disable_tls"`
		From       string `yaml:"from" validate:"omitempty,email"`
		FromName   string `yaml:"from_name"`
	} `yaml:"smtp"`
	Recipients struct {
		To  string   `yaml:"to" validate:"omitempty,email"`
		Bcc []string `yaml:"bcc" validate:"dive,email"`
	} `yaml:"recipients"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Schedule struct {
		ProcessCron string `yaml:"process_cron"`
		SummaryCron string `yaml:"summary_cron"`
		Timezone    string `yaml:"timezone"`
	} `yaml:"schedule"`
	Levels struct {
		MarkerTolerance   float64 `yaml:"marker_tolerance" validate:"gt=0"`
		MergeTolerance    float64 `yaml:"merge_tolerance" validate:"gt=0"`
		DemotedMarkerType string  `yaml:"demoted_marker_type"`
	} `yaml:"levels"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"MAIL_SOURCE":             &c.Mail.Source,
		"MAIL_FILE":               &c.Mail.File,
		"IMAP_HOST":               &c.IMAP.Host,
		"IMAP_USERNAME":           &c.IMAP.Username,
		"IMAP_PASSWORD":           &c.IMAP.Password,
		"NEWSLETTER_SENDER_EMAIL": &c.IMAP.Sender,
		"SMTP_HOST":               &c.SMTP.Host,
		"SMTP_USERNAME":           &c.SMTP.Username,
		"SMTP_PASSWORD":           &c.SMTP.Password,
		"SMTP_FROM":               &c.SMTP.From,
		"RECIPIENT_EMAIL":         &c.Recipients.To,
		"TELEGRAM_BOT_TOKEN":      &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":        &c.Telegram.ChatID,
		"SQLITE_PATH":             &c.Database.SQLitePath,
		"CRON_PROCESS":            &c.Schedule.ProcessCron,
		"CRON_SUMMARY":            &c.Schedule.SummaryCron,
		"LOG_LEVEL":               &c.Log.Level,
		"HTTPS_PROXY":             &c.Proxy,
	}
	for key, field := range overrides {
		if v := os.Getenv(key); v != "" {
			*field = v
		}
	}

	if v := os.Getenv("RECIPIENT_BCC"); v != "" {
		c.Recipients.Bcc = nil
		for _, addr := range strings.Split(v, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				c.Recipients.Bcc = append(c.Recipients.Bcc, addr)
			}
		}
	}
	if v := os.Getenv("IMAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.IMAP.Port = port
		}
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Mail.Source == "" {
		c.Mail.Source = SourceIMAP
	}
	if c.IMAP.Port == 0 {
		c.IMAP.Port = 993
	}
	if c.IMAP.Mailbox == "" {
		c.IMAP.Mailbox = "INBOX"
	}
	if c.IMAP.TimeoutSeconds == 0 {
		c.IMAP.TimeoutSeconds = 30
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.FromName == "" {
		c.SMTP.FromName = "Newsletter Digest"
	}
	if c.Schedule.ProcessCron == "" {
		c.Schedule.ProcessCron = "0 30 17 * * 1-5"
	}
	if c.Schedule.SummaryCron == "" {
		c.Schedule.SummaryCron = "0 0 18 * * 1-5"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Levels.MarkerTolerance == 0 {
		c.Levels.MarkerTolerance = 3
	}
	if c.Levels.MergeTolerance == 0 {
		c.Levels.MergeTolerance = 3
	}
	if c.Levels.DemotedMarkerType == "" {
		c.Levels.DemotedMarkerType = "Skyline"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/newsletter_digest.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks field formats, cron expressions and the timezone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.ProcessCron); err != nil {
		return fmt.Errorf("schedule.process_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.SummaryCron); err != nil {
		return fmt.Errorf("schedule.summary_cron: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// RequireMailSource checks the settings needed to fetch newsletters.
func (c *Config) RequireMailSource() error {
	switch c.Mail.Source {
	case SourceFile:
		if c.Mail.File == "" {
			return errors.New("mail.file is required when mail.source is file")
		}
	case SourceIMAP:
		if c.IMAP.Host == "" || c.IMAP.Username == "" || c.IMAP.Password == "" {
			return errors.New("imap.host, imap.username and imap.password are required")
		}
		if c.IMAP.Sender == "" {
			return errors.New("imap.sender is required")
		}
	}
	return nil
}

// RequireMailer checks the settings needed to send the summary email.
func (c *Config) RequireMailer() error {
	if c.SMTP.Host == "" || c.SMTP.From == "" {
		return errors.New("smtp.host and smtp.from are required")
	}
	if c.Recipients.To == "" {
		return errors.New("recipients.to is required")
	}
	return nil
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IMAPTimeout returns the IMAP command timeout.
func (c *Config) IMAPTimeout() time.Duration {
	return time.Duration(c.IMAP.TimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether digests should also go to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
