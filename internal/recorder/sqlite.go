package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"
)

const calendarDateLayout = "2006-01-02"

// SQLiteStore persists newsletters and reference data to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger arbor.ILogger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, logger arbor.ILogger) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Transactions and reads share a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("SQLite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS newsletters (
			newsletter_id TEXT PRIMARY KEY,
			subject       TEXT,
			raw_body      TEXT,
			cleaned_body  TEXT,
			received_date INTEGER NOT NULL,
			created_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_newsletters_received ON newsletters(received_date)`,

		`CREATE TABLE IF NOT EXISTS parsed_sections (
			newsletter_id   TEXT PRIMARY KEY,
			market_summary  TEXT,
			key_levels      TEXT,
			key_levels_raw  TEXT,
			trading_plan    TEXT,
			plan_summary    TEXT,
			summary         TEXT,
			timing_detail   TEXT,
			upcoming_events TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS key_levels (
			id               TEXT PRIMARY KEY,
			newsletter_id    TEXT NOT NULL,
			position         INTEGER NOT NULL,
			price_with_range TEXT,
			price            REAL NOT NULL,
			range_end        REAL NOT NULL DEFAULT 0,
			severity         TEXT,
			type             TEXT,
			note             TEXT,
			vdline           REAL,
			vdline_type      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_key_levels_newsletter ON key_levels(newsletter_id)`,

		`CREATE TABLE IF NOT EXISTS vdlines (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			vdline      REAL NOT NULL,
			vdline_type TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS market_calendar (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			date  TEXT NOT NULL,
			time  TEXT,
			event TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_calendar_date ON market_calendar(date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) NewsletterExists(ctx context.Context, newsletterID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM newsletters WHERE newsletter_id = ?`, newsletterID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check newsletter %s: %w", newsletterID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveNewsletter(ctx context.Context, rec *model.NewsletterRecord) error {
	if rec == nil || rec.Message == nil || rec.Parsed == nil {
		return errors.New("incomplete newsletter record")
	}
	levels := rec.Parsed.KeyLevels
	if levels == nil {
		levels = []model.PriceLevel{}
	}
	levelsJSON, err := json.Marshal(levels)
	if err != nil {
		return fmt.Errorf("marshal key levels: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	msg, p := rec.Message, rec.Parsed
	if _, err := tx.ExecContext(ctx, `INSERT INTO newsletters
		(newsletter_id, subject, raw_body, cleaned_body, received_date, created_at)
		VALUES (?,?,?,?,?,?)`,
		rec.NewsletterID, msg.Subject, msg.Body, p.CleanedBody,
		msg.ReceivedAt.Unix(), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert newsletter %s: %w", rec.NewsletterID, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO parsed_sections
		(newsletter_id, market_summary, key_levels, key_levels_raw, trading_plan,
		 plan_summary, summary, timing_detail, upcoming_events)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.NewsletterID, p.MarketSummary, string(levelsJSON), p.KeyLevelsRaw, p.TradingPlanText,
		p.PlanSummary, p.ComposedSummary, p.TimingDetail, rec.UpcomingEvents,
	); err != nil {
		return fmt.Errorf("insert parsed sections %s: %w", rec.NewsletterID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO key_levels
		(id, newsletter_id, position, price_with_range, price, range_end,
		 severity, type, note, vdline, vdline_type)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare key level insert: %w", err)
	}
	defer stmt.Close()

	for i, lvl := range levels {
		var vdline sql.NullFloat64
		var vdlineType sql.NullString
		if lvl.NearestMarker != nil {
			vdline = sql.NullFloat64{Float64: lvl.NearestMarker.Price, Valid: true}
			vdlineType = sql.NullString{String: lvl.NearestMarker.MarkerType, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), rec.NewsletterID, i, lvl.PriceDisplay, lvl.Price, lvl.RangeEnd,
			string(lvl.Severity), string(lvl.Category), lvl.Note, vdline, vdlineType,
		); err != nil {
			return fmt.Errorf("insert key level %s: %w", lvl.PriceDisplay, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit newsletter %s: %w", rec.NewsletterID, err)
	}
	s.logger.Debug().
		Str("newsletter_id", rec.NewsletterID).
		Int("levels", len(levels)).
		Msg("Newsletter saved")
	return nil
}

func (s *SQLiteStore) DeleteMostRecent(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT newsletter_id FROM newsletters
		ORDER BY received_date DESC, newsletter_id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find most recent newsletter: %w", err)
	}

	for _, table := range []string{"key_levels", "parsed_sections", "newsletters"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE newsletter_id = ?", id); err != nil {
			return "", fmt.Errorf("delete from %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete %s: %w", id, err)
	}
	s.logger.Info().Str("newsletter_id", id).Msg("Deleted most recent newsletter")
	return id, nil
}

func (s *SQLiteStore) LatestDigest(ctx context.Context) (*model.Digest, error) {
	d := &model.Digest{}
	err := s.db.QueryRowContext(ctx, `SELECT n.newsletter_id, n.subject,
		p.summary, p.timing_detail, p.upcoming_events
		FROM newsletters n JOIN parsed_sections p ON p.newsletter_id = n.newsletter_id
		ORDER BY n.received_date DESC, n.newsletter_id DESC LIMIT 1`).
		Scan(&d.NewsletterID, &d.Subject, &d.Summary, &d.TimingDetail, &d.UpcomingEvents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest digest: %w", err)
	}

	levels, err := s.keyLevels(ctx, d.NewsletterID)
	if err != nil {
		return nil, err
	}
	d.KeyLevels = levels
	return d, nil
}

func (s *SQLiteStore) keyLevels(ctx context.Context, newsletterID string) ([]model.PriceLevel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT price_with_range, price, range_end,
		severity, type, note, vdline, vdline_type
		FROM key_levels WHERE newsletter_id = ? ORDER BY position`, newsletterID)
	if err != nil {
		return nil, fmt.Errorf("query key levels %s: %w", newsletterID, err)
	}
	defer rows.Close()

	levels := []model.PriceLevel{}
	for rows.Next() {
		var (
			lvl        model.PriceLevel
			severity   string
			category   string
			vdline     sql.NullFloat64
			vdlineType sql.NullString
		)
		if err := rows.Scan(&lvl.PriceDisplay, &lvl.Price, &lvl.RangeEnd,
			&severity, &category, &lvl.Note, &vdline, &vdlineType); err != nil {
			return nil, fmt.Errorf("scan key level: %w", err)
		}
		lvl.Severity = model.Severity(severity)
		lvl.Category = model.Category(category)
		if vdline.Valid {
			lvl.NearestMarker = &model.MarkerRef{Price: vdline.Float64, MarkerType: vdlineType.String}
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

func (s *SQLiteStore) Markers(ctx context.Context) ([]model.MarkerRef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vdline, vdline_type FROM vdlines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var markers []model.MarkerRef
	for rows.Next() {
		var m model.MarkerRef
		if err := rows.Scan(&m.Price, &m.MarkerType); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

func (s *SQLiteStore) ReplaceMarkers(ctx context.Context, markers []model.MarkerRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vdlines`); err != nil {
		return fmt.Errorf("clear markers: %w", err)
	}
	for _, m := range markers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vdlines (vdline, vdline_type) VALUES (?,?)`, m.Price, m.MarkerType); err != nil {
			return fmt.Errorf("insert marker %v: %w", m.Price, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit markers: %w", err)
	}
	s.logger.Info().Int("markers", len(markers)).Msg("Reference markers replaced")
	return nil
}

func (s *SQLiteStore) EventsBetween(ctx context.Context, from, to time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, time, event FROM market_calendar
		WHERE date BETWEEN ? AND ? ORDER BY date, id`,
		from.Format(calendarDateLayout), to.Format(calendarDateLayout))
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		var (
			date string
			evt  model.CalendarEvent
		)
		if err := rows.Scan(&date, &evt.Time, &evt.Event); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		if evt.Date, err = time.Parse(calendarDateLayout, date); err != nil {
			return nil, fmt.Errorf("calendar date %q: %w", date, err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) AddEvents(ctx context.Context, events []model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, evt := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO market_calendar (date, time, event) VALUES (?,?,?)`,
			evt.Date.Format(calendarDateLayout), evt.Time, evt.Event); err != nil {
			return fmt.Errorf("insert calendar event %q: %w", evt.Event, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit calendar events: %w", err)
	}
	s.logger.Info().Int("events", len(events)).Msg("Calendar events added")
	return nil
}

func (s *SQLiteStore) Close() error {
	s.logger.Info().Msg("Closing SQLite store")
	return s.db.Close()
}
