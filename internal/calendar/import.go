package calendar

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"NewsletterDigest/internal/model"

	"github.com/ternarybob/arbor"
)

var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006", "1/2/06"}

// Store is the part of the recorder the importer writes to.
type Store interface {
	AddEvents(ctx context.Context, events []model.CalendarEvent) error
}

// Load reads events from CSV with a "date,time,event" header. Blank rows are
// skipped; any other malformed row fails the load.
func Load(r io.Reader) ([]model.CalendarEvent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("calendar file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{"date": -1, "time": -1, "event": -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := cols[h]; ok {
			cols[h] = i
		}
	}
	if cols["date"] < 0 || cols["event"] < 0 {
		return nil, fmt.Errorf("header %q needs date and event columns", strings.Join(header, ","))
	}

	var out []model.CalendarEvent
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(name string) string {
			if i := cols[name]; i >= 0 && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if get("date") == "" && get("event") == "" {
			continue
		}

		date, err := parseDate(get("date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		event := get("event")
		if event == "" {
			return nil, fmt.Errorf("line %d: missing event", line)
		}
		out = append(out, model.CalendarEvent{Date: date, Time: get("time"), Event: event})
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

// Importer appends events from a CSV file to the stored calendar.
type Importer struct {
	store  Store
	logger arbor.ILogger
}

func NewImporter(store Store, logger arbor.ILogger) *Importer {
	return &Importer{store: store, logger: logger}
}

func (i *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open calendar file: %w", err)
	}
	defer fh.Close()

	events, err := Load(fh)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	if err := i.store.AddEvents(ctx, events); err != nil {
		return 0, err
	}
	i.logger.Info().Str("file", path).Int("events", len(events)).Msg("Calendar events imported")
	return len(events), nil
}
