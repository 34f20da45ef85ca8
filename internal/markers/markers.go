// Package markers loads the reference price markers that extracted levels are
// annotated with.
package markers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"NewsletterDigest/internal/model"

	"github.com/ternarybob/arbor"
)

var (
	priceColumns = []string{"price", "vdline", "level"}
	typeColumns  = []string{"type", "vdline_type", "category", "marker_type"}
)

// Store is the part of the recorder the importer writes to.
type Store interface {
	ReplaceMarkers(ctx context.Context, markers []model.MarkerRef) error
}

// Load reads markers from CSV. The header row must name a price column and a
// type column; blank rows are skipped. Any malformed row fails the whole load.
func Load(r io.Reader) ([]model.MarkerRef, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("marker file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	priceCol := columnIndex(header, priceColumns)
	typeCol := columnIndex(header, typeColumns)
	if priceCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("header %q needs a price column (%s) and a type column (%s)",
			strings.Join(header, ","), strings.Join(priceColumns, "/"), strings.Join(typeColumns, "/"))
	}

	var out []model.MarkerRef
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}
		if priceCol >= len(row) || typeCol >= len(row) {
			return nil, fmt.Errorf("line %d: expected at least %d columns", line, max(priceCol, typeCol)+1)
		}

		raw := strings.ReplaceAll(strings.TrimSpace(row[priceCol]), ",", "")
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q", line, row[priceCol])
		}
		markerType := strings.TrimSpace(row[typeCol])
		if markerType == "" {
			return nil, fmt.Errorf("line %d: missing marker type", line)
		}
		out = append(out, model.MarkerRef{Price: price, MarkerType: markerType})
	}
	return out, nil
}

// Importer replaces the stored marker set from a CSV file.
type Importer struct {
	store  Store
	logger arbor.ILogger
}

func NewImporter(store Store, logger arbor.ILogger) *Importer {
	return &Importer{store: store, logger: logger}
}

// ImportFile loads path and replaces every stored marker with its contents.
func (i *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	fh, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open marker file: %w", err)
	}
	defer fh.Close()

	markers, err := Load(fh)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	if err := i.store.ReplaceMarkers(ctx, markers); err != nil {
		return 0, err
	}
	i.logger.Info().Str("file", path).Int("markers", len(markers)).Msg("Markers imported")
	return len(markers), nil
}

func columnIndex(header, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
