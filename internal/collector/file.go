package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"NewsletterDigest/internal/model"
)

// FileSource reads a newsletter saved to disk. Files ending in .eml are
// parsed as MIME messages; anything else is taken as the plain body, with
// the file name as subject and its modification time as received date.
type FileSource struct {
	Path string
}

func (f *FileSource) Name() string { return "file" }

func (f *FileSource) FetchLatest(ctx context.Context) (*model.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Path == "" {
		return nil, fmt.Errorf("newsletter file path not set")
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("open newsletter file: %w", err)
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(f.Path), ".eml") {
		return ReadMessage(fh)
	}

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat newsletter file: %w", err)
	}
	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, fmt.Errorf("read newsletter file: %w", err)
	}
	return &model.RawMessage{
		ReceivedAt: info.ModTime(),
		Subject:    strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)),
		Body:       string(data),
	}, nil
}
