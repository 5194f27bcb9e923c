package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lumaview/ivs-lounge/backend/comments"
)

// ErrBadChannelID rejects channel ids that would escape the store directory.
var ErrBadChannelID = errors.New("invalid channel id")

// File persists each channel's sequence as JSON under a data directory,
// keyed `comments-{channelId}.json`. It is the server-side analog of the
// browser-local storage binding.
type File struct {
	dir string
	mu  sync.Mutex // serializes the write-temp-then-rename dance
}

// NewFile creates the data directory if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create comment store dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(channelID string) (string, error) {
	if channelID == "" || strings.ContainsAny(channelID, `/\`) || strings.Contains(channelID, "..") {
		return "", fmt.Errorf("%w: %q", ErrBadChannelID, channelID)
	}
	return filepath.Join(f.dir, "comments-"+channelID+".json"), nil
}

func (f *File) Get(_ context.Context, channelID string) ([]comments.Comment, error) {
	p, err := f.path(channelID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []comments.Comment{}, nil
		}
		return nil, fmt.Errorf("read comments file: %w", err)
	}
	var seq []comments.Comment
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode comments file: %w", err)
	}
	return seq, nil
}

func (f *File) Put(_ context.Context, channelID string, seq []comments.Comment) error {
	p, err := f.path(channelID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(seq)
	if err != nil {
		return fmt.Errorf("encode comments: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp, err := os.CreateTemp(f.dir, "comments-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp comments file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write comments file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close comments file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replace comments file: %w", err)
	}
	return nil
}
