// Package identity resolves the viewer's display name. Posting and liking
// comments require a username; the resolution happens once per session and
// the result is cached until explicitly changed.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store holds the viewer's username. An empty return from Username means
// the name has not been set yet.
type Store interface {
	Username() (string, error)
	SetUsername(name string) error
}

// ErrEmptyUsername is returned by SetUsername for blank names.
var ErrEmptyUsername = fmt.Errorf("username empty")

// Memory keeps the username in process memory.
type Memory struct {
	mu   sync.RWMutex
	name string
}

func (m *Memory) Username() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name, nil
}

func (m *Memory) SetUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyUsername
	}
	m.mu.Lock()
	m.name = name
	m.mu.Unlock()
	return nil
}

// File persists the username under the data directory so it survives
// restarts, mirroring how the viewer's browser remembers it.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile stores the username at dir/username.
func NewFile(dir string) *File {
	return &File{path: filepath.Join(dir, "username")}
}

func (f *File) Username() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read username: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (f *File) SetUsername(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyUsername
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(name+"\n"), 0o644); err != nil {
		return fmt.Errorf("write username: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace username: %w", err)
	}
	return nil
}

// Resolve returns the stored username, or stores and returns fallback when
// none is set. A blank fallback leaves the store untouched.
func Resolve(s Store, fallback string) (string, error) {
	name, err := s.Username()
	if err != nil {
		return "", err
	}
	if name != "" {
		return name, nil
	}
	fallback = strings.TrimSpace(fallback)
	if fallback == "" {
		return "", nil
	}
	if err := s.SetUsername(fallback); err != nil {
		return "", err
	}
	return fallback, nil
}
