package store

import (
	"context"
	"sync"

	"github.com/lumaview/ivs-lounge/backend/comments"
)

// Memory is a process-resident comment store. A thread is implicitly created
// (empty) on first access; nothing is ever deleted.
type Memory struct {
	mu      sync.RWMutex
	threads map[string][]comments.Comment
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{threads: make(map[string][]comments.Comment)}
}

func (m *Memory) Get(_ context.Context, channelID string) ([]comments.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq := m.threads[channelID]
	out := make([]comments.Comment, len(seq))
	copy(out, seq)
	return out, nil
}

func (m *Memory) Put(_ context.Context, channelID string, seq []comments.Comment) error {
	cp := make([]comments.Comment, len(seq))
	copy(cp, seq)
	m.mu.Lock()
	m.threads[channelID] = cp
	m.mu.Unlock()
	return nil
}

// Like implements Liker with an in-place increment.
func (m *Memory) Like(_ context.Context, channelID, commentID string) (comments.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := m.threads[channelID]
	for i := range seq {
		if seq[i].ID == commentID {
			seq[i].Likes++
			return seq[i], nil
		}
	}
	return comments.Comment{}, comments.ErrNotFound
}
