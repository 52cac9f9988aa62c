package stats

import (
	"context"
	"sync"
)

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.RWMutex
	records []EpisodeRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(_ context.Context, rec EpisodeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (m *MemorySink) Records() []EpisodeRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EpisodeRecord, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemorySink) Close() error { return nil }
