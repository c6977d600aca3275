package numbering

import (
	"context"
	"sync"
)

// MemorySequencer is a process-local Sequencer used by tests and dry runs.
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[Key]int64
}

// NewMemorySequencer returns an empty MemorySequencer.
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[Key]int64)}
}

func (m *MemorySequencer) Next(_ context.Context, key Key) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *MemorySequencer) Reseed(_ context.Context, key Key, floor int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if floor > m.counters[key] {
		m.counters[key] = floor
	}
	return nil
}

func (m *MemorySequencer) Current(_ context.Context, key Key) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key], nil
}

// Snapshot copies the counters.
func (m *MemorySequencer) Snapshot() map[Key]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Key]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// Restore replaces the counters with a previous Snapshot.
func (m *MemorySequencer) Restore(snap map[Key]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = make(map[Key]int64, len(snap))
	for k, v := range snap {
		m.counters[k] = v
	}
}
