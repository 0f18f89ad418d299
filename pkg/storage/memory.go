package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// Memory is an in-process backend. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[gitoid.GitOid]memoryEntry
}

type memoryEntry struct {
	manifest []byte
	storedAt time.Time
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[gitoid.GitOid]memoryEntry)}
}

// Put stores a copy of manifest.
func (m *Memory) Put(ctx context.Context, target gitoid.GitOid, manifest []byte) error {
	if err := ctx.Err(); err != nil {
		return &Error{Backend: "memory", Op: "put", Target: target, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[target] = memoryEntry{
		manifest: append([]byte(nil), manifest...),
		storedAt: time.Now(),
	}
	return nil
}

// Get returns a copy of the stored manifest.
func (m *Memory) Get(ctx context.Context, target gitoid.GitOid) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &Error{Backend: "memory", Op: "get", Target: target, Err: err}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[target]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.manifest...), true, nil
}

// List returns every stored target ordered by id.
func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Backend: "memory", Op: "list", Err: err}
	}

	m.mu.RLock()
	entries := make([]Entry, 0, len(m.entries))
	for target, entry := range m.entries {
		entries = append(entries, Entry{Target: target, StoredAt: entry.storedAt})
	}
	m.mu.RUnlock()

	sortEntries(entries)
	return entries, nil
}

// Len returns the number of stored manifests.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
