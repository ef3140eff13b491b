package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/maastricht-university/edmo-corpus/corpus"
)

// Memory keeps deep-copied snapshots in process memory. Contents live as
// long as the Memory value.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]*corpus.Snapshot
}

var _ corpus.Backend = (*Memory)(nil)

// shared backs the "mem" storage type for the whole process.
var shared = NewMemory()

func NewMemory() *Memory {
	return &Memory{snaps: map[string]*corpus.Snapshot{}}
}

// SharedMemory returns the process-wide Memory behind the "mem" storage type.
func SharedMemory() *Memory { return shared }

func (m *Memory) Type() corpus.StorageType { return corpus.StorageMem }

func (m *Memory) Dump(ctx context.Context, snap *corpus.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := corpus.ValidateID(snap.ID); err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	cp := snap.Clone()
	m.mu.Lock()
	m.snaps[snap.ID] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(ctx context.Context, id string) (*corpus.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	snap, ok := m.snaps[id]
	m.mu.RUnlock()
	if !ok {
		return nil, corpus.NotFound("load", id)
	}
	return snap.Clone(), nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[id]; !ok {
		return corpus.NotFound("delete", id)
	}
	delete(m.snaps, id)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	ids := make([]string, 0, len(m.snaps))
	for id := range m.snaps {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}
