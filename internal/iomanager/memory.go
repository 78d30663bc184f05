package iomanager

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/youtube-trending/internal/dataset"
)

type memoryEntry struct {
	ds   *dataset.Dataset
	meta dataset.Metadata
}

// MemoryStore keeps datasets in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string]memoryEntry)}
}

// PutDataset stores ds under key and partition, replacing any previous value.
func (s *MemoryStore) PutDataset(ctx context.Context, key, partition string, ds *dataset.Dataset, meta dataset.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts, ok := s.entries[key]
	if !ok {
		parts = make(map[string]memoryEntry)
		s.entries[key] = parts
	}
	parts[partition] = memoryEntry{ds: ds, meta: meta}
	return nil
}

// GetDataset returns the dataset stored under key and partition.
func (s *MemoryStore) GetDataset(ctx context.Context, key, partition string) (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parts := s.entries[key]
	if e, ok := parts[partition]; ok {
		return e.ds, nil
	}
	if partition != "" || len(parts) == 0 {
		return nil, fmt.Errorf("GetDataset: %s [%s]: %w", key, partition, ErrDatasetNotFound)
	}

	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	all := make([]*dataset.Dataset, len(keys))
	for i, k := range keys {
		all[i] = parts[k].ds
	}
	return all[0].Concat(all[1:]...), nil
}

// Metadata returns the metadata stored with a dataset.
func (s *MemoryStore) Metadata(ctx context.Context, key, partition string) (dataset.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key][partition]
	if !ok {
		return dataset.Metadata{}, fmt.Errorf("Metadata: %s [%s]: %w", key, partition, ErrDatasetNotFound)
	}
	return e.meta, nil
}

// Partitions lists the stored partition keys of an asset in order.
func (s *MemoryStore) Partitions(key string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for p := range s.entries[key] {
		if p != "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
