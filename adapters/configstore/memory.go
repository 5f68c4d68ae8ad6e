package configstore

import (
	"context"
	"sync"

	"github.com/satriahrh/hal-voice/domain"
)

var _ domain.ConfigStore = (*MemoryStore)(nil)

// MemoryStore holds the configuration for the life of the process only.
type MemoryStore struct {
	mu  sync.RWMutex
	cfg domain.Configuration
}

func NewMemoryStore(cfg domain.Configuration) *MemoryStore {
	return &MemoryStore{cfg: cfg}
}

func (s *MemoryStore) Load(ctx context.Context) (domain.Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

func (s *MemoryStore) Save(ctx context.Context, cfg domain.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}
