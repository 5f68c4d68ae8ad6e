package audio

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/hal-voice/domain"
)

const URLPrefix = "/api/v1/audio/"

var _ domain.AudioStore = (*MemoryStore)(nil)

// MemoryStore keeps the most recent artifacts and evicts the oldest once full.
type MemoryStore struct {
	capacity int

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryStore{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (s *MemoryStore) Put(ctx context.Context, turnID string, data []byte, contentType string) (domain.AudioArtifact, error) {
	id := uuid.New().String()
	artifact := domain.AudioArtifact{
		ID:          id,
		TurnID:      turnID,
		URL:         URLPrefix + id,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[id] = s.order.PushBack(artifact)
	for s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(domain.AudioArtifact).ID)
	}
	return artifact, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (domain.AudioArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[id]
	if !ok {
		return domain.AudioArtifact{}, domain.ErrArtifactNotFound
	}
	return el.Value.(domain.AudioArtifact), nil
}

// Len returns the number of artifacts currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
