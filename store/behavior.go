package store

import (
	"context"
	"sync"

	"github.com/rushteam/bookrec/core"
)

// MemoryBehaviorStore 是内存实现的 BehaviorStore，用于测试/开发。
// 生产环境可替换为 feast.BehaviorStore（在线特征）。
type MemoryBehaviorStore struct {
	mu        sync.RWMutex
	behaviors map[string]*core.UserBehavior
}

func NewMemoryBehaviorStore() *MemoryBehaviorStore {
	return &MemoryBehaviorStore{
		behaviors: make(map[string]*core.UserBehavior),
	}
}

var _ core.BehaviorStore = (*MemoryBehaviorStore)(nil)

func (s *MemoryBehaviorStore) Get(ctx context.Context, userID string) (*core.UserBehavior, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.behaviors[userID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "behavior not found: "+userID)
	}
	return b, nil
}

func (s *MemoryBehaviorStore) Put(ctx context.Context, b *core.UserBehavior) error {
	if b == nil || b.UserID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "behavior: user id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[b.UserID] = b
	return nil
}
