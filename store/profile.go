package store

import (
	"context"
	"sync"

	"github.com/rushteam/bookrec/core"
)

// MemoryProfileStore 是内存实现的 ProfileStore，用于测试/开发。
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*core.UserProfile
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*core.UserProfile),
	}
}

var _ core.ProfileStore = (*MemoryProfileStore)(nil)

func (s *MemoryProfileStore) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotFound, "profile not found: "+userID)
	}
	return p, nil
}

func (s *MemoryProfileStore) Save(ctx context.Context, profile *core.UserProfile) error {
	if profile == nil || profile.UserID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "profile: user id required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

// All 返回所有画像（协同过滤找邻居用）。
func (s *MemoryProfileStore) All(ctx context.Context) ([]*core.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}
