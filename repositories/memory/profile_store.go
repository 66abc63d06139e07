package memory

import (
	"context"
	"sync"

	"github.com/edulytics/portal/repositories"
)

// ProfileStore keeps profile state in process memory. State is lost on restart.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]map[string]string
	closed   bool
}

// NewProfileStore creates an empty in-memory profile store
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]map[string]string)}
}

var _ repositories.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) Get(_ context.Context, profileID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, repositories.ErrStoreClosed
	}
	v, ok := s.profiles[profileID][key]
	return v, ok, nil
}

func (s *ProfileStore) Set(ctx context.Context, profileID, key, value string) error {
	return s.SetMany(ctx, profileID, map[string]string{key: value})
}

func (s *ProfileStore) SetMany(_ context.Context, profileID string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}
	kv, ok := s.profiles[profileID]
	if !ok {
		kv = make(map[string]string, len(values))
		s.profiles[profileID] = kv
	}
	for k, v := range values {
		kv[k] = v
	}
	return nil
}

func (s *ProfileStore) Delete(_ context.Context, profileID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}
	kv, ok := s.profiles[profileID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(kv, k)
	}
	if len(kv) == 0 {
		delete(s.profiles, profileID)
	}
	return nil
}

func (s *ProfileStore) HealthCheck(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repositories.ErrStoreClosed
	}
	return nil
}

func (s *ProfileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
