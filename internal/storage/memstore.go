package storage

import (
	"context"
	"fmt"
	"sync"
)

// Compile-time interface assertion.
var _ SegmentStore = (*MemStore)(nil)

// MemStore keeps segments in memory. Intended for tests and for deployments
// that only want the report's segment accounting without raw-audio retention.
type MemStore struct {
	mu       sync.Mutex
	segments map[string][]byte

	// FailWith, if set, is returned from every Save call.
	FailWith error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{segments: make(map[string][]byte)}
}

// Save implements SegmentStore. The reference has the same shape as the
// filesystem store's relative path.
func (s *MemStore) Save(_ context.Context, callID, speaker string, timestampMs int64, pcm []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return "", s.FailWith
	}
	ref := fmt.Sprintf("%s/%s_%d.wav", callID, speaker, timestampMs)
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	s.segments[ref] = buf
	return ref, nil
}

// Get returns the stored bytes for ref.
func (s *MemStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.segments[ref]
	return b, ok
}

// Len returns the number of stored segments.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.segments)
}
