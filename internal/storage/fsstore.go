package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Plasmow/VoiceScamShield/pkg/audio"
)

// Compile-time interface assertion.
var _ SegmentStore = (*FSStore)(nil)

// FSStore writes each segment as a standalone WAV file under
// <dir>/<call_id>/<speaker>_<timestamp_ms>.wav. Call directories are created
// on first write.
type FSStore struct {
	dir string
}

// NewFSStore creates an FSStore rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *FSStore) Dir() string {
	return s.dir
}

// Save implements SegmentStore. The returned reference is the file path
// relative to the store root.
func (s *FSStore) Save(_ context.Context, callID, speaker string, timestampMs int64, pcm []byte) (string, error) {
	callDir := filepath.Join(s.dir, filepath.Base(callID))
	if err := os.MkdirAll(callDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create call dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.wav", speaker, timestampMs)
	path := filepath.Join(callDir, name)
	if err := os.WriteFile(path, audio.WAVFromPCM16(pcm, audio.SampleRate), 0o644); err != nil {
		return "", fmt.Errorf("storage: write segment: %w", err)
	}
	return filepath.Join(filepath.Base(callID), name), nil
}
