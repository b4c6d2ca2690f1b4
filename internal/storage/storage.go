// Package storage persists per-chunk audio segments. The session pipeline
// only needs a write-and-reference contract; listing and retrieval are left
// to whatever consumes the stored files.
package storage

import "context"

// SegmentStore writes one received audio chunk and returns a reference
// usable in the end-of-call report.
type SegmentStore interface {
	// Save persists pcm (little-endian 16-bit mono PCM) for the given call,
	// speaker and chunk timestamp, returning a storage reference.
	Save(ctx context.Context, callID, speaker string, timestampMs int64, pcm []byte) (ref string, err error)
}
