// Package call holds the per-call session state: per-speaker audio
// accumulation, the segment ledger, rolling transcript text and intent-score
// smoothing. A Session is owned by exactly one connection handler and is
// mutated only from that handler's goroutine; only the Registry needs to be
// safe for concurrent use.
package call

import "fmt"

// Speaker identifies one of the two parties on a call.
type Speaker string

const (
	// SpeakerCaller is the remote party whose intent is being analyzed.
	SpeakerCaller Speaker = "caller"
	// SpeakerUser is the protected local party.
	SpeakerUser Speaker = "user"
)

// Speakers returns both valid speakers in report order (caller first).
func Speakers() []Speaker {
	return []Speaker{SpeakerCaller, SpeakerUser}
}

// ParseSpeaker validates a wire-level speaker value.
func ParseSpeaker(s string) (Speaker, error) {
	switch Speaker(s) {
	case SpeakerCaller:
		return SpeakerCaller, nil
	case SpeakerUser:
		return SpeakerUser, nil
	default:
		return "", fmt.Errorf("call: unknown speaker %q", s)
	}
}
