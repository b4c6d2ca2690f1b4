package call

// maxRollingTextRunes bounds the per-speaker rolling transcript. Only the
// trailing characters are kept, so scam phrases split across chunk
// boundaries still match while memory stays constant.
const maxRollingTextRunes = 500

// Session is the state for one call. It is created lazily on the first
// inbound message for a call id and mutated only by the connection handler
// owning that call, so none of its methods take locks.
type Session struct {
	CallID string

	accumulators map[Speaker]*accumulator
	rollingText  map[Speaker][]rune
	scores       *smoother
	ledger       *ledger

	// Reported is set once the first end-of-call report has been built, so
	// a repeated end_call yields the same report without a second flush.
	Reported bool
}

// NewSession creates an empty session for the given call id.
func NewSession(callID string) *Session {
	s := &Session{
		CallID:       callID,
		accumulators: make(map[Speaker]*accumulator),
		rollingText:  make(map[Speaker][]rune),
		scores:       newSmoother(),
		ledger:       newLedger(),
	}
	for _, sp := range Speakers() {
		s.accumulators[sp] = &accumulator{}
	}
	return s
}

// Append buffers a decoded chunk for the speaker and reports whether that
// speaker's window is ready for analysis.
func (s *Session) Append(speaker Speaker, samples []float64) (ready bool) {
	return s.accumulators[speaker].append(samples)
}

// Drain returns the speaker's pending window, concatenated in receipt order,
// and clears the buffer. It returns nil when nothing is pending.
func (s *Session) Drain(speaker Speaker) []float64 {
	return s.accumulators[speaker].drain()
}

// FlushAll drains every speaker regardless of threshold, in report order,
// skipping speakers with an empty buffer. Used at end of call.
func (s *Session) FlushAll() map[Speaker][]float64 {
	out := make(map[Speaker][]float64)
	for _, sp := range Speakers() {
		if window := s.accumulators[sp].drain(); len(window) > 0 {
			out[sp] = window
		}
	}
	return out
}

// AppendTranscript appends text to the speaker's rolling transcript and
// returns the retained tail. The tail is bounded by dropping the oldest
// characters, never by erroring.
func (s *Session) AppendTranscript(speaker Speaker, text string) string {
	if text != "" {
		tail := s.rollingText[speaker]
		if len(tail) > 0 {
			tail = append(tail, ' ')
		}
		tail = append(tail, []rune(text)...)
		if len(tail) > maxRollingTextRunes {
			tail = tail[len(tail)-maxRollingTextRunes:]
		}
		s.rollingText[speaker] = tail
	}
	return string(s.rollingText[speaker])
}

// RollingText returns the speaker's current rolling transcript tail.
func (s *Session) RollingText(speaker Speaker) string {
	return string(s.rollingText[speaker])
}

// SmoothScore records an intent confidence for the speaker and returns the
// trailing average, rounded to two decimals.
func (s *Session) SmoothScore(speaker Speaker, confidence float64) float64 {
	return s.scores.update(speaker, confidence)
}

// RecordSegment appends one ledger entry for a received chunk.
func (s *Session) RecordSegment(speaker Speaker, timestampMs int64, storageRef string) {
	s.ledger.record(speaker, timestampMs, storageRef)
}

// Segments returns every ledger entry in report order: caller block then
// user block, each in receipt order.
func (s *Session) Segments() []Segment {
	return s.ledger.segments()
}
