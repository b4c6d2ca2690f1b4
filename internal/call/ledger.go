package call

// Segment is one ledger entry: a received chunk and where its audio was
// stored. File carries the storage reference returned by the segment store.
type Segment struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Speaker     Speaker `json:"speaker"`
	File        string  `json:"file"`
}

// ledger is the append-only per-speaker record of stored segments. Entries
// are never removed or reordered; they define the end-of-call report.
type ledger struct {
	bySpeaker map[Speaker][]Segment
}

func newLedger() *ledger {
	return &ledger{bySpeaker: make(map[Speaker][]Segment)}
}

// record appends one entry in receipt order.
func (l *ledger) record(speaker Speaker, timestampMs int64, storageRef string) {
	l.bySpeaker[speaker] = append(l.bySpeaker[speaker], Segment{
		TimestampMs: timestampMs,
		Speaker:     speaker,
		File:        storageRef,
	})
}

// segments returns every entry in report order: speaker-major (caller block
// then user block), each block in receipt order. The returned slice is a
// copy; mutating it does not affect the ledger.
func (l *ledger) segments() []Segment {
	var out []Segment
	for _, sp := range Speakers() {
		out = append(out, l.bySpeaker[sp]...)
	}
	return out
}
