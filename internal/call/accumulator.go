package call

// MinSamplesToAnalyze is the per-speaker readiness threshold: one second of
// audio at 16 kHz. A window is analyzed once the pending sample count reaches
// this value; the chunk that crosses the threshold is included whole, so
// windows are variable-length (>= threshold), never split mid-chunk.
const MinSamplesToAnalyze = 16000

// accumulator buffers decoded sample chunks for one speaker until a window
// is ready. Chunks are kept separate until drain to avoid re-allocating the
// concatenation on every append.
type accumulator struct {
	chunks  [][]float64
	samples int
}

// append adds one decoded chunk and reports whether the pending sample count
// has reached the readiness threshold.
func (a *accumulator) append(samples []float64) (ready bool) {
	if len(samples) == 0 {
		return a.samples >= MinSamplesToAnalyze
	}
	a.chunks = append(a.chunks, samples)
	a.samples += len(samples)
	return a.samples >= MinSamplesToAnalyze
}

// drain concatenates all pending chunks in receipt order and resets the
// buffer. It returns nil when nothing is pending.
func (a *accumulator) drain() []float64 {
	if a.samples == 0 {
		return nil
	}
	window := make([]float64, 0, a.samples)
	for _, c := range a.chunks {
		window = append(window, c...)
	}
	a.chunks = nil
	a.samples = 0
	return window
}
