package call

import "math"

// smoothingWindow is the number of trailing confidence values averaged per
// speaker. At the one-second analysis cadence this yields an effective
// five-second smoothing window.
const smoothingWindow = 5

// smoother keeps a bounded ring of the last few intent-confidence values per
// speaker. Older values are discarded on insert, so memory per speaker is
// constant for the life of the session.
type smoother struct {
	history map[Speaker][]float64
}

func newSmoother() *smoother {
	return &smoother{history: make(map[Speaker][]float64)}
}

// update appends confidence to the speaker's history and returns the mean of
// the retained values, rounded to two decimal places.
func (s *smoother) update(speaker Speaker, confidence float64) float64 {
	h := append(s.history[speaker], confidence)
	if len(h) > smoothingWindow {
		h = h[len(h)-smoothingWindow:]
	}
	s.history[speaker] = h

	var sum float64
	for _, v := range h {
		sum += v
	}
	return math.Round(sum/float64(len(h))*100) / 100
}
