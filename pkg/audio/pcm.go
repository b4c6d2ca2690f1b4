// Package audio provides helpers for the 16 kHz mono 16-bit PCM audio the
// analysis pipeline consumes: decoding little-endian int16 bytes into
// normalised float samples, energy measurement, and WAV encoding for
// persisted call segments.
package audio

import "math"

// SampleRate is the fixed sample rate of all audio handled by the pipeline,
// in Hz. Clients are responsible for resampling before upload.
const SampleRate = 16000

// DecodePCM16 converts little-endian 16-bit signed PCM bytes into float
// samples in [-1, 1]. A trailing odd byte is ignored rather than treated as
// an error; upstream framing occasionally truncates the final sample.
func DecodePCM16(data []byte) []float64 {
	n := len(data) / 2
	samples := make([]float64, n)
	for i := range n {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float64(s) / 32768.0
	}
	return samples
}

// EncodePCM16 converts float samples in [-1, 1] back to little-endian 16-bit
// signed PCM bytes. Samples outside the valid range are clamped.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := f * 32768.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// RMS returns the root-mean-square energy of the samples. An empty slice has
// zero energy.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
