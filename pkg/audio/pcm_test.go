package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	t.Run("known values", func(t *testing.T) {
		data := []byte{
			0x00, 0x00, // 0
			0xFF, 0x7F, // 32767
			0x00, 0x80, // -32768
		}
		samples := DecodePCM16(data)
		if len(samples) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(samples))
		}
		if samples[0] != 0 {
			t.Errorf("expected 0, got %f", samples[0])
		}
		if got := samples[1]; math.Abs(got-32767.0/32768.0) > 1e-9 {
			t.Errorf("expected ~1, got %f", got)
		}
		if samples[2] != -1 {
			t.Errorf("expected -1, got %f", samples[2])
		}
	})

	t.Run("trailing odd byte ignored", func(t *testing.T) {
		samples := DecodePCM16([]byte{0x00, 0x00, 0x42})
		if len(samples) != 1 {
			t.Fatalf("expected 1 sample, got %d", len(samples))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := DecodePCM16(nil); len(got) != 0 {
			t.Errorf("expected no samples, got %d", len(got))
		}
	})
}

func TestEncodePCM16_Roundtrip(t *testing.T) {
	in := []float64{0, 0.5, -0.5, 0.999, -1}
	out := DecodePCM16(EncodePCM16(in))
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/32768.0 {
			t.Errorf("sample %d: expected ~%f, got %f", i, in[i], out[i])
		}
	}
}

func TestEncodePCM16_Clamps(t *testing.T) {
	out := EncodePCM16([]float64{2.0, -2.0})
	hi := int16(out[0]) | int16(out[1])<<8
	lo := int16(out[2]) | int16(out[3])<<8
	if hi != 32767 {
		t.Errorf("expected clamp to 32767, got %d", hi)
	}
	if lo != -32768 {
		t.Errorf("expected clamp to -32768, got %d", lo)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
	if got := RMS([]float64{0.5, 0.5, 0.5, 0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", got)
	}
	// Sign must not matter.
	if got := RMS([]float64{-0.5, 0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestWAVFromPCM16(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	wav := WAVFromPCM16(pcm, SampleRate)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE magic")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != SampleRate {
		t.Errorf("expected sample rate %d, got %d", SampleRate, rate)
	}
	if dataLen := binary.LittleEndian.Uint32(wav[40:44]); dataLen != uint32(len(pcm)) {
		t.Errorf("expected data length %d, got %d", len(pcm), dataLen)
	}
	if string(wav[44:]) != string(pcm) {
		t.Error("PCM payload mismatch")
	}
}
