package audio

import "encoding/binary"

// wavHeaderSize is the size in bytes of the canonical 44-byte RIFF/WAVE
// header for uncompressed PCM.
const wavHeaderSize = 44

// WAVFromPCM16 wraps raw little-endian 16-bit mono PCM bytes in a RIFF/WAVE
// container at the given sample rate. The input bytes are copied, not aliased.
func WAVFromPCM16(pcm []byte, sampleRate int) []byte {
	const (
		channels       = 1
		bitsPerSample  = 16
		bytesPerSample = bitsPerSample / 8
	)
	dataLen := len(pcm)
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample

	buf := make([]byte, wavHeaderSize+dataLen)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[wavHeaderSize:], pcm)

	return buf
}

// EncodeWAV converts float samples to a mono 16-bit WAV file at the given
// sample rate. Convenience wrapper over [EncodePCM16] and [WAVFromPCM16].
func EncodeWAV(samples []float64, sampleRate int) []byte {
	return WAVFromPCM16(EncodePCM16(samples), sampleRate)
}
