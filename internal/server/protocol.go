package server

import "github.com/Plasmow/VoiceScamShield/internal/call"

// inboundMessage is the envelope for every client message. Fields beyond
// Type are populated only for chunk messages; absent fields decode to their
// zero values.
type inboundMessage struct {
	Type        string `json:"type"`
	Speaker     string `json:"speaker,omitempty"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`

	// AudioChunk is base64-encoded little-endian 16-bit PCM, 16 kHz mono.
	AudioChunk string `json:"audio_chunk,omitempty"`
}

// Report lists every stored segment of a call, caller block first, each
// block in receipt order.
type Report struct {
	CallID   string         `json:"call_id"`
	Segments []call.Segment `json:"segments"`
}

// reportEvent is sent once per end_call message.
type reportEvent struct {
	Type   string `json:"type"`
	Report Report `json:"report"`
}

// errorEvent signals a protocol-level problem. It is non-fatal: the session
// stays open and subsequent messages are processed normally.
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newReportEvent(callID string, segments []call.Segment) reportEvent {
	if segments == nil {
		segments = []call.Segment{}
	}
	return reportEvent{Type: "report", Report: Report{CallID: callID, Segments: segments}}
}

func newErrorEvent(message string) errorEvent {
	return errorEvent{Type: "error", Message: message}
}
