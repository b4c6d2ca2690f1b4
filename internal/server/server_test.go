package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Plasmow/VoiceScamShield/internal/analysis"
	"github.com/Plasmow/VoiceScamShield/internal/call"
	"github.com/Plasmow/VoiceScamShield/internal/observe"
	"github.com/Plasmow/VoiceScamShield/internal/storage"
	"github.com/Plasmow/VoiceScamShield/pkg/audio"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/intent"
	intentmock "github.com/Plasmow/VoiceScamShield/pkg/provider/intent/mock"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/spoof"
	spoofmock "github.com/Plasmow/VoiceScamShield/pkg/provider/spoof/mock"
	"github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe"
	transcribemock "github.com/Plasmow/VoiceScamShield/pkg/provider/transcribe/mock"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// recordingWriter captures outbound events instead of writing them to a
// socket.
type recordingWriter struct {
	events []any
	failAt int // 1-based index of the write to fail; 0 disables
}

func (w *recordingWriter) writeEvent(_ context.Context, v any) error {
	if w.failAt > 0 && len(w.events)+1 == w.failAt {
		return errors.New("write failed")
	}
	w.events = append(w.events, v)
	return nil
}

func newTestServer(t *testing.T, store storage.SegmentStore, opts ...Option) *Server {
	t.Helper()
	m := testMetrics(t)
	tr := &transcribemock.Transcriber{
		Result: transcribe.Result{Text: "hello there", Language: "en"},
	}
	sp := &spoofmock.Classifier{
		Result: spoof.Result{Label: spoof.LabelGenuine, Confidence: 0.9},
	}
	in := &intentmock.Classifier{
		Result: intent.Result{Label: intent.LabelSafe, Confidence: 0.5, Rationale: "scripted"},
	}
	a := analysis.New(tr, sp, in, analysis.WithMetrics(m))
	opts = append([]Option{WithMetrics(m)}, opts...)
	return New(a, store, opts...)
}

func chunkMessage(t *testing.T, speaker string, timestampMs int64, samples []float64) []byte {
	t.Helper()
	msg := inboundMessage{
		Type:        "chunk",
		Speaker:     speaker,
		TimestampMs: timestampMs,
		AudioChunk:  base64.StdEncoding.EncodeToString(audio.EncodePCM16(samples)),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal chunk: %v", err)
	}
	return data
}

func endCallMessage() []byte {
	return []byte(`{"type":"end_call"}`)
}

func samplesAt(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestDispatchChunkBuffersUntilReady(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	// 10 chunks of 1600 samples cross the 16000-sample threshold exactly at
	// the tenth.
	for i := 0; i < 10; i++ {
		msg := chunkMessage(t, "caller", int64(i*100), samplesAt(1600, 0.5))
		if err := srv.dispatch(ctx, sess, msg, w); err != nil {
			t.Fatalf("dispatch chunk %d: %v", i, err)
		}
		if i < 9 && len(w.events) != 0 {
			t.Fatalf("chunk %d: unexpected event before threshold: %+v", i, w.events)
		}
	}

	if len(w.events) != 1 {
		t.Fatalf("expected exactly one analysis event, got %d", len(w.events))
	}
	event, ok := w.events[0].(analysis.Event)
	if !ok {
		t.Fatalf("expected analysis.Event, got %T", w.events[0])
	}
	if event.Type != "analysis" || event.Speaker != "caller" {
		t.Errorf("unexpected event header: %+v", event)
	}
	if event.TimestampMs != 900 {
		t.Errorf("expected triggering chunk's timestamp 900, got %d", event.TimestampMs)
	}
	if event.Text != "hello there" || event.Language != "en" {
		t.Errorf("unexpected transcript: %q %q", event.Text, event.Language)
	}
	if event.IntentConfidence != 0.5 {
		t.Errorf("expected smoothed confidence 0.5, got %v", event.IntentConfidence)
	}
}

func TestDispatchChunkAnalyzedWindowIsConcatenation(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	// Uneven chunk sizes; the third crosses the threshold so the window must
	// be all three concatenated, 17000 samples.
	for i, n := range []int{7000, 8000, 2000} {
		msg := chunkMessage(t, "user", int64(i), samplesAt(n, 0.25))
		if err := srv.dispatch(ctx, sess, msg, w); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	if len(w.events) != 1 {
		t.Fatalf("expected one event, got %d", len(w.events))
	}
	if drained := sess.Drain(call.SpeakerUser); drained != nil {
		t.Errorf("buffer not empty after analysis: %d samples", len(drained))
	}
}

func TestDispatchEndCallFlushesAndReports(t *testing.T) {
	store := storage.NewMemStore()
	srv := newTestServer(t, store)
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	// Interleave below-threshold chunks for both speakers.
	inputs := []struct {
		speaker string
		ts      int64
	}{
		{"user", 10},
		{"caller", 20},
		{"user", 30},
		{"caller", 40},
		{"user", 50},
	}
	for _, in := range inputs {
		msg := chunkMessage(t, in.speaker, in.ts, samplesAt(800, 0.25))
		if err := srv.dispatch(ctx, sess, msg, w); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
	}
	if len(w.events) != 0 {
		t.Fatalf("no analysis expected below threshold, got %d events", len(w.events))
	}

	if err := srv.dispatch(ctx, sess, endCallMessage(), w); err != nil {
		t.Fatalf("dispatch end_call: %v", err)
	}

	// One flush event per speaker (caller first), then the report.
	if len(w.events) != 3 {
		t.Fatalf("expected 2 analysis events + 1 report, got %d", len(w.events))
	}
	first, ok := w.events[0].(analysis.Event)
	if !ok || first.Speaker != "caller" {
		t.Errorf("expected caller flush first, got %+v", w.events[0])
	}
	second, ok := w.events[1].(analysis.Event)
	if !ok || second.Speaker != "user" {
		t.Errorf("expected user flush second, got %+v", w.events[1])
	}

	report, ok := w.events[2].(reportEvent)
	if !ok {
		t.Fatalf("expected reportEvent, got %T", w.events[2])
	}
	if report.Type != "report" || report.Report.CallID != "c1" {
		t.Errorf("unexpected report header: %+v", report)
	}
	want := []call.Segment{
		{TimestampMs: 20, Speaker: call.SpeakerCaller, File: "c1/caller_20.wav"},
		{TimestampMs: 40, Speaker: call.SpeakerCaller, File: "c1/caller_40.wav"},
		{TimestampMs: 10, Speaker: call.SpeakerUser, File: "c1/user_10.wav"},
		{TimestampMs: 30, Speaker: call.SpeakerUser, File: "c1/user_30.wav"},
		{TimestampMs: 50, Speaker: call.SpeakerUser, File: "c1/user_50.wav"},
	}
	if !reflect.DeepEqual(report.Report.Segments, want) {
		t.Errorf("segments mismatch:\n got %+v\nwant %+v", report.Report.Segments, want)
	}
	if store.Len() != 5 {
		t.Errorf("expected 5 stored segments, got %d", store.Len())
	}
}

func TestDispatchEndCallIdempotent(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	msg := chunkMessage(t, "caller", 5, samplesAt(800, 0.25))
	if err := srv.dispatch(ctx, sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := srv.dispatch(ctx, sess, endCallMessage(), w); err != nil {
		t.Fatalf("first end_call: %v", err)
	}
	firstReport := w.events[len(w.events)-1]

	w2 := &recordingWriter{}
	if err := srv.dispatch(ctx, sess, endCallMessage(), w2); err != nil {
		t.Fatalf("second end_call: %v", err)
	}
	// No buffered audio remains, so the only event is the same report again.
	if len(w2.events) != 1 {
		t.Fatalf("expected only the report on repeat end_call, got %d events", len(w2.events))
	}
	if !reflect.DeepEqual(w2.events[0], firstReport) {
		t.Errorf("repeated report differs:\n got %+v\nwant %+v", w2.events[0], firstReport)
	}
}

func TestDispatchEndCallEmptyCall(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	if err := srv.dispatch(context.Background(), sess, endCallMessage(), w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(w.events) != 1 {
		t.Fatalf("expected only a report, got %d events", len(w.events))
	}
	report := w.events[0].(reportEvent)
	if len(report.Report.Segments) != 0 {
		t.Errorf("expected empty segment list, got %+v", report.Report.Segments)
	}
	data, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	if want := `"segments":[]`; !strings.Contains(string(data), want) {
		t.Errorf("expected %s in %s", want, data)
	}
}

func TestDispatchUnknownTypeKeepsSessionOpen(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	if err := srv.dispatch(ctx, sess, []byte(`{"type":"mystery"}`), w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(w.events) != 1 {
		t.Fatalf("expected one error event, got %d", len(w.events))
	}
	errEvent, ok := w.events[0].(errorEvent)
	if !ok || errEvent.Type != "error" {
		t.Fatalf("expected errorEvent, got %+v", w.events[0])
	}
	if errEvent.Message != `unknown message type "mystery"` {
		t.Errorf("unexpected error message %q", errEvent.Message)
	}

	// The session must still process subsequent messages.
	msg := chunkMessage(t, "caller", 1, samplesAt(16000, 0.25))
	if err := srv.dispatch(ctx, sess, msg, w); err != nil {
		t.Fatalf("dispatch after error: %v", err)
	}
	if len(w.events) != 2 {
		t.Fatalf("expected analysis event after protocol error, got %d events", len(w.events))
	}
	if _, ok := w.events[1].(analysis.Event); !ok {
		t.Errorf("expected analysis.Event, got %T", w.events[1])
	}
}

func TestDispatchMalformedJSON(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	if err := srv.dispatch(context.Background(), sess, []byte("{not json"), w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	errEvent, ok := w.events[0].(errorEvent)
	if !ok || errEvent.Message != "malformed message" {
		t.Errorf("expected malformed message error, got %+v", w.events[0])
	}
}

func TestDispatchInvalidSpeaker(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	msg := []byte(`{"type":"chunk","speaker":"narrator","timestamp_ms":1,"audio_chunk":""}`)
	if err := srv.dispatch(context.Background(), sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	errEvent, ok := w.events[0].(errorEvent)
	if !ok || errEvent.Message != `unknown speaker "narrator"` {
		t.Errorf("expected speaker error, got %+v", w.events[0])
	}
	if got := len(sess.Segments()); got != 0 {
		t.Errorf("rejected chunk must not be ledgered, got %d segments", got)
	}
}

func TestDispatchInvalidBase64(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	msg := []byte(`{"type":"chunk","speaker":"caller","timestamp_ms":1,"audio_chunk":"%%%"}`)
	if err := srv.dispatch(context.Background(), sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	errEvent, ok := w.events[0].(errorEvent)
	if !ok || errEvent.Message != "invalid audio_chunk encoding" {
		t.Errorf("expected encoding error, got %+v", w.events[0])
	}
}

func TestDispatchStorageFailureStillLedgered(t *testing.T) {
	store := storage.NewMemStore()
	store.FailWith = errors.New("disk full")
	srv := newTestServer(t, store)
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	msg := chunkMessage(t, "caller", 7, samplesAt(800, 0.25))
	if err := srv.dispatch(ctx, sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	// Storage failure is not surfaced to the client.
	if len(w.events) != 0 {
		t.Fatalf("unexpected events: %+v", w.events)
	}

	segments := sess.Segments()
	if len(segments) != 1 {
		t.Fatalf("chunk must be ledgered despite storage failure, got %d segments", len(segments))
	}
	if segments[0].File != "" || segments[0].TimestampMs != 7 {
		t.Errorf("unexpected ledger entry: %+v", segments[0])
	}
}

// fakeReportSaver records SaveReport calls.
type fakeReportSaver struct {
	mu    sync.Mutex
	calls []Report
	err   error
}

func (f *fakeReportSaver) SaveReport(_ context.Context, callID string, segments []call.Segment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Report{CallID: callID, Segments: segments})
	return f.err
}

func TestDispatchReportSavedOnce(t *testing.T) {
	saver := &fakeReportSaver{}
	srv := newTestServer(t, storage.NewMemStore(), WithReportSaver(saver))
	sess := call.NewSession("c1")
	w := &recordingWriter{}
	ctx := context.Background()

	msg := chunkMessage(t, "user", 3, samplesAt(400, 0.25))
	if err := srv.dispatch(ctx, sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := srv.dispatch(ctx, sess, endCallMessage(), w); err != nil {
			t.Fatalf("end_call %d: %v", i, err)
		}
	}

	if len(saver.calls) != 1 {
		t.Fatalf("expected exactly one SaveReport call, got %d", len(saver.calls))
	}
	if saver.calls[0].CallID != "c1" || len(saver.calls[0].Segments) != 1 {
		t.Errorf("unexpected saved report: %+v", saver.calls[0])
	}
}

func TestDispatchReportSaverFailureNonFatal(t *testing.T) {
	saver := &fakeReportSaver{err: errors.New("db down")}
	srv := newTestServer(t, storage.NewMemStore(), WithReportSaver(saver))
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	if err := srv.dispatch(context.Background(), sess, endCallMessage(), w); err != nil {
		t.Fatalf("end_call must not fail on report persistence error: %v", err)
	}
	if _, ok := w.events[len(w.events)-1].(reportEvent); !ok {
		t.Errorf("report event still expected, got %+v", w.events)
	}
}

func TestDispatchWriteFailureIsFatal(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{failAt: 1}

	msg := chunkMessage(t, "caller", 1, samplesAt(16000, 0.25))
	if err := srv.dispatch(context.Background(), sess, msg, w); err == nil {
		t.Fatal("expected error when the event write fails")
	}
}

func TestDispatchTimestampEcho(t *testing.T) {
	srv := newTestServer(t, storage.NewMemStore())
	sess := call.NewSession("c1")
	w := &recordingWriter{}

	msg := chunkMessage(t, "user", 123456, samplesAt(16000, 0.25))
	if err := srv.dispatch(context.Background(), sess, msg, w); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	event := w.events[0].(analysis.Event)
	if event.TimestampMs != 123456 {
		t.Errorf("expected timestamp 123456, got %d", event.TimestampMs)
	}
}
