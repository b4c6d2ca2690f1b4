// Package server exposes the per-call streaming session over a WebSocket
// endpoint. One connection handles one call: it reads protocol messages
// sequentially, feeds audio through the analysis pipeline and writes
// analysis, report and error events back on the same connection.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"github.com/Plasmow/VoiceScamShield/internal/analysis"
	"github.com/Plasmow/VoiceScamShield/internal/call"
	"github.com/Plasmow/VoiceScamShield/internal/observe"
	"github.com/Plasmow/VoiceScamShield/internal/storage"
	"github.com/Plasmow/VoiceScamShield/pkg/audio"
)

// ReportSaver persists the final segment report of a call. Implemented by
// the Postgres report store; nil disables persistence.
type ReportSaver interface {
	SaveReport(ctx context.Context, callID string, segments []call.Segment) error
}

// eventWriter abstracts the outbound side of the connection so the message
// dispatch logic can be tested without a live socket.
type eventWriter interface {
	writeEvent(ctx context.Context, v any) error
}

// connWriter writes events as JSON text frames on a WebSocket connection.
type connWriter struct {
	conn *websocket.Conn
}

func (w connWriter) writeEvent(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("server: marshal event: %w", err)
	}
	return w.conn.Write(ctx, websocket.MessageText, data)
}

// Server holds the shared state behind the WebSocket endpoint. All per-call
// state lives in the registry; Server itself is safe for concurrent use.
type Server struct {
	registry *call.Registry
	analyzer *analysis.Analyzer
	store    storage.SegmentStore
	reports  ReportSaver
	metrics  *observe.Metrics
}

// Option is a functional option for Server.
type Option func(*Server)

// WithReportSaver enables durable report persistence on end_call.
func WithReportSaver(rs ReportSaver) Option {
	return func(s *Server) {
		s.reports = rs
	}
}

// WithMetrics overrides the metrics instance, mainly for tests.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New constructs a Server around the given analyzer and segment store.
func New(analyzer *analysis.Analyzer, store storage.SegmentStore, opts ...Option) *Server {
	s := &Server{
		registry: call.NewRegistry(),
		analyzer: analyzer,
		store:    store,
		metrics:  observe.DefaultMetrics(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds the WebSocket and index routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/{call_id}", s.HandleSession)
	mux.HandleFunc("GET /{$}", handleIndex)
}

// ActiveCalls reports the number of live sessions.
func (s *Server) ActiveCalls() int {
	return s.registry.Len()
}

// HandleSession upgrades the request to a WebSocket and runs the session
// loop until the client disconnects. The call identifier comes from the
// route path; the session itself is created lazily on the first message so
// a connection that never sends anything leaves no state behind.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("call_id")
	if callID == "" {
		http.Error(w, "missing call id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "call_id", callID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "session aborted")

	ctx := r.Context()
	log := observe.Logger(ctx)
	log.Info("session connected", "call_id", callID)

	writer := connWriter{conn: conn}
	var sess *call.Session
	defer func() {
		if sess != nil {
			s.registry.Remove(callID)
			s.metrics.ActiveCalls.Add(ctx, -1)
		}
		log.Info("session closed", "call_id", callID)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Client disconnect. Buffered audio that was never flushed is
			// discarded here, not analyzed.
			return
		}
		if sess == nil {
			var created bool
			sess, created = s.registry.GetOrCreate(callID)
			if created {
				s.metrics.ActiveCalls.Add(ctx, 1)
			}
		}
		if err := s.dispatch(ctx, sess, data, writer); err != nil {
			log.Warn("session aborted", "call_id", callID, "error", err)
			return
		}
	}
}

// dispatch processes one inbound message. A returned error is fatal to the
// connection (write failure or cancellation); protocol-level problems are
// reported to the client as error events and keep the session open.
func (s *Server) dispatch(ctx context.Context, sess *call.Session, data []byte, w eventWriter) error {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.metrics.ProtocolErrors.Add(ctx, 1)
		return w.writeEvent(ctx, newErrorEvent("malformed message"))
	}

	switch msg.Type {
	case "chunk":
		return s.handleChunk(ctx, sess, msg, w)
	case "end_call":
		return s.handleEndCall(ctx, sess, w)
	default:
		s.metrics.ProtocolErrors.Add(ctx, 1)
		return w.writeEvent(ctx, newErrorEvent(fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// handleChunk records the segment, buffers the audio and, once the
// speaker's window is ready, runs the analysis pipeline and emits its
// event. Below-threshold chunks produce no event at all.
func (s *Server) handleChunk(ctx context.Context, sess *call.Session, msg inboundMessage, w eventWriter) error {
	speaker, err := call.ParseSpeaker(msg.Speaker)
	if err != nil {
		s.metrics.ProtocolErrors.Add(ctx, 1)
		return w.writeEvent(ctx, newErrorEvent(fmt.Sprintf("unknown speaker %q", msg.Speaker)))
	}

	pcm, err := base64.StdEncoding.DecodeString(msg.AudioChunk)
	if err != nil {
		s.metrics.ProtocolErrors.Add(ctx, 1)
		return w.writeEvent(ctx, newErrorEvent("invalid audio_chunk encoding"))
	}

	s.metrics.RecordChunk(ctx, string(speaker))

	// Every received chunk gets a ledger entry, even when the write fails:
	// the report counts what arrived, not what was persisted.
	ref, err := s.store.Save(ctx, sess.CallID, string(speaker), msg.TimestampMs, pcm)
	if err != nil {
		s.metrics.StorageErrors.Add(ctx, 1)
		observe.Logger(ctx).Warn("segment write failed",
			"call_id", sess.CallID, "speaker", speaker, "error", err)
	}
	sess.RecordSegment(speaker, msg.TimestampMs, ref)

	if ready := sess.Append(speaker, audio.DecodePCM16(pcm)); !ready {
		return nil
	}

	window := sess.Drain(speaker)
	event, err := s.analyzer.Analyze(ctx, sess, speaker, msg.TimestampMs, window)
	if err != nil {
		return fmt.Errorf("server: analyze: %w", err)
	}
	return w.writeEvent(ctx, event)
}

// handleEndCall flushes every speaker's remaining buffer through the
// analysis pipeline, below threshold or not, then emits the segment report.
// A repeated end_call finds every buffer empty and re-emits the same
// report, so the message is idempotent.
func (s *Server) handleEndCall(ctx context.Context, sess *call.Session, w eventWriter) error {
	windows := sess.FlushAll()
	for _, speaker := range call.Speakers() {
		window, ok := windows[speaker]
		if !ok {
			continue
		}
		event, err := s.analyzer.Analyze(ctx, sess, speaker, 0, window)
		if err != nil {
			return fmt.Errorf("server: analyze flush: %w", err)
		}
		if err := w.writeEvent(ctx, event); err != nil {
			return err
		}
	}

	segments := sess.Segments()
	if s.reports != nil && !sess.Reported {
		if err := s.reports.SaveReport(ctx, sess.CallID, segments); err != nil {
			s.metrics.StorageErrors.Add(ctx, 1)
			observe.Logger(ctx).Warn("report persistence failed",
				"call_id", sess.CallID, "error", err)
		}
	}
	sess.Reported = true
	return w.writeEvent(ctx, newReportEvent(sess.CallID, segments))
}
