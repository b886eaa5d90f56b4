package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/language"
	"github.com/weihan0529/global-meeting-scribe/internal/session"
	"github.com/weihan0529/global-meeting-scribe/internal/store"
	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
)

// maxFrameBytes bounds one WebSocket message. Binary audio frames dominate:
// a browser batching a few seconds of float32 PCM at 16 kHz stays well under
// this, while the websocket library's 32 KiB default would reject it.
const maxFrameBytes = 8 << 20

// command is the JSON control message clients send over the socket.
// Fields are a union across command types; unused ones stay empty.
type command struct {
	Type           string `json:"type"`
	Language       string `json:"language"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Title          string `json:"title"`
	RecordingID    string `json:"recording_id"`
}

// client is the per-connection state wrapped around one session: the meeting
// it persists into, the raw audio retained for retranslation, and the
// accumulated enrichment results snapshotted on end_meeting.
type client struct {
	conn *websocket.Conn
	sess *session.Session

	mu        sync.Mutex
	meetingID uuid.UUID

	// recorded holds every audio chunk of the live meeting so a later
	// retranslate command can re-run the pipeline over the full recording.
	// It grows for the lifetime of the connection and is only released when
	// the socket closes: float32 samples at 16 kHz cost about 230 MB per
	// hour of audio per connection.
	recorded      []audio.Chunk
	frags         []session.Fragment
	insights      []insight.Insight
	retranslating bool
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: s.cfg.AllowedOrigins}
	if len(opts.OriginPatterns) == 0 {
		opts.OriginPatterns = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.log.Error("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{conn: conn, sess: session.New(s.pipelineConfig(), s.col)}

	if s.metrics != nil {
		s.metrics.ActiveSessions.Add(ctx, 1)
		defer s.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	s.log.Info("websocket connected", "remote", r.RemoteAddr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = c.sess.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		s.writeEvents(ctx, c)
	}()

	s.readLoop(ctx, c)

	// Disconnect is silent: cancel the session, let any in-flight run
	// finish and have its events dropped, then close.
	cancel()
	wg.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.log.Info("websocket disconnected", "remote", r.RemoteAddr)
}

// writeEvents pumps session events onto the socket until the session's
// event channel closes, teeing enrichment results into the client snapshot.
func (s *Server) writeEvents(ctx context.Context, c *client) {
	for ev := range c.sess.Events() {
		if enriched, ok := ev.(session.EnrichedTranscriptsEvent); ok {
			c.absorb(enriched)
		}
		if err := wsjson.Write(ctx, c.conn, ev); err != nil {
			s.log.Debug("event write failed", "error", err)
		}
	}
}

// absorb folds one slow-path result into the meeting snapshot. A
// retranslation run replaces the snapshot instead of appending: it covers
// the same audio the previous runs already contributed.
func (c *client) absorb(ev session.EnrichedTranscriptsEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.retranslating {
		c.frags = append([]session.Fragment(nil), ev.Fragments...)
		c.insights = append([]insight.Insight(nil), ev.Insights...)
		c.retranslating = false
		return
	}
	c.frags = append(c.frags, ev.Fragments...)
	c.insights = append(c.insights, ev.Insights...)
}

// readLoop drains the socket: binary frames are PCM audio, text frames are
// JSON commands. Returns when the connection drops or the client closes.
func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				s.log.Debug("websocket read ended", "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			chunk, err := audio.DecodeFloat32LE(data, audio.DefaultSampleRate)
			if err != nil {
				s.sendError(ctx, c, "malformed audio frame", err.Error())
				continue
			}
			c.sess.AppendAudio(chunk)
			c.mu.Lock()
			c.recorded = append(c.recorded, chunk)
			c.mu.Unlock()

		case websocket.MessageText:
			s.dispatch(ctx, c, data)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *client, raw []byte) {
	var cmd command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.sendError(ctx, c, "malformed command", err.Error())
		return
	}

	// A bare {"target_language": …} with no type switches the language too.
	if cmd.Type == "" && cmd.TargetLanguage != "" {
		cmd.Type = "target_language"
	}

	switch cmd.Type {
	case "target_language":
		name := cmd.Language
		if name == "" {
			name = cmd.TargetLanguage
		}
		// The session confirms with a language_changed event.
		c.sess.SetTargetLanguage(name)

	case "finalize":
		// Busy and empty-buffer cases are reported by the session itself.
		_ = c.sess.Finalize()

	case "start_meeting":
		s.startMeeting(ctx, c, cmd)

	case "update_meeting_title":
		s.updateMeetingTitle(ctx, c, cmd.Title)

	case "end_meeting":
		s.endMeeting(ctx, c)

	case "retranslate":
		s.retranslate(ctx, c, cmd)

	default:
		s.sendError(ctx, c, "unknown command type", cmd.Type)
	}
}

func (s *Server) startMeeting(ctx context.Context, c *client, cmd command) {
	if cmd.TargetLanguage != "" {
		c.sess.SetTargetLanguage(cmd.TargetLanguage)
	}
	var src string
	if cmd.SourceLanguage != "" {
		src = language.Code(cmd.SourceLanguage)
	}
	m, err := s.store.CreateMeeting(ctx, store.Meeting{
		Title:          cmd.Title,
		SourceLanguage: src,
		TargetLanguage: c.sess.TargetLanguage(),
	})
	if err != nil {
		s.log.Error("create meeting failed", "error", err)
		s.sendError(ctx, c, "could not start meeting", "")
		return
	}
	c.mu.Lock()
	c.meetingID = m.ID
	c.mu.Unlock()

	s.send(ctx, c, map[string]any{"type": "meeting_started", "data": m})
}

func (s *Server) updateMeetingTitle(ctx context.Context, c *client, title string) {
	c.mu.Lock()
	id := c.meetingID
	c.mu.Unlock()
	if id == uuid.Nil {
		s.sendError(ctx, c, "no active meeting", "send start_meeting first")
		return
	}

	if err := s.store.UpdateMeetingTitle(ctx, id, title); err != nil {
		s.log.Error("update meeting title failed", "meeting_id", id, "error", err)
		s.sendError(ctx, c, "could not update meeting title", "")
		return
	}
	s.send(ctx, c, map[string]any{"type": "meeting_updated", "title": title})
}

// endMeeting snapshots the accumulated enrichment results into a recording
// and closes the meeting.
func (s *Server) endMeeting(ctx context.Context, c *client) {
	c.mu.Lock()
	id := c.meetingID
	frags := append([]session.Fragment(nil), c.frags...)
	insights := append([]insight.Insight(nil), c.insights...)
	var duration float64
	for _, chunk := range c.recorded {
		duration += chunk.Seconds()
	}
	c.mu.Unlock()

	if id == uuid.Nil {
		s.sendError(ctx, c, "no active meeting", "send start_meeting first")
		return
	}

	rec, err := s.store.AddRecording(ctx, store.Recording{
		MeetingID:      id,
		Transcripts:    frags,
		Insights:       insights,
		TargetLanguage: c.sess.TargetLanguage(),
		Duration:       duration,
	})
	if err != nil {
		s.log.Error("save recording failed", "meeting_id", id, "error", err)
		s.sendError(ctx, c, "could not save recording", "")
		return
	}
	if err := s.store.EndMeeting(ctx, id); err != nil {
		s.log.Error("end meeting failed", "meeting_id", id, "error", err)
		s.sendError(ctx, c, "could not end meeting", "")
		return
	}

	c.mu.Lock()
	c.meetingID = uuid.Nil
	c.mu.Unlock()

	s.send(ctx, c, map[string]any{"type": "meeting_ended", "data": rec})
}

// retranslate switches a finished result to a new target language. With a
// recording_id the stored recording's fragments are re-routed through the
// translator and updated in place; without one the session re-runs the full
// pipeline over this connection's retained audio, reusing its speaker
// registry so labels stay stable.
func (s *Server) retranslate(ctx context.Context, c *client, cmd command) {
	target := cmd.TargetLanguage
	if target == "" {
		target = cmd.Language
	}

	if cmd.RecordingID != "" {
		s.retranslateStored(ctx, c, cmd.RecordingID, target)
		return
	}

	c.mu.Lock()
	recorded := append([]audio.Chunk(nil), c.recorded...)
	c.mu.Unlock()
	if len(recorded) == 0 {
		s.sendError(ctx, c, "no audio to retranslate", "")
		return
	}
	full, err := audio.Concat(recorded)
	if err != nil {
		s.sendError(ctx, c, "could not assemble recording", err.Error())
		return
	}

	c.mu.Lock()
	c.retranslating = true
	c.mu.Unlock()
	if err := c.sess.Retranslate(full, target); err != nil {
		// Busy rejection was already reported by the session.
		c.mu.Lock()
		c.retranslating = false
		c.mu.Unlock()
	}
}

func (s *Server) retranslateStored(ctx context.Context, c *client, rawID, targetName string) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.sendError(ctx, c, "invalid recording id", rawID)
		return
	}
	if s.col.Translator == nil {
		s.sendError(ctx, c, "translation is not configured", "")
		return
	}

	rec, err := s.store.GetRecording(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		s.sendError(ctx, c, "recording not found", rawID)
		return
	}
	if err != nil {
		s.log.Error("load recording failed", "recording_id", id, "error", err)
		s.sendError(ctx, c, "could not load recording", "")
		return
	}

	target := language.Code(targetName)
	s.send(ctx, c, session.ProcessingStartedEvent{})

	for i := range rec.Transcripts {
		frag := &rec.Transcripts[i]
		if strings.TrimSpace(frag.Text) == "" {
			continue
		}
		src := frag.Language
		if src == "" {
			src = language.Fallback
		}
		res := s.col.Translator.Translate(ctx, frag.Text, src, target)
		frag.Translation = res.Text
		frag.TranslationLanguage = res.Language
		frag.TranslationDegraded = res.Degraded
	}
	rec.TargetLanguage = target

	if err := s.store.UpdateRecording(ctx, rec); err != nil {
		s.log.Error("update recording failed", "recording_id", id, "error", err)
		s.sendError(ctx, c, "could not save retranslation", "")
		return
	}

	s.send(ctx, c, session.EnrichedTranscriptsEvent{
		Fragments: rec.Transcripts,
		Insights:  rec.Insights,
	})
}

func (s *Server) send(ctx context.Context, c *client, v any) {
	if err := wsjson.Write(ctx, c.conn, v); err != nil {
		s.log.Debug("message write failed", "error", err)
	}
}

func (s *Server) sendError(ctx context.Context, c *client, msg, details string) {
	s.send(ctx, c, session.ErrorEvent{Message: msg, Details: details})
}
