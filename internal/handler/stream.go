package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
)

const (
	streamReadLimit  = 4096
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamWriteWait  = 10 * time.Second
)

// StreamMessage is written to the client for every sample it sends.
type StreamMessage struct {
	Type     string            `json:"type"` // "progress" or "error"
	Progress *capture.Progress `json:"progress,omitempty"`
	Error    *ErrorDetail      `json:"error,omitempty"`
}

func newUpgrader(origins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
}

// StreamLocations handles GET /tracking/{id}/stream.
// The client sends one JSON sample per message and receives one progress (or
// error) message back. The stream closes once the session stops tracking.
func (s *Server) StreamLocations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.tracker.Get(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.WarnContext(r.Context(), "location stream upgrade failed", "trip_id", id, "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(streamReadLimit)
	//nolint:errcheck
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	s.log.InfoContext(r.Context(), "location stream opened", "trip_id", id)
	reason := s.readSamples(r, conn, id)
	s.log.InfoContext(r.Context(), "location stream closed", "trip_id", id, "reason", reason)
}

// readSamples runs until the client leaves or the session stops tracking and
// returns why the loop ended.
func (s *Server) readSamples(r *http.Request, conn *websocket.Conn, id uuid.UUID) string {
	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WarnContext(ctx, "location stream read failed", "trip_id", id, "error", err)
			}
			return "client closed"
		}

		var req locationRequest
		if err := decodeSample(msg, &req); err != nil {
			if !s.writeStream(conn, s.streamError(r, err)) {
				return "write failed"
			}
			continue
		}
		if err := validateStruct(&req); err != nil {
			if !s.writeStream(conn, s.streamError(r, err)) {
				return "write failed"
			}
			continue
		}

		p, err := s.tracker.Push(ctx, id, req.sample(time.Now()))
		if errors.Is(err, capture.ErrNotTracking) || errors.Is(err, domain.ErrNotFound) {
			_ = s.writeStream(conn, s.streamError(r, err))
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "tracking stopped"),
				time.Now().Add(streamWriteWait))
			return "tracking stopped"
		}
		if err != nil {
			if !s.writeStream(conn, s.streamError(r, err)) {
				return "write failed"
			}
			continue
		}
		if !s.writeStream(conn, StreamMessage{Type: "progress", Progress: &p}) {
			return "write failed"
		}
	}
}

// decodeSample parses one stream message with the same strictness as HTTP bodies.
func decodeSample(msg []byte, req *locationRequest) error {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return fmt.Errorf("%w: malformed sample: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

func (s *Server) streamError(r *http.Request, err error) StreamMessage {
	_, body := s.classify(r, err)
	return StreamMessage{Type: "error", Error: &body.Error}
}

func (s *Server) writeStream(conn *websocket.Conn, m StreamMessage) bool {
	//nolint:errcheck
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(m) == nil
}

// pingLoop keeps the read deadline alive while the client is idle.
// WriteControl may be called concurrently with the reader's writes.
func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	t := time.NewTicker(streamPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}
