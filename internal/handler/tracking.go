package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
)

type startTrackingRequest struct {
	Mode       string `json:"mode" validate:"required,mode"`
	Authorized *bool  `json:"authorized" validate:"required"`
}

// locationRequest is one sample pushed by the client, over HTTP or the stream.
// Both coordinates are required; sample must only be called after validation.
type locationRequest struct {
	Latitude           *float64   `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude          *float64   `json:"longitude" validate:"required,gte=-180,lte=180"`
	Altitude           float64    `json:"altitude"`
	HorizontalAccuracy float64    `json:"horizontal_accuracy"`
	VerticalAccuracy   float64    `json:"vertical_accuracy"`
	Speed              float64    `json:"speed"`
	Course             float64    `json:"course"`
	Timestamp          *time.Time `json:"timestamp"`
}

func (l locationRequest) sample(now time.Time) capture.Sample {
	ts := now
	if l.Timestamp != nil {
		ts = *l.Timestamp
	}
	return capture.Sample{
		Latitude:           *l.Latitude,
		Longitude:          *l.Longitude,
		Altitude:           l.Altitude,
		HorizontalAccuracy: l.HorizontalAccuracy,
		VerticalAccuracy:   l.VerticalAccuracy,
		Speed:              l.Speed,
		Course:             l.Course,
		Timestamp:          ts,
	}
}

type stopTrackingRequest struct {
	Confirm *bool `json:"confirm" validate:"required"`
}

// StopResult reports a stop request. Summary is set only when the stop was
// confirmed; otherwise the session keeps tracking.
type StopResult struct {
	Stopped bool         `json:"stopped"`
	Session Session      `json:"session"`
	Summary *TripSummary `json:"summary,omitempty"`
}

// StartTracking handles POST /tracking.
// authorized carries the user's answer to the location permission prompt.
// Returns 201 with the new session, or 403 when access was denied.
func (s *Server) StartTracking(w http.ResponseWriter, r *http.Request) {
	var req startTrackingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.tracker.Start(r.Context(), mode, *req.Authorized)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// GetTracking handles GET /tracking/{id}.
func (s *Server) GetTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.tracker.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(sess))
}

// PushLocation handles POST /tracking/{id}/locations.
// Returns the progress after the sample; accepted is false when the sample
// did not move the trip.
func (s *Server) PushLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.tracker.Push(r.Context(), id, req.sample(time.Now()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// StopTracking handles POST /tracking/{id}/stop.
// confirm is the user's answer to the stop confirmation; false keeps tracking.
func (s *Server) StopTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req stopTrackingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sum, err := s.tracker.Stop(r.Context(), id, capture.Confirmed(*req.Confirm))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.tracker.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := StopResult{Stopped: sum != nil, Session: sessionToResponse(sess)}
	if sum != nil {
		ts := summaryToResponse(sum)
		res.Summary = &ts
	}
	writeJSON(w, http.StatusOK, res)
}

// SaveTracking handles POST /tracking/{id}/save.
// The session must be stopped. Returns 201 with the committed trip; a commit
// failure returns 503 and the session stays open for another attempt.
func (s *Server) SaveTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	trip, err := s.tracker.Save(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, TripSummary{Saved: true, Trip: tripToResponse(trip)})
}

// DiscardTracking handles POST /tracking/{id}/discard. Nothing is persisted.
func (s *Server) DiscardTracking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.tracker.Discard(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
