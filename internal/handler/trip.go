package handler

import (
	"net/http"
)

// ListTrips handles GET /trips.
// Supports ?limit= and ?skip= query parameters (defaults: limit=20, skip=0, max limit=100).
// Trips are ordered by start time, newest first.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	params, err := pagination(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.trips.List(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]Trip, len(page.Trips))
	for i, t := range page.Trips {
		data[i] = tripToResponse(t)
	}
	writeJSON(w, http.StatusOK, TripList{
		Data:       data,
		Pagination: Pagination{Limit: params.Limit, Skip: params.Skip, Total: page.Total},
	})
}

// GetTrip handles GET /trips/{id}. The response includes the waypoints.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	trip, err := s.trips.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// DeleteTrip handles DELETE /trips/{id}. Waypoints are removed with the trip.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.trips.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
