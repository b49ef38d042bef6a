package handler

import (
	"net/http"

	"github.com/pkordes/carless/internal/service"
)

type distanceUnitRequest struct {
	Unit string `json:"unit" validate:"required,length_unit"`
}

type vehicleRequest struct {
	Year         int      `json:"year" validate:"required,gte=1900,lte=2100"`
	Make         string   `json:"make" validate:"required"`
	Model        string   `json:"model" validate:"required"`
	EPAVehicleID string   `json:"epa_vehicle_id"`
	CombinedMPG  *float64 `json:"combined_mpg" validate:"omitempty,gt=0"`
}

// GetSettings handles GET /settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsToResponse(st))
}

// PutDistanceUnit handles PUT /settings/distance-unit.
// Only Mile and Kilometer may be chosen.
func (s *Server) PutDistanceUnit(w http.ResponseWriter, r *http.Request) {
	var req distanceUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.settings.SetDistanceUnit(r.Context(), req.Unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsToResponse(st))
}

// PutVehicle handles PUT /settings/vehicle.
// A default vehicle already used by saved trips is never edited; a new one
// replaces it so those trips keep their savings.
func (s *Server) PutVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	v, err := s.vehicles.SaveDefaultVehicle(r.Context(), service.VehicleInput{
		Year:         req.Year,
		Make:         req.Make,
		Model:        req.Model,
		EPAVehicleID: req.EPAVehicleID,
		CombinedMPG:  req.CombinedMPG,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicleToResponse(&v))
}

// DeleteVehicle handles DELETE /settings/vehicle by clearing the default.
func (s *Server) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.vehicles.ClearDefaultVehicle(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
