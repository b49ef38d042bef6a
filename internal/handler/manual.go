package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
)

// manualTripRequest is the body of POST /trips/manual. A missing mode or a
// distance that is not positive leaves the form in editing rather than
// failing validation.
type manualTripRequest struct {
	Distance       *float64   `json:"distance"`
	Unit           string     `json:"unit" validate:"omitempty,length_unit"`
	Mode           string     `json:"mode" validate:"omitempty,mode"`
	Category       string     `json:"category" validate:"omitempty,category"`
	StartTimestamp *time.Time `json:"start_timestamp"`
}

// ManualResult reports what a manual save did.
type ManualResult struct {
	State            string       `json:"state"`
	Path             []string     `json:"path"`
	FuelLookupFailed bool         `json:"fuel_lookup_failed"`
	Summary          *TripSummary `json:"summary,omitempty"`
}

// ManualOptions lists the choices offered by the manual entry pickers.
type ManualOptions struct {
	Modes         []string `json:"modes"`
	ModeImages    []string `json:"mode_images"`
	Categories    []string `json:"categories"`
	DistanceUnits []string `json:"distance_units"`
}

// GetManualOptions handles GET /trips/manual/options.
func (s *Server) GetManualOptions(w http.ResponseWriter, _ *http.Request) {
	modes := capture.NewSelectable(domain.Modes)
	units := make([]string, 0, len(domain.UserLengthUnits))
	for _, u := range domain.UserLengthUnits {
		units = append(units, u.String())
	}
	writeJSON(w, http.StatusOK, ManualOptions{
		Modes:         modes.Labels(),
		ModeImages:    capture.ImageNames(modes),
		Categories:    capture.NewSelectable(domain.Categories).Labels(),
		DistanceUnits: units,
	})
}

// CreateManualTrip handles POST /trips/manual.
// It fills a fresh entry form from the body and runs its save flow.
// Returns 201 with the saved trip, or 202 when the form is incomplete and
// stays in editing.
func (s *Server) CreateManualTrip(w http.ResponseWriter, r *http.Request) {
	var req manualTripRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	form, err := s.manual(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer form.Close()

	if err := fillManualForm(form, req); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := form.Save(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := ManualResult{
		State:            out.State.String(),
		Path:             make([]string, 0, len(out.Path)),
		FuelLookupFailed: out.FuelLookupFailed(),
	}
	for _, st := range out.Path {
		res.Path = append(res.Path, st.String())
	}
	if out.Summary == nil {
		writeJSON(w, http.StatusAccepted, res)
		return
	}
	sum := summaryToResponse(out.Summary)
	res.Summary = &sum
	writeJSON(w, http.StatusCreated, res)
}

// fillManualForm copies the request onto the form. Values were validated by
// decodeJSON, so parse failures here are not expected.
func fillManualForm(form *capture.ManualCapture, req manualTripRequest) error {
	if req.Mode != "" {
		mode, err := domain.ParseMode(req.Mode)
		if err != nil {
			return err
		}
		if err := form.Mode.Select(mode); err != nil {
			return err
		}
	}
	if req.Category != "" {
		cat, err := domain.ParseCategory(req.Category)
		if err != nil {
			return err
		}
		if err := form.Category.Select(cat); err != nil {
			return err
		}
	}

	var unit domain.LengthUnit
	if req.Unit != "" {
		u, err := domain.ParseLengthUnit(req.Unit)
		if err != nil {
			return err
		}
		unit = u
	}
	if req.Distance != nil {
		form.SetDistance(*req.Distance, unit)
	}
	if req.StartTimestamp != nil {
		form.SetStart(*req.StartTimestamp)
	}
	return nil
}
