package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkordes/carless/internal/domain"
)

type fuelPriceRequest struct {
	SeriesID  string          `json:"series_id" validate:"required"`
	StartDate string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	Price     decimal.Decimal `json:"price"`
}

// PutFuelPrice handles PUT /fuel-prices.
// It stores the weekly price starting on start_date and drops any cached
// lookup for the days that price covers.
func (s *Server) PutFuelPrice(w http.ResponseWriter, r *http.Request) {
	var req fuelPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !req.Price.IsPositive() {
		s.writeError(w, r, fmt.Errorf("%w: price must be positive", domain.ErrValidation))
		return
	}
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: start_date must be YYYY-MM-DD", domain.ErrValidation))
		return
	}

	saved, err := s.prices.Upsert(r.Context(), domain.FuelPrice{
		SeriesID:  req.SeriesID,
		StartDate: start,
		Price:     req.Price,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.cache != nil {
		week := make([]time.Time, 7)
		for i := range week {
			week[i] = start.AddDate(0, 0, i)
		}
		if err := s.cache.Forget(r.Context(), week...); err != nil {
			s.log.WarnContext(r.Context(), "fuel price cache invalidation failed", "start_date", req.StartDate, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, fuelPriceToResponse(saved))
}
