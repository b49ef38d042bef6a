package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carless/internal/domain"
)

// FuelPriceRepo stores weekly retail fuel prices.
type FuelPriceRepo interface {
	// Upsert inserts or replaces the price for (SeriesID, StartDate).
	Upsert(ctx context.Context, p domain.FuelPrice) (domain.FuelPrice, error)

	// FindForDate returns the most recent price whose week starts on or before
	// date. Returns domain.ErrNotFound if there is none.
	FindForDate(ctx context.Context, date time.Time) (domain.FuelPrice, error)
}

type pgFuelPriceRepo struct {
	db db
}

// NewFuelPriceRepo constructs a FuelPriceRepo backed by the provided db connection.
func NewFuelPriceRepo(db db) FuelPriceRepo {
	return &pgFuelPriceRepo{db: db}
}

func (r *pgFuelPriceRepo) Upsert(ctx context.Context, p domain.FuelPrice) (domain.FuelPrice, error) {
	const q = `
		INSERT INTO fuel_prices (series_id, start_date, price)
		VALUES (@series_id, @start_date, @price)
		ON CONFLICT (series_id, start_date) DO UPDATE SET price = EXCLUDED.price
		RETURNING series_id, start_date, price`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"series_id":  p.SeriesID,
		"start_date": pgtype.Date{Time: p.StartDate, Valid: true},
		"price":      toNumeric(&p.Price),
	})
	result, err := scanFuelPrice(row)
	if err != nil {
		return domain.FuelPrice{}, fmt.Errorf("repo.FuelPriceRepo.Upsert: %w", err)
	}
	return result, nil
}

func (r *pgFuelPriceRepo) FindForDate(ctx context.Context, date time.Time) (domain.FuelPrice, error) {
	const q = `
		SELECT series_id, start_date, price
		FROM fuel_prices
		WHERE start_date <= @date
		ORDER BY start_date DESC, series_id
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"date": pgtype.Date{Time: date, Valid: true}})
	result, err := scanFuelPrice(row)
	if err != nil {
		return domain.FuelPrice{}, fmt.Errorf("repo.FuelPriceRepo.FindForDate: %w", err)
	}
	return result, nil
}

func scanFuelPrice(s scanner) (domain.FuelPrice, error) {
	var (
		p     domain.FuelPrice
		start pgtype.Date
		price pgtype.Numeric
	)
	if err := s.Scan(&p.SeriesID, &start, &price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FuelPrice{}, domain.ErrNotFound
		}
		return domain.FuelPrice{}, err
	}
	p.StartDate = start.Time
	p.Price, _ = fromNumeric(price)
	return p, nil
}
