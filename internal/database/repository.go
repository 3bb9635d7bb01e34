package database

import (
	"context"

	"praxis/internal/model"
)

// Repository defines the standard interface for level series storage.
type Repository interface {
	Migrate(ctx context.Context) error
	AppendObservations(ctx context.Context, obs []model.PriceObservation) error
	// LoadSeries returns the most recent limit levels for symbol in
	// chronological order. A limit of zero or less loads the whole series.
	LoadSeries(ctx context.Context, symbol string, limit int) (model.ReturnSeries, error)
}
