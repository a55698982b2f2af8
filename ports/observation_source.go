package ports

import (
	"context"

	"cropadvisor/domain/agronomy"
)

// PlotObservation is an observation tied to the plot it was taken on.
type PlotObservation struct {
	PlotID      string
	PlotName    string
	Observation agronomy.Observation
	// Moisture is the latest soil moisture percentage, when a sensor reports it.
	Moisture *float64
	// Err is set when the stored record could not be turned into an observation.
	Err error
}

// PlotRepository reads the latest persisted readings for a user's plots.
// The records belong to the farm-management system; access is read-only.
type PlotRepository interface {
	LatestObservations(ctx context.Context, userID int64) ([]PlotObservation, error)
}

// ObservationSource yields observations from a file or feed, in source order.
type ObservationSource interface {
	ReadObservations(ctx context.Context) ([]PlotObservation, error)
}
