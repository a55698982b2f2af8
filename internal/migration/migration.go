// Package migration creates the subset of the farm-management schema the plot
// repository reads. Production databases are owned by the farm-management
// service; this exists for development and integration-test databases.
package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"cropadvisor/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. Every statement
// is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"api_plot", createPlotTable},
		{"api_sensordata", createSensorDataTable},
		{"api_soilsensorreading", createSoilSensorReadingTable},
		{"api_harvest", createHarvestTable},
		{"api_chemical", createChemicalTable},
		{"indexes", createIndexes},
	}
	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.sql); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to create %s", step.name))
		}
	}
	return nil
}

const createPlotTable = `
	CREATE TABLE IF NOT EXISTS api_plot (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		plot_id VARCHAR(64),
		soil_type VARCHAR(32),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createSensorDataTable = `
	CREATE TABLE IF NOT EXISTS api_sensordata (
		id BIGSERIAL PRIMARY KEY,
		plot_id BIGINT NOT NULL REFERENCES api_plot(id) ON DELETE CASCADE,
		n DOUBLE PRECISION,
		p DOUBLE PRECISION,
		k DOUBLE PRECISION,
		ph DOUBLE PRECISION,
		moisture DOUBLE PRECISION,
		ts TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	)
`

const createSoilSensorReadingTable = `
	CREATE TABLE IF NOT EXISTS api_soilsensorreading (
		id BIGSERIAL PRIMARY KEY,
		plot_id BIGINT NOT NULL REFERENCES api_plot(id) ON DELETE CASCADE,
		"Temperature" DOUBLE PRECISION,
		"Humidity" DOUBLE PRECISION,
		"Rainfall" DOUBLE PRECISION
	)
`

const createHarvestTable = `
	CREATE TABLE IF NOT EXISTS api_harvest (
		id BIGSERIAL PRIMARY KEY,
		plot_id BIGINT NOT NULL REFERENCES api_plot(id) ON DELETE CASCADE,
		crop_type VARCHAR(64),
		start_date DATE
	)
`

const createChemicalTable = `
	CREATE TABLE IF NOT EXISTS api_chemical (
		id BIGSERIAL PRIMARY KEY,
		plot_id BIGINT NOT NULL REFERENCES api_plot(id) ON DELETE CASCADE,
		fert_total DOUBLE PRECISION,
		pest_total DOUBLE PRECISION
	)
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS idx_api_plot_user ON api_plot(user_id);
	CREATE INDEX IF NOT EXISTS idx_api_sensordata_plot_ts ON api_sensordata(plot_id, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_api_soilsensorreading_plot ON api_soilsensorreading(plot_id, id DESC);
	CREATE INDEX IF NOT EXISTS idx_api_harvest_plot ON api_harvest(plot_id, id DESC);
	CREATE INDEX IF NOT EXISTS idx_api_chemical_plot ON api_chemical(plot_id, id DESC)
`
