package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"cropadvisor/internal/errors"
	"cropadvisor/internal/ingest"
	"cropadvisor/ports"
)

// latestPlotSnapshots joins each of a user's plots with its newest sensor
// reading, environment reading, harvest (for the crop) and chemical record.
const latestPlotSnapshots = `
	SELECT p.id, p.plot_id, p.soil_type,
	       s.n, s.p, s.k, s.ph, s.moisture,
	       e.temperature, e.humidity, e.rainfall,
	       h.crop_type,
	       c.fert_total, c.pest_total
	FROM api_plot p
	LEFT JOIN LATERAL (
		SELECT n, p, k, ph, moisture FROM api_sensordata
		WHERE plot_id = p.id ORDER BY ts DESC LIMIT 1
	) s ON true
	LEFT JOIN LATERAL (
		SELECT "Temperature" AS temperature, "Humidity" AS humidity, "Rainfall" AS rainfall
		FROM api_soilsensorreading
		WHERE plot_id = p.id ORDER BY id DESC LIMIT 1
	) e ON true
	LEFT JOIN LATERAL (
		SELECT crop_type FROM api_harvest
		WHERE plot_id = p.id ORDER BY id DESC LIMIT 1
	) h ON true
	LEFT JOIN LATERAL (
		SELECT fert_total, pest_total FROM api_chemical
		WHERE plot_id = p.id ORDER BY id DESC LIMIT 1
	) c ON true
	WHERE p.user_id = $1
	ORDER BY p.id
`

// PlotSnapshotRow is one plot with its latest readings. Every reading is
// nullable; the farm-management tables are filled by independent feeds.
type PlotSnapshotRow struct {
	ID          int64           `db:"id"`
	PlotCode    sql.NullString  `db:"plot_id"`
	SoilType    sql.NullString  `db:"soil_type"`
	N           sql.NullFloat64 `db:"n"`
	P           sql.NullFloat64 `db:"p"`
	K           sql.NullFloat64 `db:"k"`
	PH          sql.NullFloat64 `db:"ph"`
	Moisture    sql.NullFloat64 `db:"moisture"`
	Temperature sql.NullFloat64 `db:"temperature"`
	Humidity    sql.NullFloat64 `db:"humidity"`
	Rainfall    sql.NullFloat64 `db:"rainfall"`
	CropType    sql.NullString  `db:"crop_type"`
	FertTotal   sql.NullFloat64 `db:"fert_total"`
	PestTotal   sql.NullFloat64 `db:"pest_total"`
}

// PlotRepository reads plot snapshots from the farm-management database.
// It never writes.
type PlotRepository struct {
	db *sqlx.DB
}

var _ ports.PlotRepository = (*PlotRepository)(nil)

// NewPlotRepository creates a new PostgreSQL plot repository
func NewPlotRepository(db *sqlx.DB) *PlotRepository {
	return &PlotRepository{db: db}
}

// Connect opens and pings a PostgreSQL connection pool.
func Connect(ctx context.Context, url string, maxOpen int) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("connect to database: %w", err))
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	return db, nil
}

// LatestObservations returns one observation per plot owned by userID. A
// plot with missing readings is returned with Err set rather than dropped.
func (r *PlotRepository) LatestObservations(ctx context.Context, userID int64) ([]ports.PlotObservation, error) {
	var rows []PlotSnapshotRow
	if err := r.db.SelectContext(ctx, &rows, latestPlotSnapshots, userID); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("load plot snapshots for user %d: %w", userID, err))
	}

	out := make([]ports.PlotObservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToPlotObservation())
	}
	return out, nil
}

// ToPlotObservation converts a snapshot through the same ingestion rules as
// API payloads.
func (row PlotSnapshotRow) ToPlotObservation() ports.PlotObservation {
	plotID := strconv.FormatInt(row.ID, 10)
	name := "Plot " + plotID
	if row.PlotCode.Valid && row.PlotCode.String != "" {
		name = row.PlotCode.String
	}

	raw := map[string]interface{}{}
	setFloat(raw, ingest.FieldN, row.N)
	setFloat(raw, ingest.FieldP, row.P)
	setFloat(raw, ingest.FieldK, row.K)
	setFloat(raw, ingest.FieldPH, row.PH)
	setFloat(raw, ingest.FieldTemperature, row.Temperature)
	setFloat(raw, ingest.FieldHumidity, row.Humidity)
	setFloat(raw, ingest.FieldRainfall, row.Rainfall)
	setFloat(raw, ingest.FieldFertilizer, row.FertTotal)
	setFloat(raw, ingest.FieldPesticide, row.PestTotal)
	setString(raw, ingest.FieldSoilType, row.SoilType)
	setString(raw, ingest.FieldCurrentCrop, row.CropType)

	obs, err := ingest.Parse(raw)
	plot := ports.PlotObservation{PlotID: plotID, PlotName: name, Observation: obs, Err: err}
	if row.Moisture.Valid {
		m := row.Moisture.Float64
		plot.Moisture = &m
	}
	return plot
}

func setFloat(raw map[string]interface{}, field string, v sql.NullFloat64) {
	if v.Valid {
		raw[field] = v.Float64
	}
}

func setString(raw map[string]interface{}, field string, v sql.NullString) {
	if v.Valid && v.String != "" {
		raw[field] = v.String
	}
}
