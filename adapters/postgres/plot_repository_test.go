package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/domain/agronomy"
	"cropadvisor/internal/advisor"
	"cropadvisor/internal/errors"
	"cropadvisor/internal/migration"
	"cropadvisor/ports"
)

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func ns(v string) sql.NullString  { return sql.NullString{String: v, Valid: true} }

func completeRow() PlotSnapshotRow {
	return PlotSnapshotRow{
		ID: 7, PlotCode: ns("P1"), SoilType: ns("loamy"),
		N: nf(90), P: nf(42), K: nf(43), PH: nf(6.5), Moisture: nf(25),
		Temperature: nf(21), Humidity: nf(82), Rainfall: nf(203),
		CropType: ns("Rice"), FertTotal: nf(120), PestTotal: nf(8),
	}
}

func TestToPlotObservation_Complete(t *testing.T) {
	plot := completeRow().ToPlotObservation()
	require.NoError(t, plot.Err)

	assert.Equal(t, "7", plot.PlotID)
	assert.Equal(t, "P1", plot.PlotName)
	assert.Equal(t, agronomy.Crop("rice"), plot.Observation.CurrentCrop)
	assert.Equal(t, agronomy.SoilType("Loamy"), plot.Observation.SoilType)
	assert.Equal(t, 120.0, plot.Observation.FertilizerOr(0))
	assert.Equal(t, 8.0, plot.Observation.PesticideOr(0))
	require.NotNil(t, plot.Moisture)
	assert.Equal(t, 25.0, *plot.Moisture)
}

func TestToPlotObservation_MissingReadings(t *testing.T) {
	row := completeRow()
	row.PlotCode = sql.NullString{}
	row.Temperature = sql.NullFloat64{}
	row.Moisture = sql.NullFloat64{}
	row.FertTotal = sql.NullFloat64{}
	row.CropType = ns("")

	plot := row.ToPlotObservation()
	assert.Equal(t, "Plot 7", plot.PlotName)
	assert.Nil(t, plot.Moisture)
	require.Error(t, plot.Err)
	assert.True(t, errors.IsCode(plot.Err, errors.CodeValidationError))
	assert.Contains(t, plot.Err.Error(), "Temperature is required")
}

func TestSensorOnlySnapshot_StillGetsMoistureAdvice(t *testing.T) {
	row := completeRow()
	row.Temperature = sql.NullFloat64{}
	row.Humidity = sql.NullFloat64{}
	row.Rainfall = sql.NullFloat64{}
	row.Moisture = nf(12)

	adv := advisor.New(advisor.Deps{}, advisor.DefaultOptions())
	advice, err := adv.AdvisePlots(context.Background(), []ports.PlotObservation{row.ToPlotObservation()})
	require.NoError(t, err)
	require.Len(t, advice, 1)

	assert.Equal(t, agronomy.SeverityHigh, advice[0].Severity)
	assert.Equal(t, []string{"Soil moisture is low. Crop may be stressed."}, advice[0].Warnings)
	assert.Equal(t, []string{"Irrigate this plot within the next 12 hours."}, advice[0].Actions)
	assert.Contains(t, advice[0].Error, "Rainfall is required")
}

func TestToPlotObservation_OptionalFieldsAbsent(t *testing.T) {
	row := completeRow()
	row.CropType = sql.NullString{}
	row.FertTotal = sql.NullFloat64{}
	row.PestTotal = sql.NullFloat64{}

	plot := row.ToPlotObservation()
	require.NoError(t, plot.Err)
	assert.True(t, plot.Observation.CurrentCrop.IsEmpty())
	assert.Nil(t, plot.Observation.Fertilizer)
	assert.Nil(t, plot.Observation.Pesticide)
}

// TestPlotRepository_Live runs against a scratch PostgreSQL database when
// CROPADVISOR_TEST_DATABASE_URL is set.
func TestPlotRepository_Live(t *testing.T) {
	url := os.Getenv("CROPADVISOR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CROPADVISOR_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := Connect(ctx, url, 2)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migration.NewRunner().Run(ctx, db))

	userID := time.Now().UnixNano()
	var plotID int64
	require.NoError(t, db.GetContext(ctx, &plotID,
		`INSERT INTO api_plot (user_id, plot_id, soil_type) VALUES ($1, 'North', 'clay') RETURNING id`, userID))
	t.Cleanup(func() { db.Exec(`DELETE FROM api_plot WHERE user_id = $1`, userID) })

	db.MustExecContext(ctx, `INSERT INTO api_sensordata (plot_id, n, p, k, ph, moisture, ts) VALUES
		($1, 10, 10, 10, 5.0, 90, NOW() - INTERVAL '1 day'),
		($1, 90, 42, 43, 6.5, 25, NOW())`, plotID)
	db.MustExecContext(ctx, `INSERT INTO api_soilsensorreading (plot_id, "Temperature", "Humidity", "Rainfall") VALUES ($1, 21, 82, 203)`, plotID)
	db.MustExecContext(ctx, `INSERT INTO api_harvest (plot_id, crop_type) VALUES ($1, 'Rice')`, plotID)
	db.MustExecContext(ctx, `INSERT INTO api_chemical (plot_id, fert_total, pest_total) VALUES ($1, 120, 8)`, plotID)

	plots, err := NewPlotRepository(db).LatestObservations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, plots, 1)

	plot := plots[0]
	require.NoError(t, plot.Err)
	assert.Equal(t, "North", plot.PlotName)
	assert.Equal(t, 90.0, plot.Observation.N)
	assert.Equal(t, agronomy.SoilType("Clay"), plot.Observation.SoilType)
	assert.Equal(t, agronomy.Crop("rice"), plot.Observation.CurrentCrop)
	require.NotNil(t, plot.Moisture)
	assert.Equal(t, 25.0, *plot.Moisture)
}
