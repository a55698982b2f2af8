package excel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cropadvisor/internal"
	"cropadvisor/internal/ingest"
	"cropadvisor/ports"
)

// ObservationSource reads one observation per spreadsheet row.
type ObservationSource struct {
	cfg    Config
	reader *DataReader
	logger *internal.Logger
}

var _ ports.ObservationSource = (*ObservationSource)(nil)

func NewObservationSource(cfg Config, logger *internal.Logger) *ObservationSource {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ObservationSource{
		cfg:    cfg,
		reader: NewDataReader(cfg.FilePath, cfg.Sheet, logger),
		logger: logger.With("ExcelSource"),
	}
}

// ReadObservations parses every data row. Rows that fail validation are
// returned with Err set so one bad row doesn't sink the batch; a file that
// cannot be read at all is an error.
func (s *ObservationSource) ReadObservations(ctx context.Context) ([]ports.PlotObservation, error) {
	data, err := s.reader.ReadData()
	if err != nil {
		return nil, err
	}

	plotColumn := s.cfg.PlotIDColumn
	if plotColumn == "" {
		if detected, err := DetectPlotColumn(data); err == nil {
			plotColumn = detected
		} else {
			s.logger.Debug("no plot id column, numbering rows: %v", err)
		}
	}

	out := make([]ports.PlotObservation, 0, len(data.Rows))
	for i, row := range data.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		plotID := row[plotColumn]
		if plotColumn == "" || plotID == "" {
			plotID = "row-" + strconv.Itoa(i+2)
		}

		raw := make(map[string]interface{}, len(row))
		for k, v := range row {
			raw[k] = v
		}
		obs, err := ingest.Parse(raw)
		if err != nil {
			err = fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, ports.PlotObservation{
			PlotID:      plotID,
			PlotName:    plotID,
			Observation: obs,
			Moisture:    moisture(row),
			Err:         err,
		})
	}

	s.logger.Info("read %d observations from %s", len(out), s.cfg.FilePath)
	return out, nil
}

// moisture reads an optional "moisture" column; unparseable cells are ignored.
func moisture(row RawRowData) *float64 {
	for k, v := range row {
		if strings.EqualFold(k, "moisture") {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
