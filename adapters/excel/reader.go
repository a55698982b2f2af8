package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cropadvisor/internal"
	"cropadvisor/internal/ingest"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a reader for an .xlsx or .csv file, chosen by extension.
func NewDataReader(filePath, sheet string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: sheet, logger: logger.With("DataReader")}
}

// ReadData reads the file into a header row plus data rows.
func (r *DataReader) ReadData() (*SheetData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

func (r *DataReader) readExcelData() (*SheetData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	r.logger.Debug("sheet %s read in %.2fms (%d rows)", sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows), nil
}

func (r *DataReader) readCSVData() (*SheetData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows), nil
}

// processRows converts raw string rows into SheetData. Blank rows are skipped.
func (r *DataReader) processRows(rows [][]string) *SheetData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData)
		for j, cell := range rows[i] {
			if j < len(headers) && strings.TrimSpace(cell) != "" {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		if len(rowData) == 0 {
			continue
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Info("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))
	return &SheetData{Headers: headers, Rows: dataRows}
}

// DetectPlotColumn picks the column identifying each row's plot: a common
// id column name if one holds unique, non-empty values, else the first
// column under the same condition unless it is an observation field.
func DetectPlotColumn(data *SheetData) (string, error) {
	if len(data.Rows) == 0 {
		return "", fmt.Errorf("no data rows found")
	}

	commonPlotColumns := []string{"plot_id", "plot", "id", "field_id", "field", "sample_id"}
	for _, colName := range commonPlotColumns {
		for _, header := range data.Headers {
			if strings.ToLower(header) == colName && isValidPlotColumn(data, header) {
				return header, nil
			}
		}
	}

	if len(data.Headers) > 0 {
		first := data.Headers[0]
		if _, isField := ingest.CanonicalField(first); !isField && isValidPlotColumn(data, first) {
			return first, nil
		}
	}
	return "", fmt.Errorf("could not detect a plot id column")
}

func isValidPlotColumn(data *SheetData, column string) bool {
	seen := make(map[string]bool, len(data.Rows))
	for _, row := range data.Rows {
		value := row[column]
		if value == "" || seen[value] {
			return false
		}
		seen[value] = true
	}
	return true
}
