package excel

// RawRowData represents a row of raw sheet data as header -> cell text
type RawRowData map[string]string

// SheetData is a header row plus its data rows.
type SheetData struct {
	Headers []string
	Rows    []RawRowData
}
