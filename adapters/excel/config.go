package excel

// Config holds settings for a spreadsheet observation source.
type Config struct {
	FilePath string `json:"file_path"`
	// Sheet defaults to the workbook's first sheet; ignored for CSV.
	Sheet string `json:"sheet"`
	// PlotIDColumn is detected from common names when empty.
	PlotIDColumn string `json:"plot_id_column"`
}
