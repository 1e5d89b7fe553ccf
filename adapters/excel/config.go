package excel

// ExcelConfig holds configuration for a workbook or CSV data source
type ExcelConfig struct {
	FilePath    string `json:"file_path"`
	Sheet       string `json:"sheet"`        // empty means the first sheet
	TimeColumn  string `json:"time_column"`  // header of the timestamp column
	ValueColumn string `json:"value_column"` // header of the value or state column
	SerialDates bool   `json:"serial_dates"` // numeric time cells are Excel serial day numbers
}

// DefaultExcelConfig returns sensible defaults for workbook ingest
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		TimeColumn:  "timestamp",
		ValueColumn: "value",
	}
}
