package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	config   ExcelConfig
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ExcelConfig, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	fileType := "xlsx"
	if strings.EqualFold(filepath.Ext(config.FilePath), ".csv") {
		fileType = "csv"
	}
	return &DataReader{config: config, fileType: fileType, logger: logger.With("DataReader")}
}

// ReadData reads the whole sheet (or CSV file) as strings keyed by header
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.config.FilePath)

	if _, err := os.Stat(r.config.FilePath); os.IsNotExist(err) {
		return nil, errors.IngestError(r.config.FilePath, fmt.Errorf("%s file not found", strings.ToUpper(r.fileType)))
	}

	var (
		rows [][]string
		err  error
	)
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, errors.IngestError(r.config.FilePath, err)
	}
	if len(rows) < 1 {
		return nil, errors.IngestError(r.config.FilePath, fmt.Errorf("file has no header row"))
	}

	return r.processRows(rows), nil
}

// readExcelRows reads raw cell values so date cells keep their serial number.
func (r *DataReader) readExcelRows() ([][]string, error) {
	start := time.Now()
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheet := r.config.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheet)
	}
	r.logger.Debug("sheet %q read in %v (%d rows)", sheet, time.Since(start), len(rows))
	return rows, nil
}

// readCSVRows reads CSV data; ragged rows are allowed
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}
	return rows, nil
}

// processRows converts raw string rows into ExcelData format
func (r *DataReader) processRows(rows [][]string) *ExcelData {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(dataRows))
	return &ExcelData{Headers: headers, Rows: dataRows}
}

// ReadColumns implements ports.SeriesReaderPort. Column names match headers
// case-insensitively. Tokens are returned unparsed except that, with
// SerialDates, numeric time cells become time.Time values.
func (r *DataReader) ReadColumns(timeColumn, valueColumn string) ([]any, []any, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, nil, err
	}

	timeHeader, err := findHeader(data.Headers, timeColumn)
	if err != nil {
		return nil, nil, errors.IngestError(r.config.FilePath, err)
	}
	valueHeader, err := findHeader(data.Headers, valueColumn)
	if err != nil {
		return nil, nil, errors.IngestError(r.config.FilePath, err)
	}

	rawTimes := data.Column(timeHeader)
	rawValues := data.Column(valueHeader)
	timestamps := make([]any, len(rawTimes))
	values := make([]any, len(rawValues))

	for i, cell := range rawTimes {
		timestamps[i] = r.timeToken(cell)
	}
	for i, cell := range rawValues {
		if cell == "" {
			values[i] = nil
			continue
		}
		values[i] = cell
	}
	return timestamps, values, nil
}

func (r *DataReader) timeToken(cell string) any {
	if !r.config.SerialDates || r.fileType != "xlsx" {
		return cell
	}
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return cell
	}
	return t
}

func findHeader(headers []string, name string) (string, error) {
	for _, h := range headers {
		if strings.EqualFold(h, strings.TrimSpace(name)) {
			return h, nil
		}
	}
	return "", fmt.Errorf("column %q not found (have %s)", name, strings.Join(headers, ", "))
}
