// Package dataio reads tabular datasets from CSV and Excel files into the
// numeric arrays the estimators consume.
package dataio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocausal/domain/core"

	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"
)

// Dataset is a parsed numeric table with named columns.
type Dataset struct {
	Headers []string
	Rows    [][]float64
}

// Reader handles reading Excel and CSV files
type Reader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewReader creates a reader that handles both Excel and CSV files
func NewReader(filePath string) *Reader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &Reader{filePath: filePath, fileType: fileType}
}

// Read parses the file into a numeric dataset. The first row is the header;
// every following cell must parse as a float.
func (r *Reader) Read() (*Dataset, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("file must have at least a header row and one data row")
	}
	return parseRows(rows)
}

func (r *Reader) readCSVRows() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (r *Reader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read first sheet: %w", err)
	}
	return rows, nil
}

func parseRows(rows [][]string) (*Dataset, error) {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]float64, 0, len(rows)-1)
	for rowIdx, row := range rows[1:] {
		if len(row) != len(headers) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", rowIdx+2, len(row), len(headers))
		}
		parsed := make([]float64, len(row))
		for col, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", rowIdx+2, headers[col], err)
			}
			parsed[col] = v
		}
		data = append(data, parsed)
	}
	return &Dataset{Headers: headers, Rows: data}, nil
}

// Column returns the named column as a vector.
func (d *Dataset) Column(name string) ([]float64, error) {
	idx := d.columnIndex(name)
	if idx < 0 {
		return nil, core.NewValidationError("column", fmt.Sprintf("%q not found", name))
	}
	out := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Covariates returns every column except the excluded ones as an n x k
// matrix, along with the kept column names in order.
func (d *Dataset) Covariates(exclude ...string) (*mat.Dense, []string, error) {
	skip := map[string]bool{}
	for _, name := range exclude {
		skip[name] = true
	}
	var keep []int
	var names []string
	for i, h := range d.Headers {
		if !skip[h] {
			keep = append(keep, i)
			names = append(names, h)
		}
	}
	if len(keep) == 0 {
		return nil, nil, core.NewValidationError("covariates", "no columns left after exclusions")
	}

	X := mat.NewDense(len(d.Rows), len(keep), nil)
	for i, row := range d.Rows {
		for j, col := range keep {
			X.Set(i, j, row[col])
		}
	}
	return X, names, nil
}

func (d *Dataset) columnIndex(name string) int {
	for i, h := range d.Headers {
		if h == name {
			return i
		}
	}
	return -1
}
