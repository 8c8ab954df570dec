package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PreferredSheet is read from a workbook when present; otherwise the
// workbook's active sheet is used.
const PreferredSheet = "DART"

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .csv.
var ErrUnsupportedFormat = errors.New("unsupported file type: only .xlsx and .csv files are allowed")

// RowSource yields the raw rows of a tabular source, header row first.
//
// ReadRow returns io.EOF after the last row. A *RowError means the current
// row could not be decoded; the caller may keep reading. Any other error is
// fatal to the source.
type RowSource interface {
	ReadRow() ([]string, error)
	Close() error
}

// Format is the container type of an uploaded or exported file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf derives the format from a file name's extension.
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// OpenSource opens r as a row source of the given format.
func OpenSource(r io.Reader, format Format) (RowSource, error) {
	switch format {
	case FormatCSV:
		return NewCSVSource(r), nil
	case FormatXLSX:
		return NewWorkbookSource(r)
	}
	return nil, ErrUnsupportedFormat
}

// CSVSource reads comma-separated rows. A leading byte order mark is
// stripped and invalid UTF-8 is replaced, so exports from spreadsheet
// programs on Windows load unchanged.
type CSVSource struct {
	r   *csv.Reader
	row int
}

// NewCSVSource wraps r. Rows may have differing field counts.
func NewCSVSource(r io.Reader) *CSVSource {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &CSVSource{r: cr}
}

// ReadRow implements RowSource.
func (s *CSVSource) ReadRow() ([]string, error) {
	rec, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	s.row++
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &RowError{Row: s.row, Err: err}
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rec, nil
}

// Close implements RowSource. The underlying reader is owned by the caller.
func (s *CSVSource) Close() error { return nil }

// WorkbookSource streams the rows of one sheet of an .xlsx workbook.
type WorkbookSource struct {
	file  *excelize.File
	rows  *excelize.Rows
	sheet string
	row   int
}

// NewWorkbookSource opens the workbook in r and selects the sheet named
// [PreferredSheet], falling back to the active sheet.
func NewWorkbookSource(r io.Reader) (*WorkbookSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet, err := pickSheet(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return &WorkbookSource{file: f, rows: rows, sheet: sheet}, nil
}

func pickSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrEmptySource
	}
	for _, name := range sheets {
		if name == PreferredSheet {
			return name, nil
		}
	}
	if active := f.GetSheetName(f.GetActiveSheetIndex()); active != "" {
		return active, nil
	}
	return sheets[0], nil
}

// Sheet returns the name of the sheet being read.
func (s *WorkbookSource) Sheet() string { return s.sheet }

// ReadRow implements RowSource.
func (s *WorkbookSource) ReadRow() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", s.sheet, err)
		}
		return nil, io.EOF
	}
	s.row++
	cols, err := s.rows.Columns()
	if err != nil {
		return nil, &RowError{Row: s.row, Err: err}
	}
	return cols, nil
}

// Close implements RowSource.
func (s *WorkbookSource) Close() error {
	rowsErr := s.rows.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
