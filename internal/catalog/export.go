package catalog

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

// ExportSheet is the name of the single sheet in an exported workbook.
const ExportSheet = "Search Results"

// ExportWorkbook writes records as an .xlsx workbook: a header row of
// [Labels] followed by one row per record in [Fields] order.
func ExportWorkbook(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(ExportSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toCells(Labels())); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, toCells(r.Values())); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// toCells converts values for the stream writer. Empty values become nil so
// they are written as blank cells.
func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		cells[i] = v
	}
	return cells
}

// ExportCSV writes records as comma-separated text with the same columns as
// [ExportWorkbook].
func ExportCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(records) == 0 {
		if err := enc.EncodeHeader(Record{}); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
	} else if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// Export writes records in the given format.
func Export(w io.Writer, records []Record, format Format) error {
	switch format {
	case FormatXLSX:
		return ExportWorkbook(w, records)
	case FormatCSV:
		return ExportCSV(w, records)
	}
	return ErrUnsupportedFormat
}
