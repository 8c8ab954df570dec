package catalog

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Extractor turns source rows into records. The zero value is ready to use.
type Extractor struct {
	// OnSkip, if set, is called for every data row dropped during
	// extraction: rows without a description (reason ErrBlankDescription)
	// and rows that failed to decode (reason is the *RowError).
	OnSkip func(row int, reason error)
}

// Records returns the lazy sequence of records in src, which must be
// positioned after its header row. The sequence yields a non-nil error at
// most once, as its last element, when the source fails structurally.
func (e Extractor) Records(src RowSource, idx HeaderIndex) iter.Seq2[Record, error] {
	cols := idx.columns()
	return func(yield func(Record, error) bool) {
		line := 1 // the header row
		for {
			row, err := src.ReadRow()
			if err == io.EOF {
				return
			}
			line++
			if err != nil {
				var rowErr *RowError
				if errors.As(err, &rowErr) {
					if rowErr.Row > 0 {
						line = rowErr.Row
					}
					e.skip(line, rowErr)
					continue
				}
				yield(Record{}, err)
				return
			}

			rec, ok := buildRecord(row, &cols)
			if !ok {
				e.skip(line, ErrBlankDescription)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Extract collects [Extractor.Records]. On a structural failure it returns
// no records and the error.
func (e Extractor) Extract(src RowSource, idx HeaderIndex) ([]Record, error) {
	var out []Record
	for rec, err := range e.Records(src, idx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Parse reads a complete catalog file: it opens the source, resolves the
// header row and extracts every record.
func (e Extractor) Parse(r io.Reader, format Format) ([]Record, error) {
	src, err := OpenSource(r, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	header, err := src.ReadRow()
	switch {
	case err == io.EOF:
		return nil, ErrEmptySource
	case err != nil:
		return nil, fmt.Errorf("read header row: %w", err)
	case len(header) == 0:
		return nil, ErrEmptySource
	}

	idx, err := ResolveHeaders(header)
	if err != nil {
		return nil, err
	}
	return e.Extract(src, idx)
}

func (e Extractor) skip(row int, reason error) {
	if e.OnSkip != nil {
		e.OnSkip(row, reason)
	}
}

// ExtractRecords extracts every record from src using idx.
func ExtractRecords(src RowSource, idx HeaderIndex) ([]Record, error) {
	return Extractor{}.Extract(src, idx)
}

// Parse reads a complete catalog file of the given format.
func Parse(r io.Reader, format Format) ([]Record, error) {
	return Extractor{}.Parse(r, format)
}

func buildRecord(row []string, cols *[numFields]int) (Record, bool) {
	desc := cell(row, cols[Description])
	if strings.TrimSpace(desc) == "" {
		return Record{}, false
	}

	var rec Record
	for _, f := range Fields {
		rec.set(f, cell(row, cols[f]))
	}
	return rec, true
}

// cell treats absent columns and cells past the end of a short row as empty.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return row[pos]
}
