package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequiredColumn is matched by every *MissingColumnError.
	ErrMissingRequiredColumn = errors.New("missing required column")

	// ErrEmptySource is returned when a source has no header row at all.
	ErrEmptySource = errors.New("empty file: no header row found")

	// ErrNoDataset is returned by queries made before a successful load.
	ErrNoDataset = errors.New("no dataset loaded")
)

// MissingColumnError reports a mandatory header absent from the header row.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingRequiredColumn
}

// RowError marks a single row that could not be decoded. Extraction skips
// such rows; a RowError never aborts a load.
type RowError struct {
	Row int // 1-based row number in the source, 0 if unknown
	Err error
}

func (e *RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row: %v", e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// ErrBlankDescription is the skip reason reported for rows without a
// description.
var ErrBlankDescription = errors.New("description is empty")
