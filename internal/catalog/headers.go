package catalog

import "strings"

// Absent is the position recorded for an expected header missing from the
// source.
const Absent = -1

// HeaderIndex maps normalized header names to their column position.
// After [ResolveHeaders] every canonical field header is present, either
// with a real position or [Absent].
type HeaderIndex map[string]int

// NormalizeHeader lowercases and trims a header cell.
func NormalizeHeader(h string) string {
	return strings.TrimSpace(strings.ToLower(h))
}

// ResolveHeaders builds the header index from the first row of a source.
// Empty cells are ignored and a repeated header keeps its last position.
// The row must contain a description column.
func ResolveHeaders(row []string) (HeaderIndex, error) {
	idx := make(HeaderIndex, len(row)+len(Fields))
	for i, cell := range row {
		key := NormalizeHeader(cell)
		if key == "" {
			continue
		}
		idx[key] = i
	}

	if idx.Position(Description) == Absent {
		return nil, &MissingColumnError{Column: Description.Header()}
	}

	for _, f := range Fields {
		if _, ok := idx[f.Header()]; !ok {
			idx[f.Header()] = Absent
		}
	}
	return idx, nil
}

// Position returns the column holding field f, or [Absent]. The canonical
// upload header is preferred over the export label alias.
func (h HeaderIndex) Position(f Field) int {
	if !f.valid() {
		return Absent
	}
	for _, name := range fieldInfos[f].headers {
		if pos, ok := h[name]; ok && pos >= 0 {
			return pos
		}
	}
	return Absent
}

// columns resolves every field once so extraction does not repeat the
// alias lookups per row.
func (h HeaderIndex) columns() [numFields]int {
	var cols [numFields]int
	for _, f := range Fields {
		cols[f] = h.Position(f)
	}
	return cols
}
