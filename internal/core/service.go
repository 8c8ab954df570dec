package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/config"
	"github.com/JonMunkholm/dartsearch/internal/core/history"
	"github.com/JonMunkholm/dartsearch/internal/logging"
	"github.com/google/uuid"
)

var (
	// ErrNoFile is returned when an upload has no file name.
	ErrNoFile = errors.New("no file provided")

	// ErrUnsupportedFile is returned for names not ending in .xlsx or .csv.
	ErrUnsupportedFile = catalog.ErrUnsupportedFormat

	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidFile wraps parse failures that are not one of the
	// catalog's typed errors, e.g. a corrupt workbook.
	ErrInvalidFile = errors.New("invalid file")

	// ErrNoQuery is returned by Export when neither keywords nor filters
	// are given.
	ErrNoQuery = errors.New("no query: enter search keywords or apply filters")
)

const (
	// MessageNoQuery is shown when a search has neither keywords nor filters.
	MessageNoQuery = "Please enter search keywords or apply filters"
	// MessageNoMatch is shown when a query selects nothing.
	MessageNoMatch = "No Match Found"
	// MessageCleared is shown after Clear.
	MessageCleared = "Data cleared. Ready for new upload."
)

// Service is the catalog application: it owns the dataset store and
// records history. Safe for concurrent use.
type Service struct {
	store       *catalog.Store
	history     history.Recorder
	limiter     *UploadLimiter
	maxFileSize int64
	timeout     time.Duration
	now         func() time.Time
}

// NewService creates a service over store. A nil recorder keeps history in
// memory.
func NewService(store *catalog.Store, rec history.Recorder, cfg *config.Config) *Service {
	if rec == nil {
		rec = history.NewMemoryRecorder(cfg.History.Capacity)
	}
	return &Service{
		store:       store,
		history:     rec,
		limiter:     NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		maxFileSize: cfg.Upload.MaxFileSize,
		timeout:     cfg.Upload.Timeout,
		now:         time.Now,
	}
}

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

// UploadResult describes a completed upload.
type UploadResult struct {
	UploadID  string        `json:"upload_id"`
	DatasetID string        `json:"dataset_id"`
	FileName  string        `json:"file_name"`
	RowCount  int           `json:"row_count"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"-"`
	Message   string        `json:"message"`
}

// Upload parses a catalog file and makes it the current dataset. On any
// error the previously loaded dataset stays in place.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return nil, ErrNoFile
	}
	format, err := catalog.FormatOf(name)
	if err != nil {
		return nil, ErrUnsupportedFile
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	uploadID := uuid.NewString()
	log := logging.WithFields(ctx, "upload_id", uploadID, "file", name, "format", format)
	start := s.now()

	skipped := 0
	ex := catalog.Extractor{OnSkip: func(row int, reason error) {
		skipped++
		log.Debug("row skipped", "row", row, "reason", reason)
	}}

	src := &guardedReader{ctx: ctx, r: r, remaining: s.maxFileSize}
	records, err := ex.Parse(src, format)
	if err != nil {
		err = classifyParseError(err)
		log.Warn("upload failed", "error", err)
		s.record(ctx, history.Event{
			ID:       uploadID,
			Kind:     history.KindFailed,
			FileName: name,
			Message:  err.Error(),
		})
		return nil, err
	}

	ds := s.store.Load(records, name)
	res := &UploadResult{
		UploadID:  uploadID,
		DatasetID: ds.ID,
		FileName:  name,
		RowCount:  ds.Len(),
		Skipped:   skipped,
		Duration:  s.now().Sub(start),
		Message:   fmt.Sprintf("File %q uploaded successfully! (%d rows loaded)", name, ds.Len()),
	}
	log.Info("catalog loaded", "rows", res.RowCount, "skipped", skipped, "duration", res.Duration)

	s.record(ctx, history.Event{
		ID:       uploadID,
		Kind:     history.KindUpload,
		FileName: name,
		RowCount: res.RowCount,
		Skipped:  skipped,
		Message:  res.Message,
	})
	return res, nil
}

// classifyParseError keeps errors callers can act on and wraps everything
// else as ErrInvalidFile.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrMissingRequiredColumn),
		errors.Is(err, catalog.ErrEmptySource),
		errors.Is(err, catalog.ErrUnsupportedFormat),
		errors.Is(err, ErrFileTooLarge),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidFile, err)
}

// guardedReader stops reading when ctx ends or more than remaining bytes
// have been read.
type guardedReader struct {
	ctx       context.Context
	r         io.Reader
	remaining int64
}

func (g *guardedReader) Read(p []byte) (int, error) {
	if err := g.ctx.Err(); err != nil {
		return 0, err
	}
	if g.remaining <= 0 {
		// One byte past the limit tells a file that is exactly the limit
		// apart from a larger one.
		var extra [1]byte
		switch _, err := io.ReadFull(g.r, extra[:]); {
		case err == nil:
			return 0, ErrFileTooLarge
		case errors.Is(err, io.EOF):
			return 0, io.EOF
		default:
			return 0, err
		}
	}
	if int64(len(p)) > g.remaining {
		p = p[:g.remaining]
	}
	n, err := g.r.Read(p)
	g.remaining -= int64(n)
	return n, err
}

// SanitizeFilename reduces a client-supplied name to its base name with
// only letters, digits, dot, dash and underscore. Spaces become
// underscores. It returns "" when nothing usable is left.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)),
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

// Filters returns the facet options of the current dataset.
func (s *Service) Filters(ctx context.Context) (catalog.FacetIndex, error) {
	ds, err := s.store.Current()
	if err != nil {
		return catalog.FacetIndex{}, err
	}
	return ds.Facets, nil
}

// Query selects records: Filters narrow the dataset, then Keywords search
// what remains.
type Query struct {
	Keywords string              `json:"keywords"`
	Filters  catalog.Constraints `json:"filters"`
}

// IsEmpty reports whether q has neither keywords nor an active filter.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Keywords) == "" && !q.Filters.Active()
}

func (q Query) apply(records []catalog.Record) []catalog.Record {
	out := catalog.ApplyFilters(records, q.Filters)
	if strings.TrimSpace(q.Keywords) != "" {
		out = catalog.SearchKeywords(q.Keywords, out)
	}
	return out
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Records []catalog.Record   `json:"results"`
	Count   int                `json:"count"`
	Message string             `json:"message"`
	NoQuery bool               `json:"no_query,omitempty"`
	NoMatch bool               `json:"no_match,omitempty"`
	Facets  catalog.FacetIndex `json:"facets"`
}

// Search runs q against the current dataset. An empty query is not an
// error: the result has NoQuery set and no records.
func (s *Service) Search(ctx context.Context, q Query) (*SearchResult, error) {
	ds, err := s.store.Current()
	if err != nil {
		return nil, err
	}

	if q.IsEmpty() {
		return &SearchResult{
			Records: []catalog.Record{},
			Message: MessageNoQuery,
			NoQuery: true,
			Facets:  catalog.BuildFacets(nil),
		}, nil
	}

	records := q.apply(ds.Records)
	res := &SearchResult{
		Records: records,
		Count:   len(records),
		Facets:  catalog.BuildFacets(records),
	}
	if len(records) == 0 {
		res.Records = []catalog.Record{}
		res.Message = MessageNoMatch
		res.NoMatch = true
	} else {
		res.Message = fmt.Sprintf("Found %d result(s)", len(records))
	}

	logging.FromContext(ctx).Debug("search",
		"keywords", q.Keywords,
		"filters", len(q.Filters),
		"count", res.Count,
	)
	return res, nil
}

// Export writes the records selected by q to w and returns how many were
// written. When q selects nothing, nothing is written and the count is 0.
func (s *Service) Export(ctx context.Context, q Query, format catalog.Format, w io.Writer) (int, error) {
	ds, err := s.store.Current()
	if err != nil {
		return 0, err
	}
	if q.IsEmpty() {
		return 0, ErrNoQuery
	}

	records := q.apply(ds.Records)
	if len(records) == 0 {
		return 0, nil
	}
	if err := catalog.Export(w, records, format); err != nil {
		return 0, fmt.Errorf("export %s: %w", format, err)
	}

	logging.FromContext(ctx).Info("results exported", "format", format, "count", len(records))
	return len(records), nil
}

// ExportFilename is the attachment name for an export.
func ExportFilename(format catalog.Format) string {
	return "search_results." + string(format)
}

// Clear drops the current dataset.
func (s *Service) Clear(ctx context.Context) {
	var name string
	var rows int
	if ds, err := s.store.Current(); err == nil {
		name, rows = ds.Filename, ds.Len()
	}
	s.store.Clear()
	logging.FromContext(ctx).Info("catalog cleared", "file", name, "rows", rows)

	s.record(ctx, history.Event{
		Kind:     history.KindClear,
		FileName: name,
		RowCount: rows,
		Message:  MessageCleared,
	})
}

// Status describes the current dataset.
type Status struct {
	Loaded   bool      `json:"loaded"`
	FileName string    `json:"file_name,omitempty"`
	RowCount int       `json:"row_count"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Status reports what is loaded.
func (s *Service) Status() Status {
	ds, err := s.store.Current()
	if err != nil {
		return Status{}
	}
	return Status{Loaded: true, FileName: ds.Filename, RowCount: ds.Len(), LoadedAt: ds.LoadedAt}
}

// History returns up to limit recent events, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Event, error) {
	return s.history.Recent(ctx, limit)
}

// record stores e; failures are logged, never returned, so history
// problems cannot fail an upload.
func (s *Service) record(ctx context.Context, e history.Event) {
	e.ClientIP = ClientIPFromContext(ctx)
	// The request may already be cancelled; the event is still worth keeping.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Record(rctx, e); err != nil {
		logging.FromContext(ctx).Error("failed to record history event", "kind", e.Kind, "error", err)
	}
}

// UploadLimiterStatus returns the upload slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
