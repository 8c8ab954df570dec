package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dartsearch/internal/catalog"
	"github.com/JonMunkholm/dartsearch/internal/core"
	"github.com/JonMunkholm/dartsearch/internal/core/history"
	"github.com/JonMunkholm/dartsearch/internal/logging"
	"github.com/JonMunkholm/dartsearch/internal/web/templates"
)

// errBadRequest wraps request bodies and parameters that cannot be decoded.
var errBadRequest = errors.New("invalid request body")

const (
	// maxQueryBody bounds JSON request bodies.
	maxQueryBody = 1 << 20

	defaultHistoryLimit = 20
)

// handlePage renders the search page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	facets, _ := s.service.Filters(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.Page(templates.PageData{
		Status:      s.service.Status(),
		Facets:      facets,
		MaxFileSize: s.service.MaxFileSize(),
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleHealth reports liveness and whether a catalog is loaded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"loaded": s.service.Status().Loaded,
	})
}

// FiltersResponse is the body of GET /filters.
type FiltersResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Filters catalog.FacetIndex `json:"filters"`
}

// handleFilters returns the facet options of the loaded catalog.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	facets, err := s.service.Filters(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrNoDataset) {
			// The page script expects an (empty) filters object even here.
			writeJSONStatus(w, http.StatusBadRequest, FiltersResponse{
				Message: core.MapError(err).Message,
				Filters: catalog.BuildFacets(nil),
			})
			return
		}
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, FiltersResponse{Success: true, Filters: facets})
}

// searchRequest is the body of POST /search and POST /export.
type searchRequest struct {
	core.Query
	Format string `json:"format"`
}

// decodeQuery reads a searchRequest. An empty body is an empty query.
func decodeQuery(w http.ResponseWriter, r *http.Request) (searchRequest, error) {
	var req searchRequest
	body := http.MaxBytesReader(w, r.Body, maxQueryBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return req, nil
}

// SearchResponse is the body of POST /search.
type SearchResponse struct {
	Success bool `json:"success"`
	*core.SearchResult
}

// handleSearch filters and keyword-searches the loaded catalog.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Search(r.Context(), req.Query)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, SearchResponse{Success: true, SearchResult: res})
}

// handleExport runs the same query as /search and returns the matches as a
// file attachment. A query matching nothing gets a JSON "No Match Found"
// body instead of an empty file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	format, err := parseExportFormat(req.Format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Buffered so a failure can still be reported as an error response.
	var buf bytes.Buffer
	n, err := s.service.Export(r.Context(), req.Query, format, &buf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if n == 0 {
		writeJSON(w, map[string]any{
			"success":  true,
			"message":  core.MessageNoMatch,
			"results":  []catalog.Record{},
			"count":    0,
			"no_match": true,
		})
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentType(format))
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", core.ExportFilename(format)))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("X-Result-Count", strconv.Itoa(n))
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("write export", "error", err)
	}
}

// parseExportFormat accepts "xlsx" (the default) or "csv".
func parseExportFormat(s string) (catalog.Format, error) {
	switch catalog.Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", catalog.FormatXLSX:
		return catalog.FormatXLSX, nil
	case catalog.FormatCSV:
		return catalog.FormatCSV, nil
	}
	return "", fmt.Errorf("export format %q: %w", s, core.ErrUnsupportedFile)
}

func contentType(f catalog.Format) string {
	if f == catalog.FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// handleClear drops the loaded catalog.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.service.Clear(withRequestMetadata(r.Context(), r))
	writeJSON(w, map[string]any{
		"success": true,
		"message": core.MessageCleared,
	})
}

// handleStatus describes the loaded catalog and upload slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"success": true,
		"status":  s.service.Status(),
		"uploads": s.service.UploadLimiterStatus(),
	})
}

// handleHistory returns recent upload and clear events, newest first.
// ?limit=N caps the list.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, v))
			return
		}
		limit = min(n, s.historyCapacity())
	}

	events, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"success": true,
		"events":  events,
		"count":   len(events),
	})
}

// historyCapacity is the largest list /api/history returns.
func (s *Server) historyCapacity() int {
	if c := s.cfg.History.Capacity; c > 0 {
		return c
	}
	return history.DefaultCapacity
}

// handleUploadQueueStatus returns the current state of the upload limiter.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.UploadLimiterStatus())
}
