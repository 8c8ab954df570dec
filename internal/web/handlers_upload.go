package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/dartsearch/internal/core"
)

const (
	// multipartOverhead is body allowance beyond the file for form
	// boundaries and part headers.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of the form is held in memory before
	// spilling to temporary files.
	multipartMemory = 32 << 20
)

// UploadResponse is the body of a successful POST /upload.
type UploadResponse struct {
	Success bool `json:"success"`
	*core.UploadResult
}

// handleUpload loads the catalog file sent as the multipart field "file".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxFileSize()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, classifyFormError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, classifyFormError(err))
		return
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	res, err := s.service.Upload(ctx, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, UploadResponse{Success: true, UploadResult: res})
}

// classifyFormError maps multipart parsing failures onto service errors.
func classifyFormError(err error) error {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return fmt.Errorf("%w: %w", core.ErrFileTooLarge, err)
	case errors.Is(err, http.ErrMissingFile),
		errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, http.ErrMissingBoundary):
		return core.ErrNoFile
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}
