package web

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/JonMunkholm/fieldsync/internal/core"
	"github.com/JonMunkholm/fieldsync/internal/logging"
	"github.com/JonMunkholm/fieldsync/internal/web/templates"
)

// Form field names.
const (
	fieldToken = "token"
	fieldFile  = "file"
)

const (
	// multipartMemory is how much of a form is held in memory before
	// parts spill to temp files.
	multipartMemory = 8 << 20

	// formOverhead covers the token field and multipart framing on top of
	// the file itself.
	formOverhead = 64 << 10
)

// handleForm renders the empty upload form.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, templates.UploadPageParams{})
}

// handleUpload runs one batch and renders its log under the form.
// The status is 200 whatever happened to the rows.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			logging.FromContext(ctx).Warn("upload rejected", "reason", "too large", "limit_bytes", maxSize)
			s.renderPage(w, r, templates.UploadPageParams{
				Log: []string{core.FormatUserError(core.ErrFileTooLarge)},
			})
			return
		}
		// Non-multipart posts fall through with whatever ParseForm found;
		// the service reports the missing file.
		logging.FromContext(ctx).Debug("multipart parse failed", "error", err)
	}
	if r.MultipartForm != nil {
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()
	}

	req := core.UploadRequest{Token: r.FormValue(fieldToken)}

	file, header, err := r.FormFile(fieldFile)
	if err == nil {
		defer file.Close()
		if header.Size > maxSize {
			s.renderPage(w, r, templates.UploadPageParams{
				Log: []string{core.FormatUserError(core.ErrFileTooLarge)},
			})
			return
		}
		req.File = file
		req.Filename = header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		logging.FromContext(ctx).Debug("form file unavailable", "error", err)
	}

	result := s.service.ProcessUpload(ctx, req)

	s.renderPage(w, r, templates.UploadPageParams{
		Log:     result.Lines,
		BatchID: result.BatchID,
	})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "alive"})
}

// handleStatus reports upload slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"uploads": s.service.UploadLimiterStatus(),
	})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, p templates.UploadPageParams) {
	p.MaxFileSizeMB = s.cfg.Upload.MaxFileSize >> 20

	var buf bytes.Buffer
	if err := templates.UploadPage(p).Render(r.Context(), &buf); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// isTooLarge reports whether err came from the MaxBytesReader limit.
func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
