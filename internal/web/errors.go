package web

// errors.go renders the few responses that are real HTTP errors: unknown
// routes, wrong methods and template failures. Upload outcomes are never
// HTTP errors; they are lines on the page.
//
// Technical details are logged with the request ID. The client gets the
// mapped user message, as JSON or plain text depending on Accept.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/fieldsync/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errNotFound         = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

// ErrorResponse is the JSON body of an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
}

// respondError logs err and writes a sanitized response with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := ErrorResponse{Error: http.StatusText(statusCode)}
	if core.IsUserFacing(err) {
		resp.Message = userMsg.Message
		resp.Action = userMsg.Action
		resp.Code = userMsg.Code
	}

	if wantsJSON(r) {
		writeJSONStatus(w, statusCode, resp)
		return
	}
	text := resp.Error
	if resp.Message != "" {
		text = resp.Message + " (" + resp.Code + ")"
	}
	http.Error(w, text, statusCode)
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// writeJSON encodes v as JSON with a 200 status.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// headers are already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
