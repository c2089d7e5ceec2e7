package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/fieldsync/internal/config"
)

// APIKeyHeader carries the operator key that unlocks the upload form.
// It is unrelated to the CRM token typed into the form itself.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth gates requests behind X-API-Key when cfg.RequireAPIKey is set.
// A missing key gets 401, an unknown key 403. With RequireAPIKey set and no
// keys configured every request is refused.
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		keys[i] = []byte(k)
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			switch {
			case key == "":
				slog.Warn("auth: missing API key", "path", r.URL.Path, "ip", clientIP(r.RemoteAddr))
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
			case !validKey([]byte(key), keys):
				slog.Warn("auth: invalid API key", "path", r.URL.Path, "ip", clientIP(r.RemoteAddr))
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// validKey compares against every configured key in constant time.
func validKey(key []byte, keys [][]byte) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare(key, k)
	}
	return match == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
