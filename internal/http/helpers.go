package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"schoolcompare/internal/log"
)

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// isHTMX reports whether the request was issued by HTMX rather than a plain
// form submission.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirectBack sends a non-HTMX form post back to the page it came from.
// Only same-host referers with a local path are honoured.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref, err := url.Parse(r.Referer()); err == nil && localPath(ref.Path) && (ref.Host == "" || ref.Host == r.Host) {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath rejects paths a browser would read as another host ("//x", "/\x").
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode JSON response", log.FieldError, err)
	}
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, apiError{Error: code, Message: message})
}
