package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// sessionMaxAge keeps the browser's comparison list across visits.
const sessionMaxAge = 30 * 24 * time.Hour

type sessionKey struct{}

// withSession makes sure the request carries an anonymous session id,
// issuing a fresh cookie when the browser has none or a malformed one.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(s.cookieName); err == nil {
			if parsed, err := uuid.Parse(c.Value); err == nil {
				id = parsed.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge / time.Second),
				HttpOnly: true,
				Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
				SameSite: http.SameSiteLaxMode,
			})
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	}
}

// sessionID returns the id set by withSession.
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
