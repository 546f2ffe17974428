package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"schoolcompare/internal/cache"
	"schoolcompare/internal/log"
	"schoolcompare/internal/middleware/ratelimit"
	"schoolcompare/internal/middleware/security"
	"schoolcompare/internal/middleware/trace"
	"schoolcompare/internal/provider"
	"schoolcompare/internal/services"
	"schoolcompare/internal/tax"
	appweb "schoolcompare/web"
)

// readTimeout bounds every data provider call made while serving a page.
const readTimeout = 7 * time.Second

// Dependencies are the collaborators the web layer renders from.
type Dependencies struct {
	Provider    provider.Provider
	Popularity  provider.PopularityReader
	Comparisons *services.ComparisonService
	Estimator   *tax.Estimator

	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// CacheStats feeds /metrics. Optional.
	CacheStats func() map[string]cache.Stats

	Logger            *log.Logger
	SessionCookieName string
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *log.Logger

	provider    provider.Provider
	popularity  provider.PopularityReader
	comparisons *services.ComparisonService
	estimator   *tax.Estimator
	ready       func(ctx context.Context) error
	cacheStats  func() map[string]cache.Stats
	cookieName  string

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime             time.Time
	added              atomic.Int64
	removed            atomic.Int64
	cleared            atomic.Int64
	capacityRejections atomic.Int64
	renderErrors       atomic.Int64
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	cookieName := deps.SessionCookieName
	if cookieName == "" {
		cookieName = "compare_session"
	}

	s := &Server{
		logger:           logger.WithComponent(log.ComponentHTTP),
		provider:         deps.Provider,
		popularity:       deps.Popularity,
		comparisons:      deps.Comparisons,
		estimator:        deps.Estimator,
		ready:            deps.Ready,
		cacheStats:       deps.CacheStats,
		cookieName:       cookieName,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	// Pages
	mux.HandleFunc("GET /{$}", s.withSession(s.handleIndex))
	mux.HandleFunc("GET /districts/{leaid}", s.withSession(s.handleDistrict))
	mux.HandleFunc("GET /compare", s.withSession(s.handleCompare))

	// Comparison mutations
	mux.HandleFunc("/compare/add", s.withSession(s.handleCompareAdd))
	mux.HandleFunc("/compare/remove", s.withSession(s.handleCompareRemove))
	mux.HandleFunc("/compare/clear", s.withSession(s.handleCompareClear))

	// UI partials
	mux.HandleFunc("GET /ui/compare", s.withSession(s.handleComparePartial))
	mux.HandleFunc("GET /ui/compare-badge", s.withSession(s.handleCompareBadge))
	mux.HandleFunc("GET /ui/popular", s.handlePopular)

	// JSON API
	mux.HandleFunc("GET /api/schools/{ncessch}", s.handleAPISchool)
	mux.HandleFunc("GET /api/tax", s.handleAPITax)

	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit)(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)
	guarded := s.securityDetector.Middleware(logger)(headers)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(guarded),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.requestLogger(r).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many changes. Please wait a minute and try again.").
		Reswap("#notifications", "innerHTML").
		Write(w)
}

// requestLogger returns the request-scoped logger set by the trace
// middleware, falling back to the server logger.
func (s *Server) requestLogger(r *http.Request) *log.Logger {
	if id := trace.GetRequestID(r.Context()); id != "" {
		return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	}
	return s.logger
}

func (s *Server) readContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, readTimeout)
}

// render executes a template into a buffer so a failing template never
// leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.appMetrics.renderErrors.Add(1)
		s.requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender,
			"template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderString executes a partial template to a string for the HTMX builder.
func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.appMetrics.renderErrors.Add(1)
		return "", err
	}
	return buf.String(), nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"pluralize": pluralize,
		"add":       func(a, b int) int { return a + b },
	}
}
