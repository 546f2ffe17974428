package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)
	fail := func(name string, reason string) {
		checks[name] = "failed: " + reason
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if s.templates == nil {
		fail("templates", "templates not loaded")
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ready == nil:
		checks["backend"] = "ok"
	default:
		if err := s.ready(ctx); err != nil {
			fail("backend", err.Error())
		} else {
			checks["backend"] = "ok"
		}
	}

	if s.estimator == nil || s.estimator.Table() == nil {
		fail("tax_table", "not loaded")
	} else {
		checks["tax_table"] = map[string]any{
			"districts": len(s.estimator.Table().Districts),
			"status":    "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	uptime := time.Since(s.appMetrics.uptime)

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n\n", name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "# HELP http_response_time_avg_us Average response time in microseconds\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_us gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_us %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP comparison_changes_total Comparison list changes by action\n")
	fmt.Fprintf(w, "# TYPE comparison_changes_total counter\n")
	fmt.Fprintf(w, "comparison_changes_total{action=\"added\"} %d\n", s.appMetrics.added.Load())
	fmt.Fprintf(w, "comparison_changes_total{action=\"removed\"} %d\n", s.appMetrics.removed.Load())
	fmt.Fprintf(w, "comparison_changes_total{action=\"cleared\"} %d\n\n", s.appMetrics.cleared.Load())
	counter("comparison_capacity_rejections_total", "Adds refused because the list was full", s.appMetrics.capacityRejections.Load())
	counter("template_render_errors_total", "Template executions that failed", s.appMetrics.renderErrors.Load())

	if s.comparisons != nil {
		fmt.Fprintf(w, "# HELP comparison_sessions_active Session lists held in memory\n")
		fmt.Fprintf(w, "# TYPE comparison_sessions_active gauge\n")
		fmt.Fprintf(w, "comparison_sessions_active %d\n\n", s.comparisons.ActiveSessions())
	}

	if s.cacheStats != nil {
		stats := s.cacheStats()
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
		fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
		for _, name := range names {
			fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, stats[name].Entries)
		}
		fmt.Fprintf(w, "\n# HELP cache_hits_total Total cache hits\n")
		fmt.Fprintf(w, "# TYPE cache_hits_total counter\n")
		for _, name := range names {
			fmt.Fprintf(w, "cache_hits_total{cache=%q} %d\n", name, stats[name].Hits)
		}
		fmt.Fprintf(w, "\n# HELP cache_misses_total Total cache misses\n")
		fmt.Fprintf(w, "# TYPE cache_misses_total counter\n")
		for _, name := range names {
			fmt.Fprintf(w, "cache_misses_total{cache=%q} %d\n", name, stats[name].Misses)
		}
		fmt.Fprintln(w)
	}

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Requests rejected by the security filter", securityMetrics.BlockedRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", uptime.Seconds())
}

type pageChrome struct {
	Title         string
	Active        string
	Badge         BadgeView
	ReferenceHome string
}

func (s *Server) chrome(ctx context.Context, title, active string) pageChrome {
	c := pageChrome{
		Title:  title,
		Active: active,
		Badge:  BadgeView{Capacity: comparison.Capacity},
	}
	if s.comparisons != nil {
		c.Badge.Count = len(s.comparisons.List(ctx, sessionID(ctx)))
	}
	if s.estimator != nil {
		c.ReferenceHome = s.estimator.ReferenceHomeValue().FormatUSD()
	}
	return c
}

type errorPage struct {
	pageChrome
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", errorPage{
		pageChrome: s.chrome(r.Context(), http.StatusText(status), ""),
		Status:     status,
		Message:    message,
	})
}

type indexPage struct {
	pageChrome
	Districts []DistrictView
}

// handleIndex renders the district-vs-district overview.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.readContext(r.Context())
	defer cancel()

	districts, err := s.provider.ListDistricts(ctx)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to list districts",
			log.FieldError, err,
			log.FieldOperation, log.OpList)
		s.renderError(w, r, http.StatusInternalServerError, "District data is unavailable right now.")
		return
	}

	page := indexPage{pageChrome: s.chrome(r.Context(), "Olentangy vs Dublin", "overview")}
	for _, d := range districts {
		page.Districts = append(page.Districts, newDistrictView(d, newTaxBucketView(s.estimator.DefaultBucket(d.LEAID))))
	}
	s.render(w, r, http.StatusOK, "index.html", page)
}

type districtPage struct {
	pageChrome
	District DistrictView
	Filters  []KindFilterView
	Kind     string
	Schools  []SchoolCardView
	Full     bool
}

// handleDistrict renders a district's schools, optionally filtered by kind.
func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	leaid := r.PathValue("leaid")
	kind, err := ParseKindFilter(r.URL.Query())
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Unknown school type. Choose All, Elementary, Middle or High.")
		return
	}

	ctx, cancel := s.readContext(r.Context())
	defer cancel()

	district, err := s.provider.GetDistrict(ctx, leaid)
	if errors.Is(err, provider.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "We don't have data for that district.")
		return
	}
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to load district",
			log.FieldError, err,
			log.FieldDistrictID, leaid)
		s.renderError(w, r, http.StatusInternalServerError, "District data is unavailable right now.")
		return
	}

	schools, err := s.provider.ListSchoolsWithEnrollment(ctx, leaid)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to list schools",
			log.FieldError, err,
			log.FieldDistrictID, leaid)
		s.renderError(w, r, http.StatusInternalServerError, "School data is unavailable right now.")
		return
	}

	sid := sessionID(r.Context())
	full := s.comparisons.Remaining(r.Context(), sid) == 0
	page := districtPage{
		pageChrome: s.chrome(r.Context(), district.Name, "district-"+leaid),
		District:   newDistrictView(district, newTaxBucketView(s.estimator.DefaultBucket(leaid))),
		Filters:    newKindFilters(schools, kind),
		Kind:       string(kind),
		Full:       full,
	}
	for _, sc := range core.FilterByKind(schools, kind) {
		signal := s.estimator.SignalFor(leaid, sc.City, sc.Zip)
		card := newSchoolCardView(sc.School, sc.Enrollment, district.Name, newTaxBucketView(s.estimator.Estimate(leaid, signal)))
		card.PerPupil = formatMoney(district.PerPupilExpenditure)
		card.Toggle = ToggleView{
			SchoolID: sc.NCESSCH,
			Pinned:   s.comparisons.Contains(r.Context(), sid, sc.NCESSCH),
			Full:     full,
		}
		page.Schools = append(page.Schools, card)
	}

	s.requestLogger(r).DebugContext(r.Context(), "Rendering district",
		log.FieldDistrictID, leaid,
		log.FieldSchoolKind, page.Kind,
		"schools", len(page.Schools))
	s.render(w, r, http.StatusOK, "district.html", page)
}
