package http

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
	"schoolcompare/internal/savings"
)

// detailFetchLimit caps concurrent detail reads on the compare page.
const detailFetchLimit = 4

const capacityMessage = "You can compare up to 4 schools. Remove one to add another."

// CompareView is the body of the compare page.
type CompareView struct {
	Schools        []SchoolCardView
	Count          int
	Capacity       int
	Remaining      int
	MixedDistricts bool
	Savings        *SavingsView
	// Unresolved lists schools no tax figure could be found for.
	Unresolved []string
}

type comparePage struct {
	pageChrome
	Compare CompareView
}

func (s *Server) buildCompareView(ctx context.Context, sid string) CompareView {
	refs := s.comparisons.List(ctx, sid)
	view := CompareView{
		Schools:        make([]SchoolCardView, len(refs)),
		Count:          len(refs),
		Capacity:       comparison.Capacity,
		Remaining:      s.comparisons.Remaining(ctx, sid),
		MixedDistricts: mixedDistricts(refs),
	}

	readCtx, cancel := s.readContext(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(detailFetchLimit)
	for i, ref := range refs {
		g.Go(func() error {
			tax := newTaxBucketView(s.estimator.Estimate(ref.DistrictID, ref.MunicipalitySignal))
			detail, err := s.provider.GetSchoolDetail(readCtx, ref.ID)
			if err != nil {
				if !errors.Is(err, provider.ErrNotFound) {
					log.FromContext(ctx).WarnContext(ctx, "Failed to load pinned school",
						log.FieldComponent, log.ComponentHTTP,
						log.FieldError, err,
						log.FieldSchoolID, ref.ID)
				}
				card := missingSchoolCardView(ref, tax)
				card.Toggle = ToggleView{SchoolID: ref.ID, Pinned: true}
				view.Schools[i] = card
				return nil
			}
			card := newSchoolCardView(detail.School, detail.Enrollment, detail.DistrictName, tax)
			card.PerPupil = formatMoney(detail.PerPupilExpenditure)
			card.Toggle = ToggleView{SchoolID: ref.ID, Pinned: true}
			view.Schools[i] = card
			return nil
		})
	}
	_ = g.Wait()

	names := make(map[string]string, len(refs))
	for _, ref := range refs {
		names[ref.ID] = ref.Name
	}
	sum, ok := savings.Summarize(refs, savings.FromEstimator(s.estimator))
	if ok {
		view.Savings = newSavingsView(sum, names)
	}
	for _, id := range sum.Unresolved {
		view.Unresolved = append(view.Unresolved, names[id])
	}
	return view
}

// handleCompare renders the comparison page.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	page := comparePage{
		pageChrome: s.chrome(r.Context(), "Compare schools", "compare"),
		Compare:    s.buildCompareView(r.Context(), sessionID(r.Context())),
	}
	s.render(w, r, http.StatusOK, "compare.html", page)
}

// handleComparePartial re-renders the compare page body after a change.
func (s *Server) handleComparePartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "compare_content", s.buildCompareView(r.Context(), sessionID(r.Context())))
}

// handleCompareBadge renders the "Comparing N schools" badge.
func (s *Server) handleCompareBadge(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "compare_badge", BadgeView{
		Count:    len(s.comparisons.List(r.Context(), sessionID(r.Context()))),
		Capacity: comparison.Capacity,
	})
}

// parseSchoolIDBody reads the ncessch field from a form or JSON body.
func parseSchoolIDBody(r *http.Request) (string, *HTMXResponseBuilder) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		return "", BadRequestError("Invalid request format")
	}
	id, err := ParseSchoolID(parser.Get("ncessch"))
	if err != nil {
		return "", UnprocessableEntityError("Invalid school id")
	}
	return id, nil
}

// handleCompareAdd pins a school to the session's comparison list.
func (s *Server) handleCompareAdd(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, resp := parseSchoolIDBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	sid := sessionID(ctx)
	logger := s.requestLogger(r)

	readCtx, cancel := s.readContext(ctx)
	detail, err := s.provider.GetSchoolDetail(readCtx, id)
	cancel()
	if errors.Is(err, provider.ErrNotFound) {
		NotFoundError("School not found").Write(w)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load school for comparison",
			log.FieldError, err,
			log.FieldSchoolID, id)
		InternalServerError("Could not add school. Please try again.").Write(w)
		return
	}

	signal := s.estimator.SignalFor(detail.LEAID, detail.City, detail.Zip)
	ref := detail.School.Ref(detail.DistrictName, signal)

	added, err := s.comparisons.Add(ctx, sid, ref)
	switch {
	case errors.Is(err, core.ErrCapacityExceeded):
		s.appMetrics.capacityRejections.Add(1)
		if !isHTMX(r) {
			s.renderError(w, r, http.StatusConflict, capacityMessage)
			return
		}
		ConflictError(capacityMessage).
			Reswap("#notifications", "innerHTML").
			Write(w)
		return
	case errors.Is(err, core.ErrInvalidSchool):
		logger.WarnContext(ctx, "Rejected school reference",
			log.FieldError, err,
			log.FieldSchoolID, id,
			"error_type", log.ErrorTypeValidation)
		UnprocessableEntityError("This school cannot be compared").Write(w)
		return
	case err != nil:
		logger.ErrorContext(ctx, "Failed to add school",
			log.FieldError, err,
			log.FieldSchoolID, id)
		InternalServerError("Could not add school. Please try again.").Write(w)
		return
	}

	if !isHTMX(r) {
		redirectBack(w, r, "/compare")
		return
	}

	remaining := s.comparisons.Remaining(ctx, sid)
	builder := NewHTMXResponse()
	if added {
		s.appMetrics.added.Add(1)
		builder.TriggerComparisonChanged(comparison.Capacity-remaining, remaining).
			TriggerSuccessNotification("Added " + ref.Name + " to your comparison")
	} else {
		builder.TriggerNotification(NotificationInfo, ref.Name+" is already in your comparison", 3000)
	}
	s.writeToggle(w, r, builder, ToggleView{SchoolID: id, Pinned: true, Full: remaining == 0})
}

// handleCompareRemove unpins a school.
func (s *Server) handleCompareRemove(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	id, resp := parseSchoolIDBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	ctx := r.Context()
	sid := sessionID(ctx)
	removed := s.comparisons.Remove(ctx, sid, id)

	if !isHTMX(r) {
		redirectBack(w, r, "/compare")
		return
	}

	builder := NewHTMXResponse()
	if removed {
		s.appMetrics.removed.Add(1)
		remaining := s.comparisons.Remaining(ctx, sid)
		builder.TriggerComparisonChanged(comparison.Capacity-remaining, remaining)
	}
	s.writeToggle(w, r, builder, ToggleView{SchoolID: id})
}

// handleCompareClear empties the session's comparison list.
func (s *Server) handleCompareClear(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	ids := s.comparisons.Clear(r.Context(), sessionID(r.Context()))
	if len(ids) > 0 {
		s.appMetrics.cleared.Add(1)
	}

	if !isHTMX(r) {
		redirectBack(w, r, "/compare")
		return
	}

	builder := NewHTMXResponse().Status(http.StatusNoContent)
	if len(ids) > 0 {
		builder.TriggerComparisonChanged(0, comparison.Capacity).
			TriggerNotification(NotificationInfo, "Comparison cleared", 3000)
	}
	builder.Write(w)
}

func (s *Server) writeToggle(w http.ResponseWriter, r *http.Request, builder *HTMXResponseBuilder, toggle ToggleView) {
	html, err := s.renderString("compare_toggle", toggle)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to render toggle",
			log.FieldError, err,
			log.FieldOperation, log.OpRender)
		builder.Status(http.StatusNoContent).Write(w)
		return
	}
	builder.BodyHTML(html).Write(w)
}

// handlePopular renders the most-compared schools.
func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	view := PopularView{}
	if s.popularity == nil {
		s.render(w, r, http.StatusOK, "popular", view)
		return
	}

	ctx, cancel := s.readContext(r.Context())
	defer cancel()

	top, err := s.popularity.TopCompared(ctx, 5)
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to read popular schools",
			log.FieldError, err,
			log.FieldOperation, log.OpRead)
		s.render(w, r, http.StatusOK, "popular", view)
		return
	}

	for _, p := range top {
		detail, err := s.provider.GetSchoolDetail(ctx, p.SchoolID)
		if err != nil {
			continue
		}
		view.Rows = append(view.Rows, PopularRow{
			ID:           p.SchoolID,
			Name:         detail.Name,
			DistrictID:   detail.LEAID,
			DistrictName: detail.DistrictName,
			Added:        p.Added,
		})
	}
	s.render(w, r, http.StatusOK, "popular", view)
}
