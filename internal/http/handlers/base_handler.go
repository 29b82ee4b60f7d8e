// README: Base handler utilities (JSON helpers, error mapping, display locale).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"travelcrm/internal/modules/offer"
	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/modules/upsell"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Field   string         `json:"field,omitempty"`
	Stage   pricing.Stage  `json:"stage,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// pricingFailure maps a pricing error to its status and response body.
func pricingFailure(err error) (int, errorResponse) {
	resp := errorResponse{Error: err.Error()}
	var se *pricing.StageError
	if errors.As(err, &se) {
		resp.Stage = se.Stage
	}

	var (
		ve   *pricing.ValidationError
		nf   *pricing.NotFoundError
		cov  *pricing.CoverageError
		ovl  *pricing.OverlapError
		meal *pricing.MealPlanUnavailableError
		nr   *pricing.NoRatesFoundError
	)
	switch {
	case errors.As(err, &ve):
		resp.Code, resp.Field, resp.Error = "invalid_input", ve.Field, ve.Error()
		if errors.Is(err, pricing.ErrInvalidDateRange) {
			resp.Code = "invalid_date_range"
		}
		return http.StatusBadRequest, resp
	case errors.Is(err, pricing.ErrInvalidInput):
		resp.Code = "invalid_input"
		return http.StatusBadRequest, resp
	case errors.As(err, &nf):
		resp.Code = "not_found"
		resp.Details = map[string]any{"entity": nf.Entity, "id": nf.ID}
		return http.StatusNotFound, resp
	case errors.Is(err, pricing.ErrNotFound):
		resp.Code = "not_found"
		return http.StatusNotFound, resp
	case errors.Is(err, pricing.ErrNoIntervalsFound):
		resp.Code = "no_intervals_found"
	case errors.As(err, &cov):
		resp.Code = "incomplete_rate_coverage"
		resp.Details = map[string]any{"nights": cov.Requested, "nights_covered": cov.Covered, "gaps": cov.Gaps}
	case errors.As(err, &ovl):
		resp.Code = "overlapping_intervals"
		resp.Details = map[string]any{"intervals": []string{string(ovl.First.ID), string(ovl.Second.ID)}}
	case errors.As(err, &meal):
		resp.Code = "meal_plan_unavailable"
		resp.Details = map[string]any{"interval_id": meal.IntervalID, "interval_name": meal.IntervalName, "meal_plan": meal.MealPlan}
	case errors.As(err, &nr):
		resp.Code = "no_rates_found"
		resp.Details = map[string]any{"unit_id": nr.UnitID}
		if nr.IntervalID != "" {
			resp.Details["interval_id"] = nr.IntervalID
		}
	default:
		log.Printf("http: pricing failure: %v", err)
		return http.StatusInternalServerError, errorResponse{Error: "internal error"}
	}
	return http.StatusUnprocessableEntity, resp
}

func writePricingError(c *gin.Context, err error) {
	status, resp := pricingFailure(err)
	writeJSON(c, status, resp)
}

func writeOfferError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, offer.ErrBadRequest):
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, offer.ErrNotFound):
		writeJSON(c, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, offer.ErrInvalidState):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), Code: "invalid_state"})
	case errors.Is(err, offer.ErrConflict):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), Code: "conflict"})
	case errors.Is(err, upsell.ErrNotOnRequest):
		writeJSON(c, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Code: "not_on_request"})
	default:
		writePricingError(c, err)
	}
}

// displayLocale reads the optional ?locale= query. ok is false when the
// value does not parse; the zero tag means no display strings were asked for.
func displayLocale(c *gin.Context) (tag language.Tag, ok bool) {
	raw := c.Query("locale")
	if raw == "" {
		return language.Und, true
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
