// README: Pricing handlers for single, batch and per-date quotes and cache invalidation.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/types"
)

// maxBatch caps the packages priced by one batch request.
const maxBatch = 50

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

type quoteReq struct {
	pricing.Request
	ShiftID   string `json:"shift_id"`
	ChildAges []int  `json:"child_ages"`
}

func (r quoteReq) request() pricing.Request {
	req := r.Request
	for _, age := range r.ChildAges {
		req.Children = append(req.Children, pricing.Child{Age: age})
	}
	return req
}

type displayTotals struct {
	Accommodation string `json:"accommodation_total"`
	Transport     string `json:"transport_total"`
	Total         string `json:"total"`
	PricePerNight string `json:"price_per_night"`
}

type quoteResp struct {
	PackageID types.ID `json:"package_id"`
	pricing.Result
	Display *displayTotals `json:"display,omitempty"`
}

func newQuoteResp(packageID types.ID, res pricing.Result, tag language.Tag) quoteResp {
	out := quoteResp{PackageID: packageID, Result: res}
	if tag != language.Und {
		format := func(v types.Money) string { return v.Format(tag) }
		out.Display = &displayTotals{
			Accommodation: format(types.NewMoney(res.AccommodationTotal, res.Currency)),
			Transport:     format(types.NewMoney(res.TransportTotal, res.Currency)),
			Total:         format(res.TotalMoney()),
			PricePerNight: format(types.NewMoney(res.PricePerNight, res.Currency)),
		}
	}
	return out
}

// Calculate quotes any package for agency staff.
func (h *PricingHandler) Calculate(c *gin.Context) {
	h.calculate(c, false)
}

// CalculatePublic quotes a published package for the booking site.
func (h *PricingHandler) CalculatePublic(c *gin.Context) {
	h.calculate(c, true)
}

func (h *PricingHandler) calculate(c *gin.Context, public bool) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing package id")
		return
	}
	tag, ok := displayLocale(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid locale")
		return
	}
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res, err := h.pricing.Quote(c.Request.Context(), pricing.QuoteCommand{
		PackageID:  types.ID(id),
		Request:    req.request(),
		ShiftID:    types.ID(req.ShiftID),
		PublicOnly: public,
	})
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, newQuoteResp(types.ID(id), res, tag))
}

type batchReq struct {
	quoteReq
	PackageIDs []string `json:"package_ids"`
}

type batchEntry struct {
	PackageID types.ID       `json:"package_id"`
	Quote     *quoteResp     `json:"quote,omitempty"`
	Error     *errorResponse `json:"error,omitempty"`
}

// CalculateBatch prices one stay across several published packages.
func (h *PricingHandler) CalculateBatch(c *gin.Context) {
	tag, ok := displayLocale(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid locale")
		return
	}
	var req batchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.PackageIDs) == 0 || len(req.PackageIDs) > maxBatch {
		writeError(c, http.StatusBadRequest, "package_ids must list 1 to 50 packages")
		return
	}
	cmds := make([]pricing.QuoteCommand, len(req.PackageIDs))
	for i, id := range req.PackageIDs {
		cmds[i] = pricing.QuoteCommand{
			PackageID:  types.ID(id),
			Request:    req.request(),
			ShiftID:    types.ID(req.ShiftID),
			PublicOnly: true,
		}
	}
	out := make([]batchEntry, 0, len(cmds))
	for _, q := range h.pricing.QuoteMany(c.Request.Context(), cmds) {
		entry := batchEntry{PackageID: q.PackageID}
		if q.Err != nil {
			_, resp := pricingFailure(q.Err)
			entry.Error = &resp
		} else {
			resp := newQuoteResp(q.PackageID, *q.Result, tag)
			entry.Quote = &resp
		}
		out = append(out, entry)
	}
	writeJSON(c, http.StatusOK, gin.H{"results": out})
}

// PriceForDate returns the per-person nightly price on one date.
func (h *PricingHandler) PriceForDate(c *gin.Context) {
	id := c.Param("id")
	date, err := types.ParseDate(c.Query("date"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD", Code: "invalid_input", Field: "date"})
		return
	}
	res, err := h.pricing.PriceForDate(c.Request.Context(), types.ID(id), date,
		types.ID(c.Query("room_type_id")), pricing.MealPlan(c.DefaultQuery("meal_plan", string(pricing.MealPlanBreakfast))), true)
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// InvalidateCache drops cached quotes after an agent edits rates.
func (h *PricingHandler) InvalidateCache(c *gin.Context) {
	id := c.Param("id")
	n, err := h.pricing.InvalidateCache(c.Request.Context(), types.ID(id))
	if err != nil {
		if pricing.IsDomainError(err) {
			writePricingError(c, err)
			return
		}
		writeError(c, http.StatusServiceUnavailable, "quote cache unavailable")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"package_id": id, "removed": n})
}
