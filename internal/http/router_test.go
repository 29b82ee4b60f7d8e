// README: Router tests; exercises routes, auth gating and error mapping over in-memory collaborators.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"travelcrm/internal/config"
	httptransport "travelcrm/internal/http"
	"travelcrm/internal/infra"
	"travelcrm/internal/modules/offer"
	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/modules/upsell"
	"travelcrm/internal/types"
)

type stubVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

type catalog struct {
	inputs map[types.ID]pricing.Input
}

func (c *catalog) GetPackage(_ context.Context, id types.ID) (pricing.Package, error) {
	in, ok := c.inputs[id]
	if !ok {
		return pricing.Package{}, &pricing.NotFoundError{Entity: "package", ID: id}
	}
	return in.Package, nil
}

func (c *catalog) LoadInput(_ context.Context, id types.ID, q pricing.InputQuery) (pricing.Input, error) {
	in, ok := c.inputs[id]
	if !ok {
		return pricing.Input{}, &pricing.NotFoundError{Entity: "package", ID: id}
	}
	in.Request = q.Request
	return in, nil
}

func (c *catalog) ListRoomTypes(_ context.Context, id types.ID) ([]pricing.RoomType, error) {
	return []pricing.RoomType{
		{ID: "dbl", Code: "DBL", Name: "Double", MaxPersons: 2},
		{ID: "sea", Code: "SEA", Name: "Sea view", MaxPersons: 2},
	}, nil
}

type offerRepo struct {
	mu     sync.Mutex
	offers map[types.ID]offer.Offer
	events []offer.Event
}

func (r *offerRepo) Create(_ context.Context, o *offer.Offer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers[o.ID] = *o
	return nil
}

func (r *offerRepo) Get(_ context.Context, id types.ID) (*offer.Offer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return nil, offer.ErrNotFound
	}
	return &o, nil
}

func (r *offerRepo) UpdateStatus(_ context.Context, id types.ID, from, to offer.Status, version int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.offers[id]
	if o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	o.Status, o.StatusVersion = to, version+1
	r.offers[id] = o
	return true, nil
}

func (r *offerRepo) AppendEvent(_ context.Context, e *offer.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *offerRepo) ListEvents(_ context.Context, id types.ID) ([]offer.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []offer.Event
	for _, e := range r.events {
		if e.OfferID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func date(s string) types.Date { return types.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hotelInput(published bool) pricing.Input {
	return pricing.Input{
		Package: pricing.Package{ID: "hotel", Kind: pricing.KindOnRequest, Currency: "EUR", Published: published},
		Intervals: []pricing.PriceInterval{
			{ID: "jul1", Name: "Jul I", StartDate: date("2024-07-01"), EndDate: date("2024-07-04")},
			{ID: "jul2", Name: "Jul II", StartDate: date("2024-07-05"), EndDate: date("2024-07-10")},
		},
		Rates: pricing.PerPersonRateTable{
			{IntervalID: "jul1", RoomTypeID: "dbl", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: dec("40")}},
			{IntervalID: "jul2", RoomTypeID: "dbl", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: dec("45")}},
			{IntervalID: "jul1", RoomTypeID: "sea", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: dec("60")}},
			{IntervalID: "jul2", RoomTypeID: "sea", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: dec("65")}},
		},
	}
}

func buildTestRouter(t *testing.T, verifier infra.TokenVerifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hidden := hotelInput(false)
	hidden.Package.ID = "draft-hotel"
	cat := &catalog{inputs: map[types.ID]pricing.Input{"hotel": hotelInput(true), "draft-hotel": hidden}}
	pricingSvc := pricing.NewService(cat, nil, config.PricingConfig{
		FetchTimeout:     time.Second,
		BatchConcurrency: 2,
		DefaultCurrency:  "EUR",
	})
	offerSvc := offer.NewService(&offerRepo{offers: map[types.ID]offer.Offer{}}, pricingSvc)
	return httptransport.NewRouter(httptransport.RouterDeps{
		Pricing:  pricingSvc,
		Offer:    offerSvc,
		Upsell:   upsell.NewService(pricingSvc),
		Verifier: verifier,
	})
}

func agent() *stubVerifier {
	return &stubVerifier{token: &infra.FirebaseToken{UID: "agent-1", Claims: map[string]interface{}{"role": "agent"}}}
}

func doRequest(r *gin.Engine, method, path string, body any, authHeader string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return out
}

func stay(overrides map[string]any) map[string]any {
	body := map[string]any{
		"check_in":             "2024-07-03",
		"check_out":            "2024-07-08",
		"adults":               2,
		"room_or_apartment_id": "dbl",
		"meal_plan":            "BB",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func TestHealth(t *testing.T) {
	w := doRequest(buildTestRouter(t, agent()), http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestPublicCalculate(t *testing.T) {
	r := buildTestRouter(t, agent())
	w := doRequest(r, http.MethodPost, "/api/public/packages/hotel/calculate-price?locale=en", stay(nil), "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["total"] != "430" || body["accommodation_total"] != "430" || body["price_per_night"] != "86" {
		t.Fatalf("unexpected totals: %v", body)
	}
	if lines, _ := body["breakdown"].([]any); len(lines) != 2 {
		t.Fatalf("breakdown = %v", body["breakdown"])
	}
	display, _ := body["display"].(map[string]any)
	if total, _ := display["total"].(string); !strings.Contains(total, "430") {
		t.Fatalf("display = %v", body["display"])
	}
}

func TestPublicCalculateErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		code   string
	}{
		{"unpublished", "/api/public/packages/draft-hotel/calculate-price", stay(nil), http.StatusNotFound, "not_found"},
		{"unknown package", "/api/public/packages/nope/calculate-price", stay(nil), http.StatusNotFound, "not_found"},
		{"reversed dates", "/api/public/packages/hotel/calculate-price", stay(map[string]any{"check_out": "2024-07-02"}), http.StatusBadRequest, "invalid_date_range"},
		{"meal plan", "/api/public/packages/hotel/calculate-price", stay(map[string]any{"meal_plan": "AI"}), http.StatusUnprocessableEntity, "meal_plan_unavailable"},
		{"coverage", "/api/public/packages/hotel/calculate-price", stay(map[string]any{"check_out": "2024-07-14"}), http.StatusUnprocessableEntity, "incomplete_rate_coverage"},
		{"no intervals", "/api/public/packages/hotel/calculate-price", stay(map[string]any{"check_in": "2024-09-01", "check_out": "2024-09-04"}), http.StatusUnprocessableEntity, "no_intervals_found"},
		{"no rates", "/api/public/packages/hotel/calculate-price", stay(map[string]any{"room_or_apartment_id": "suite"}), http.StatusUnprocessableEntity, "no_rates_found"},
		{"bad locale", "/api/public/packages/hotel/calculate-price?locale=123-456", stay(nil), http.StatusBadRequest, ""},
	}
	r := buildTestRouter(t, agent())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, tc.path, tc.body, "")
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
			if tc.code != "" {
				if got := decode(t, w)["code"]; got != tc.code {
					t.Fatalf("code = %v, want %s", got, tc.code)
				}
			}
		})
	}
}

func TestAgencyCalculateRequiresAuth(t *testing.T) {
	w := doRequest(buildTestRouter(t, &stubVerifier{err: errors.New("expired")}), http.MethodPost,
		"/api/packages/draft-hotel/calculate-price", stay(nil), "Bearer old")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	customer := &stubVerifier{token: &infra.FirebaseToken{UID: "c1", Claims: map[string]interface{}{}}}
	w = doRequest(buildTestRouter(t, customer), http.MethodPost, "/api/packages/draft-hotel/calculate-price", stay(nil), "Bearer tok")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	// agents see unpublished packages
	w = doRequest(buildTestRouter(t, agent()), http.MethodPost, "/api/packages/draft-hotel/calculate-price", stay(nil), "Bearer tok")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBatchCalculate(t *testing.T) {
	r := buildTestRouter(t, agent())
	body := stay(map[string]any{"package_ids": []string{"hotel", "draft-hotel"}, "room_or_apartment_id": "", "meal_plan": ""})
	w := doRequest(r, http.MethodPost, "/api/public/packages/calculate-prices", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	results, _ := decode(t, w)["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("results = %v", results)
	}
	first, _ := results[0].(map[string]any)
	quote, _ := first["quote"].(map[string]any)
	if first["package_id"] != "hotel" || quote["total"] != "430" {
		t.Fatalf("first = %v", first)
	}
	second, _ := results[1].(map[string]any)
	errBody, _ := second["error"].(map[string]any)
	if errBody["code"] != "not_found" {
		t.Fatalf("second = %v", second)
	}

	w = doRequest(r, http.MethodPost, "/api/public/packages/calculate-prices", stay(nil), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty batch: expected 400, got %d", w.Code)
	}
}

func TestPriceForDate(t *testing.T) {
	r := buildTestRouter(t, agent())
	w := doRequest(r, http.MethodGet, "/api/public/packages/hotel/price-for-date?date=2024-07-07&room_type_id=sea&meal_plan=BB", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["price_per_person"] != "65" || body["interval_id"] != "jul2" {
		t.Fatalf("body = %v", body)
	}

	w = doRequest(r, http.MethodGet, "/api/public/packages/hotel/price-for-date?date=07/07/2024&room_type_id=sea", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d", w.Code)
	}
}

func TestOfferFlowAndUpsells(t *testing.T) {
	r := buildTestRouter(t, agent())
	auth := "Bearer tok"

	w := doRequest(r, http.MethodPost, "/api/offers", stay(map[string]any{"package_id": "hotel", "customer_name": "Ana"}), auth)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	id, _ := created["id"].(string)
	if id == "" || created["total"] != "430" || created["status"] != "draft" || created["created_by"] != "agent-1" {
		t.Fatalf("created = %v", created)
	}

	// drafts are not visible to customers
	if w := doRequest(r, http.MethodGet, "/api/public/offers/"+id+"/upsells", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("draft upsells: expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/offers/"+id+"/accept", nil, auth); w.Code != http.StatusConflict {
		t.Fatalf("accept draft: expected 409, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/offers/"+id+"/archive", nil, auth); w.Code != http.StatusNotFound {
		t.Fatalf("unknown action: expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/offers/"+id+"/send", nil, auth); w.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodGet, "/api/public/offers/"+id+"/upsells", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("upsells: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	alts, _ := decode(t, w)["alternatives"].([]any)
	if len(alts) != 1 {
		t.Fatalf("alternatives = %v", alts)
	}
	alt, _ := alts[0].(map[string]any)
	if alt["room_type_id"] != "sea" || alt["delta"] != "200" || alt["direction"] != "upgrade" {
		t.Fatalf("alternative = %v", alt)
	}

	w = doRequest(r, http.MethodGet, "/api/offers/"+id+"/events", nil, auth)
	events, _ := decode(t, w)["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("events = %v", events)
	}
}

func TestOfferCreateValidation(t *testing.T) {
	r := buildTestRouter(t, agent())
	w := doRequest(r, http.MethodPost, "/api/offers", stay(map[string]any{"package_id": "hotel"}), "Bearer tok")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing customer: expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, "/api/offers", stay(map[string]any{"package_id": "hotel", "customer_name": "Ana", "meal_plan": "AI"}), "Bearer tok")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unpriced meal plan: expected 422, got %d: %s", w.Code, w.Body.String())
	}
	if w := doRequest(r, http.MethodGet, "/api/offers/missing", nil, "Bearer tok"); w.Code != http.StatusNotFound {
		t.Fatalf("missing offer: expected 404, got %d", w.Code)
	}
}
