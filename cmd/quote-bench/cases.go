// README: Quote benchmark cases; environment, HTTP behaviour, cache, offer races and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/types"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

// demoStay is priced at 430 EUR by the demo catalog: 2 adults, BB,
// two nights at 40 and three at 45.
func demoStay(overrides map[string]any) map[string]any {
	body := map[string]any{
		"check_in":             "2024-07-03",
		"check_out":            "2024-07-08",
		"adults":               2,
		"room_or_apartment_id": "bench-dbl",
		"meal_plan":            "BB",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	quoteURL := base + "/api/public/packages/bench-hotel/calculate-price"
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusFail, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Seed: migrations and demo catalog (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.Seed {
					return Result{Status: StatusSkip, Note: "seed=false"}
				}
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				if err := seed(ctx, r.db); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusFail, Note: "db not configured"}
				}
				tables, err := migrationTables()
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, http.StatusOK, nil),

		httpCase("Quote: valid stay", quoteURL, demoStay(nil), http.StatusOK, func(body map[string]any) error {
			return expectField(body, "total", "430")
		}),
		httpCase("Quote: reversed dates -> 400", quoteURL, demoStay(map[string]any{"check_out": "2024-07-01"}), http.StatusBadRequest, func(body map[string]any) error {
			return expectField(body, "code", "invalid_date_range")
		}),
		httpCase("Quote: unpriced meal plan -> 422", quoteURL, demoStay(map[string]any{"meal_plan": "AI"}), http.StatusUnprocessableEntity, func(body map[string]any) error {
			return expectField(body, "code", "meal_plan_unavailable")
		}),
		httpCase("Quote: stay beyond season -> 422", quoteURL, demoStay(map[string]any{"check_out": "2024-07-20"}), http.StatusUnprocessableEntity, func(body map[string]any) error {
			return expectField(body, "code", "incomplete_rate_coverage")
		}),
		httpCase("Quote: unpublished package -> 404", base+"/api/public/packages/bench-villa/calculate-price",
			demoStay(map[string]any{"room_or_apartment_id": "bench-apt"}), http.StatusNotFound, nil),
		httpCase("Batch: mixed packages", base+"/api/public/packages/calculate-prices",
			demoStay(map[string]any{"package_ids": []string{"bench-hotel", "bench-villa"}, "room_or_apartment_id": "", "meal_plan": ""}),
			http.StatusOK, func(body map[string]any) error {
				results, _ := body["results"].([]any)
				if len(results) != 2 {
					return fmt.Errorf("results=%d", len(results))
				}
				return nil
			}),
		httpCaseMethod("Price for date", http.MethodGet,
			base+"/api/public/packages/bench-hotel/price-for-date?date=2024-07-07&room_type_id=bench-dbl&meal_plan=BB",
			nil, http.StatusOK, func(body map[string]any) error {
				return expectField(body, "price_per_person", "45")
			}),
		{
			Name: "Cache: public quote stored in Redis",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusFail, Note: "redis not configured"}
				}
				keys, _, err := r.redis.Scan(ctx, 0, r.cfg.CachePrefix+":quote:bench-hotel:*", 100).Result()
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				if len(keys) == 0 {
					return Result{Status: StatusFail, Note: "no cached quotes after valid quote"}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("keys=%d", len(keys))}
			},
		},
		{
			Name: "Concurrency: accept vs decline same offer",
			Run: func(ctx context.Context, r *Runner) Result {
				return offerRace(ctx, r)
			},
		},
		{
			Name: "Engine: in-process calculation latency",
			Run: func(ctx context.Context, r *Runner) Result {
				return engineLoop(ctx, 10000)
			},
		},
		{
			Name: "Perf: public quote throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, quoteURL, demoStay(nil))
			},
		},
	}
}

func expectField(body map[string]any, key, want string) error {
	if got := fmt.Sprint(body[key]); got != want {
		return fmt.Errorf("%s=%s want %s", key, got, want)
	}
	return nil
}

func httpCase(name, url string, body any, want int, check func(map[string]any) error) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, want, check)
}

func httpCaseMethod(name, method, url string, body any, want int, check func(map[string]any) error) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, decoded, err := r.do(ctx, method, url, body, "")
			latency := time.Since(start)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			if status != want {
				return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			if check != nil {
				if err := check(decoded); err != nil {
					return Result{Status: StatusFail, Latency: latency, Note: err.Error()}
				}
			}
			return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any, token string) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	return resp.StatusCode, decoded, nil
}

func offerRace(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: StatusSkip, Note: "no agency token"}
	}
	base := r.cfg.BaseURL
	status, created, err := r.do(ctx, http.MethodPost, base+"/api/offers",
		demoStay(map[string]any{"package_id": "bench-hotel", "customer_name": "Bench"}), r.cfg.Token)
	if err != nil || status != http.StatusCreated {
		return Result{Status: StatusFail, Note: fmt.Sprintf("create status=%d err=%v", status, err)}
	}
	id := fmt.Sprint(created["id"])
	if status, _, err := r.do(ctx, http.MethodPost, base+"/api/offers/"+id+"/send", nil, r.cfg.Token); err != nil || status != http.StatusOK {
		return Result{Status: StatusFail, Note: fmt.Sprintf("send status=%d err=%v", status, err)}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		succ     int
		conflict int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		action := "accept"
		if i%2 == 1 {
			action = "decline"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, base+"/api/offers/"+id+"/"+action, nil, r.cfg.Token)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				conflict++
			}
		}()
	}
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d", succ, conflict)
	if succ == 1 {
		return Result{Status: StatusPass, Note: note}
	}
	return Result{Status: StatusFail, Note: note}
}

func engineLoop(ctx context.Context, n int) Result {
	in := engineInput()
	start := time.Now()
	var total decimal.Decimal
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return Result{Status: StatusFail, Note: ctx.Err().Error()}
		}
		res, err := pricing.Calculate(in, pricing.Options{})
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		total = res.Total
	}
	elapsed := time.Since(start)
	return Result{Status: StatusPass, Latency: elapsed / time.Duration(n), Note: fmt.Sprintf("n=%d total=%s", n, total)}
}

// engineInput mirrors the demo catalog with a child and transport so every
// stage runs.
func engineInput() pricing.Input {
	d := types.MustParseDate
	price := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }
	half := price("50")
	bus := price("25")
	return pricing.Input{
		Package: pricing.Package{ID: "bench-hotel", Kind: pricing.KindOnRequest, Currency: "EUR"},
		Intervals: []pricing.PriceInterval{
			{ID: "bench-jul1", Name: "Jul I", StartDate: d("2024-07-01"), EndDate: d("2024-07-04")},
			{ID: "bench-jul2", Name: "Jul II", StartDate: d("2024-07-05"), EndDate: d("2024-07-15")},
		},
		Rates: pricing.PerPersonRateTable{
			{IntervalID: "bench-jul1", RoomTypeID: "bench-dbl", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: price("40")}},
			{IntervalID: "bench-jul2", RoomTypeID: "bench-dbl", Prices: map[pricing.MealPlan]decimal.Decimal{pricing.MealPlanBreakfast: price("45")}},
		},
		ChildPolicies: []pricing.ChildDiscountPolicy{
			{ID: "kids", AgeFrom: 2, AgeTo: 12, DiscountType: pricing.DiscountPercent, DiscountValue: &half, Priority: 1},
		},
		TransportShift: &pricing.TransportShift{ID: "bench-bus", PricePerPerson: &bus},
		Request: pricing.Request{
			CheckIn:          d("2024-07-03"),
			CheckOut:         d("2024-07-08"),
			Adults:           2,
			Children:         []pricing.Child{{Age: 7}},
			UnitID:           "bench-dbl",
			UnitName:         "Double",
			MealPlan:         pricing.MealPlanBreakfast,
			IncludeTransport: true,
		},
	}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	b, _ := json.Marshal(payload)
	end := time.Now().Add(r.cfg.Duration)
	var (
		count, errCount int64
		mu              sync.Mutex
		wg              sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(b)))
				req.Header.Set("Content-Type", "application/json")
				resp, err := r.httpc.Do(req)
				mu.Lock()
				if err != nil || resp.StatusCode != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func migrationFiles() ([]string, error) {
	paths, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no migrations under ./migrations; run from the repo root")
	}
	sort.Strings(paths)
	return paths, nil
}

func migrationTables() ([]string, error) {
	paths, err := migrationFiles()
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	var tables []string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		for _, m := range re.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}

var demoCatalog = []string{
	`INSERT INTO packages (id, name, package_type, currency, is_published, transport_price_fixed, transport_price_per_person)
     VALUES ('bench-hotel', 'Bench Hotel', 'on_request', 'EUR', TRUE, TRUE, 30),
            ('bench-villa', 'Bench Villa', 'fixed', 'EUR', FALSE, FALSE, NULL)
     ON CONFLICT (id) DO NOTHING`,
	`INSERT INTO price_intervals (id, package_id, name, start_date, end_date, sort_order)
     VALUES ('bench-jul1', 'bench-hotel', 'Jul I', '2024-07-01', '2024-07-04', 0),
            ('bench-jul2', 'bench-hotel', 'Jul II', '2024-07-05', '2024-07-15', 1),
            ('bench-villa-jul', 'bench-villa', 'July', '2024-07-01', '2024-07-31', 0)
     ON CONFLICT (id) DO UPDATE SET start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`,
	`INSERT INTO room_types (id, package_id, code, name, max_persons)
     VALUES ('bench-dbl', 'bench-hotel', 'DBL', 'Double', 2),
            ('bench-fam', 'bench-hotel', 'FAM', 'Family', 4)
     ON CONFLICT (id) DO NOTHING`,
	`INSERT INTO hotel_prices (room_type_id, interval_id, price_bb, price_hb)
     VALUES ('bench-dbl', 'bench-jul1', 40, 55), ('bench-dbl', 'bench-jul2', 45, 60),
            ('bench-fam', 'bench-jul1', 60, 75), ('bench-fam', 'bench-jul2', 65, 80)
     ON CONFLICT DO NOTHING`,
	`INSERT INTO apartments (id, package_id, name) VALUES ('bench-apt', 'bench-villa', 'Apartment A')
     ON CONFLICT (id) DO NOTHING`,
	`INSERT INTO apartment_prices (apartment_id, interval_id, price_per_night) VALUES ('bench-apt', 'bench-villa-jul', 50)
     ON CONFLICT DO NOTHING`,
	`INSERT INTO children_policies (id, package_id, rule_name, priority, age_from, age_to, discount_type, discount_value)
     VALUES ('bench-infant', 'bench-hotel', 'Infants', 10, 0, 2, 'FREE', NULL),
            ('bench-kids', 'bench-hotel', 'Kids', 5, 2, 12, 'PERCENT', 50)
     ON CONFLICT (id) DO NOTHING`,
}

func seed(ctx context.Context, db *pgxpool.Pool) error {
	paths, err := migrationFiles()
	if err != nil {
		return err
	}
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(string(b)) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p), err)
			}
		}
	}
	for _, stmt := range demoCatalog {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
