// README: Pricing service; fetches reference data under a timeout, runs the calculator and caches public quotes.
package pricing

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"travelcrm/internal/config"
	"travelcrm/internal/types"
)

// Catalog is the read side of the reference data. *Store implements it.
type Catalog interface {
	GetPackage(ctx context.Context, id types.ID) (Package, error)
	LoadInput(ctx context.Context, packageID types.ID, q InputQuery) (Input, error)
	ListRoomTypes(ctx context.Context, packageID types.ID) ([]RoomType, error)
}

// ResultCache stores finished quotes. *QuoteCache implements it.
type ResultCache interface {
	Get(ctx context.Context, cmd QuoteCommand) (Result, bool, error)
	Set(ctx context.Context, cmd QuoteCommand, res Result) error
	Invalidate(ctx context.Context, packageID types.ID) (int, error)
}

type QuoteCommand struct {
	PackageID types.ID
	Request   Request
	ShiftID   types.ID
	// PublicOnly hides unpublished packages and enables the cache.
	PublicOnly bool
}

// BatchQuote is one entry of a batch; exactly one of Result and Err is set.
type BatchQuote struct {
	PackageID types.ID
	Result    *Result
	Err       error
}

type DatePrice struct {
	PackageID      types.ID        `json:"package_id"`
	Date           types.Date      `json:"date"`
	IntervalID     types.ID        `json:"interval_id"`
	IntervalName   string          `json:"interval_name"`
	RoomTypeID     types.ID        `json:"room_type_id"`
	MealPlan       MealPlan        `json:"meal_plan"`
	PricePerPerson decimal.Decimal `json:"price_per_person"`
	Currency       string          `json:"currency"`
}

type Service struct {
	catalog Catalog
	cache   ResultCache
	cfg     config.PricingConfig
}

// NewService wires the service. cache may be nil.
func NewService(catalog Catalog, cache ResultCache, cfg config.PricingConfig) *Service {
	return &Service{catalog: catalog, cache: cache, cfg: cfg}
}

func (s *Service) Options() Options {
	return Options{AllowPartialCoverage: s.cfg.AllowPartialCoverage}
}

// Quote prices one stay. Public quotes are served from the cache when possible.
func (s *Service) Quote(ctx context.Context, cmd QuoteCommand) (Result, error) {
	if cmd.PackageID == "" {
		return Result{}, invalid("package_id", "required")
	}
	if err := cmd.Request.Validate(); err != nil {
		return Result{}, &StageError{Stage: StageValidated, Err: err}
	}
	useCache := cmd.PublicOnly && s.cache != nil
	if useCache {
		res, ok, err := s.cache.Get(ctx, cmd)
		if err != nil {
			log.Printf("pricing: cache get %s: %v", cmd.PackageID, err)
		} else if ok {
			if err := s.stillPublished(ctx, cmd.PackageID); err != nil {
				return Result{}, err
			}
			return res, nil
		}
	}
	in, err := s.Load(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	res, err := Calculate(in, s.Options())
	if err != nil {
		return Result{}, err
	}
	if useCache {
		if err := s.cache.Set(ctx, cmd, res); err != nil {
			log.Printf("pricing: cache set %s: %v", cmd.PackageID, err)
		}
	}
	return res, nil
}

// Load fetches the calculator input for cmd under the fetch timeout.
func (s *Service) Load(ctx context.Context, cmd QuoteCommand) (Input, error) {
	return s.load(ctx, cmd, false)
}

// LoadAllUnits is Load with rate rows for every unit of the package.
func (s *Service) LoadAllUnits(ctx context.Context, cmd QuoteCommand) (Input, error) {
	return s.load(ctx, cmd, true)
}

func (s *Service) load(ctx context.Context, cmd QuoteCommand, allUnits bool) (Input, error) {
	ctx, cancel := s.fetchContext(ctx)
	defer cancel()
	in, err := s.catalog.LoadInput(ctx, cmd.PackageID, InputQuery{
		Request:  cmd.Request,
		ShiftID:  cmd.ShiftID,
		AllUnits: allUnits,
	})
	if err != nil {
		return Input{}, err
	}
	if cmd.PublicOnly && !in.Package.Published {
		return Input{}, &NotFoundError{Entity: "package", ID: cmd.PackageID}
	}
	if in.Package.Currency == "" {
		in.Package.Currency = s.cfg.DefaultCurrency
	}
	return in, nil
}

// stillPublished re-reads the package row behind a cache hit so an unpublished
// package stops being quoted before its cached entries expire.
func (s *Service) stillPublished(ctx context.Context, packageID types.ID) error {
	fctx, cancel := s.fetchContext(ctx)
	defer cancel()
	pkg, err := s.catalog.GetPackage(fctx, packageID)
	if err != nil {
		return err
	}
	if pkg.Published {
		return nil
	}
	if _, err := s.cache.Invalidate(ctx, packageID); err != nil {
		log.Printf("pricing: cache invalidate %s: %v", packageID, err)
	}
	return &NotFoundError{Entity: "package", ID: packageID}
}

func (s *Service) RoomTypes(ctx context.Context, packageID types.ID) ([]RoomType, error) {
	ctx, cancel := s.fetchContext(ctx)
	defer cancel()
	return s.catalog.ListRoomTypes(ctx, packageID)
}

func (s *Service) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.FetchTimeout)
}

// QuoteMany prices the same stay across several packages. Entries keep the
// order of cmds and fail independently. When a command carries no unit, the
// smallest room type that fits the party is used, and a missing meal plan
// falls back to the lightest plan priced for the first night.
func (s *Service) QuoteMany(ctx context.Context, cmds []QuoteCommand) []BatchQuote {
	out := make([]BatchQuote, len(cmds))
	g, ctx := errgroup.WithContext(ctx)
	limit := s.cfg.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, cmd := range cmds {
		out[i].PackageID = cmd.PackageID
		g.Go(func() error {
			res, err := s.quoteBest(ctx, cmd)
			if err != nil {
				log.Printf("pricing: batch quote %s: %v", cmd.PackageID, err)
				out[i].Err = err
				return nil
			}
			out[i].Result = &res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) quoteBest(ctx context.Context, cmd QuoteCommand) (Result, error) {
	if cmd.Request.UnitID != "" && cmd.Request.MealPlan != "" {
		return s.Quote(ctx, cmd)
	}
	if cmd.PackageID == "" {
		return Result{}, invalid("package_id", "required")
	}
	if err := cmd.Request.Validate(); err != nil {
		return Result{}, &StageError{Stage: StageValidated, Err: err}
	}
	in, err := s.Load(ctx, cmd)
	if err != nil {
		return Result{}, err
	}
	if in.Package.Kind == KindOnRequest {
		if in.Request.UnitID == "" {
			rts, err := s.RoomTypes(ctx, cmd.PackageID)
			if err != nil {
				return Result{}, err
			}
			rt, ok := BestRoomType(rts, in.Request.Adults+len(in.Request.Children))
			if !ok {
				return Result{}, &NoRatesFoundError{}
			}
			in.Request.UnitID, in.Request.UnitName, in.Request.UnitCode = rt.ID, rt.Name, rt.Code
		}
		if in.Request.MealPlan == "" {
			in.Request.MealPlan = defaultMealPlan(in)
		}
	}
	return Calculate(in, s.Options())
}

// BestRoomType picks the smallest room type that holds persons, or the largest
// one when none does.
func BestRoomType(rts []RoomType, persons int) (RoomType, bool) {
	if len(rts) == 0 {
		return RoomType{}, false
	}
	var (
		best    RoomType
		found   bool
		largest = rts[0]
	)
	for _, rt := range rts {
		if rt.MaxPersons > largest.MaxPersons {
			largest = rt
		}
		if rt.MaxPersons >= persons && (!found || rt.MaxPersons < best.MaxPersons) {
			best, found = rt, true
		}
	}
	if !found {
		return largest, true
	}
	return best, true
}

func defaultMealPlan(in Input) MealPlan {
	table, ok := in.Rates.(PerPersonRateTable)
	if !ok {
		return ""
	}
	res, err := ResolveIntervals(in.Intervals, in.Request.CheckIn, in.Request.CheckOut)
	if err != nil {
		return ""
	}
	lookup := NewPerPersonRates(table, in.Request.UnitID, "")
	if avail := lookup.Available(res.Intervals[0].Interval); len(avail) > 0 {
		return avail[0]
	}
	return ""
}

// PriceForDate returns the per-person nightly price of an on-request package
// on one date.
func (s *Service) PriceForDate(ctx context.Context, packageID types.ID, date types.Date, roomTypeID types.ID, meal MealPlan, publicOnly bool) (DatePrice, error) {
	if date.IsZero() {
		return DatePrice{}, invalid("date", "required")
	}
	if roomTypeID == "" {
		return DatePrice{}, invalid("room_type_id", "required")
	}
	if !meal.Valid() {
		return DatePrice{}, invalid("meal_plan", "unknown meal plan %q", meal)
	}
	cmd := QuoteCommand{
		PackageID: packageID,
		Request: Request{
			CheckIn:  date,
			CheckOut: date.AddDays(1),
			Adults:   1,
			UnitID:   roomTypeID,
			MealPlan: meal,
		},
		PublicOnly: publicOnly,
	}
	in, err := s.Load(ctx, cmd)
	if err != nil {
		return DatePrice{}, err
	}
	table, ok := in.Rates.(PerPersonRateTable)
	if !ok {
		return DatePrice{}, invalid("package", "%s packages have no per-person prices", in.Package.Kind)
	}
	res, err := ResolveIntervals(in.Intervals, cmd.Request.CheckIn, cmd.Request.CheckOut)
	if err != nil {
		return DatePrice{}, err
	}
	iv := res.Intervals[0].Interval
	price, err := NewPerPersonRates(table, roomTypeID, meal).PriceFor(iv)
	if err != nil {
		return DatePrice{}, err
	}
	return DatePrice{
		PackageID:      packageID,
		Date:           date,
		IntervalID:     iv.ID,
		IntervalName:   iv.Label(),
		RoomTypeID:     roomTypeID,
		MealPlan:       meal,
		PricePerPerson: price,
		Currency:       in.Package.Currency,
	}, nil
}

// InvalidateCache drops the cached quotes of a package after its rates change.
func (s *Service) InvalidateCache(ctx context.Context, packageID types.ID) (int, error) {
	if packageID == "" {
		return 0, invalid("package_id", "required")
	}
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.Invalidate(ctx, packageID)
}

// IsDomainError reports whether err is a pricing outcome the caller can act on,
// as opposed to an infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrNotFound, ErrNoIntervalsFound, ErrIncompleteRateCoverage,
		ErrOverlappingIntervals, ErrMealPlanUnavailable, ErrNoRatesFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
