// README: Pricing reference data (packages, intervals, rate tables, child policies) and quote output.
package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

// PackageKind selects how a package is priced. The zero value is invalid.
type PackageKind int

const (
	// KindFixed prices a whole apartment per night.
	KindFixed PackageKind = iota + 1
	// KindOnRequest prices per person per night by room type and meal plan.
	KindOnRequest
)

func (k PackageKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindOnRequest:
		return "on_request"
	default:
		return fmt.Sprintf("PackageKind(%d)", int(k))
	}
}

func ParsePackageKind(s string) (PackageKind, error) {
	switch s {
	case "fixed", "fiksni":
		return KindFixed, nil
	case "on_request", "na_upit":
		return KindOnRequest, nil
	}
	return 0, fmt.Errorf("unknown package kind %q", s)
}

func (k PackageKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *PackageKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePackageKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type MealPlan string

const (
	MealPlanNone         MealPlan = "ND"
	MealPlanBreakfast    MealPlan = "BB"
	MealPlanHalfBoard    MealPlan = "HB"
	MealPlanFullBoard    MealPlan = "FB"
	MealPlanAllInclusive MealPlan = "AI"
)

// MealPlans lists every meal plan from the lightest to the richest.
var MealPlans = []MealPlan{MealPlanNone, MealPlanBreakfast, MealPlanHalfBoard, MealPlanFullBoard, MealPlanAllInclusive}

func (m MealPlan) Valid() bool {
	switch m {
	case MealPlanNone, MealPlanBreakfast, MealPlanHalfBoard, MealPlanFullBoard, MealPlanAllInclusive:
		return true
	}
	return false
}

type DiscountType string

const (
	DiscountFree    DiscountType = "FREE"
	DiscountPercent DiscountType = "PERCENT"
	DiscountFixed   DiscountType = "FIXED"
)

type Package struct {
	ID                      types.ID         `json:"id"`
	Name                    string           `json:"name,omitempty"`
	Kind                    PackageKind      `json:"kind"`
	Currency                string           `json:"currency"`
	Published               bool             `json:"published"`
	TransportFixed          bool             `json:"transport_fixed,omitempty"`
	TransportPricePerPerson *decimal.Decimal `json:"transport_price_per_person,omitempty"`
}

type PriceInterval struct {
	ID        types.ID   `json:"id"`
	PackageID types.ID   `json:"package_id"`
	StartDate types.Date `json:"start_date"`
	EndDate   types.Date `json:"end_date"` // inclusive
	Name      string     `json:"name,omitempty"`
	SortOrder int        `json:"sort_order"`
}

// Label is the interval name, or its ID when unnamed.
func (iv PriceInterval) Label() string {
	if iv.Name != "" {
		return iv.Name
	}
	return string(iv.ID)
}

type FixedRate struct {
	IntervalID    types.ID        `json:"interval_id"`
	ApartmentID   types.ID        `json:"apartment_id"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
}

type PerPersonRate struct {
	IntervalID types.ID                     `json:"interval_id"`
	RoomTypeID types.ID                     `json:"room_type_id"`
	Prices     map[MealPlan]decimal.Decimal `json:"prices"`
}

// RateTable is the rate data of one package. It is either a FixedRateTable or a
// PerPersonRateTable and must agree with the package kind.
type RateTable interface {
	kind() PackageKind
}

type FixedRateTable []FixedRate

type PerPersonRateTable []PerPersonRate

func (FixedRateTable) kind() PackageKind     { return KindFixed }
func (PerPersonRateTable) kind() PackageKind { return KindOnRequest }

type ChildDiscountPolicy struct {
	ID            types.ID         `json:"id,omitempty"`
	Name          string           `json:"name,omitempty"`
	AgeFrom       int              `json:"age_from"` // inclusive
	AgeTo         int              `json:"age_to"`   // exclusive
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	Priority      int              `json:"priority"`

	// Optional conditions; nil or empty never excludes the rule.
	MinAdults     *int     `json:"min_adults,omitempty"`
	MaxAdults     *int     `json:"max_adults,omitempty"`
	ChildPosition *int     `json:"child_position,omitempty"`
	RoomTypeCodes []string `json:"room_type_codes,omitempty"`
}

type TransportShift struct {
	ID             types.ID         `json:"id,omitempty"`
	PricePerPerson *decimal.Decimal `json:"price_per_person,omitempty"`
}

type Child struct {
	Age int `json:"age"`
}

type Request struct {
	CheckIn  types.Date `json:"check_in"`
	CheckOut types.Date `json:"check_out"`
	Adults   int        `json:"adults"`
	Children []Child    `json:"children,omitempty"`
	// UnitID is the apartment for fixed packages and the room type for on-request ones.
	UnitID           types.ID `json:"room_or_apartment_id"`
	UnitName         string   `json:"unit_name,omitempty"`
	UnitCode         string   `json:"unit_code,omitempty"`
	MealPlan         MealPlan `json:"meal_plan,omitempty"`
	IncludeTransport bool     `json:"include_transport,omitempty"`
	NumberOfPersons  int      `json:"number_of_persons,omitempty"`
}

// Input is everything one calculation needs, fetched up front.
type Input struct {
	Package        Package
	Intervals      []PriceInterval
	Rates          RateTable
	ChildPolicies  []ChildDiscountPolicy
	TransportShift *TransportShift
	Request        Request
}

type Options struct {
	// AllowPartialCoverage quotes only the covered nights instead of failing
	// with ErrIncompleteRateCoverage.
	AllowPartialCoverage bool
}

type LineKind string

const (
	LineAccommodation LineKind = "accommodation"
	LineChild         LineKind = "child"
	LineTransport     LineKind = "transport"
)

type BreakdownItem struct {
	Kind         LineKind        `json:"kind"`
	IntervalID   types.ID        `json:"interval_id,omitempty"`
	IntervalName string          `json:"interval_name,omitempty"`
	Nights       int             `json:"nights"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Description  string          `json:"description"`
	ChildAge     *int            `json:"child_age,omitempty"`
	PolicyID     types.ID        `json:"policy_id,omitempty"`
	Label        string          `json:"label,omitempty"`
}

type Result struct {
	AccommodationTotal decimal.Decimal `json:"accommodation_total"`
	TransportTotal     decimal.Decimal `json:"transport_total"`
	Total              decimal.Decimal `json:"total"`
	Nights             int             `json:"nights"`
	NightsCovered      int             `json:"nights_covered"`
	PricePerNight      decimal.Decimal `json:"price_per_night"`
	Currency           string          `json:"currency"`
	Breakdown          []BreakdownItem `json:"breakdown"`
}

func (r Result) TotalMoney() types.Money {
	return types.NewMoney(r.Total, r.Currency)
}
