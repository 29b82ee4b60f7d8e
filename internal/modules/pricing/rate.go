// README: Rate lookup strategies; whole-unit nightly rates and per-person meal-plan rates.
package pricing

import (
	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

// RateLookup yields the base nightly price of the selected unit in one interval.
// For FixedRates that is the apartment price; for PerPersonRates it is the price
// per person.
type RateLookup interface {
	PriceFor(iv PriceInterval) (decimal.Decimal, error)
}

type FixedRates struct {
	apartmentID types.ID
	byInterval  map[types.ID]decimal.Decimal
}

func NewFixedRates(table FixedRateTable, apartmentID types.ID) FixedRates {
	r := FixedRates{apartmentID: apartmentID, byInterval: make(map[types.ID]decimal.Decimal)}
	for _, row := range table {
		if row.ApartmentID == apartmentID {
			r.byInterval[row.IntervalID] = row.PricePerNight
		}
	}
	return r
}

func (r FixedRates) PriceFor(iv PriceInterval) (decimal.Decimal, error) {
	p, ok := r.byInterval[iv.ID]
	if !ok {
		return decimal.Zero, &NoRatesFoundError{IntervalID: iv.ID, IntervalName: iv.Name, UnitID: r.apartmentID}
	}
	return p, nil
}

type PerPersonRates struct {
	roomTypeID types.ID
	mealPlan   MealPlan
	byInterval map[types.ID]map[MealPlan]decimal.Decimal
}

func NewPerPersonRates(table PerPersonRateTable, roomTypeID types.ID, mealPlan MealPlan) PerPersonRates {
	r := PerPersonRates{roomTypeID: roomTypeID, mealPlan: mealPlan, byInterval: make(map[types.ID]map[MealPlan]decimal.Decimal)}
	for _, row := range table {
		if row.RoomTypeID == roomTypeID {
			r.byInterval[row.IntervalID] = row.Prices
		}
	}
	return r
}

// Empty reports whether the room type has no rate rows at all.
func (r PerPersonRates) Empty() bool {
	return len(r.byInterval) == 0
}

func (r PerPersonRates) PriceFor(iv PriceInterval) (decimal.Decimal, error) {
	if r.Empty() {
		return decimal.Zero, &NoRatesFoundError{UnitID: r.roomTypeID}
	}
	p, ok := r.byInterval[iv.ID][r.mealPlan]
	if !ok || !p.IsPositive() {
		return decimal.Zero, &MealPlanUnavailableError{IntervalID: iv.ID, IntervalName: iv.Name, MealPlan: r.mealPlan}
	}
	return p, nil
}

// Available lists the meal plans priced above zero for the room type in the interval.
func (r PerPersonRates) Available(iv PriceInterval) []MealPlan {
	var out []MealPlan
	prices := r.byInterval[iv.ID]
	for _, m := range MealPlans {
		if p, ok := prices[m]; ok && p.IsPositive() {
			out = append(out, m)
		}
	}
	return out
}
