package pricing

import (
	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

func d(s string) types.Date { return types.MustParseDate(s) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decp(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func intp(v int) *int { return &v }

func interval(id, start, end, name string) PriceInterval {
	return PriceInterval{ID: types.ID(id), PackageID: "pkg", StartDate: d(start), EndDate: d(end), Name: name}
}

// onRequestInput: BB 40 until 07-04, BB 45 from 07-05.
func onRequestInput() Input {
	return Input{
		Package: Package{ID: "pkg", Kind: KindOnRequest, Currency: "EUR"},
		Intervals: []PriceInterval{
			interval("iv2", "2024-07-05", "2024-07-10", "Jul II"),
			interval("iv1", "2024-07-01", "2024-07-04", "Jul I"),
		},
		Rates: PerPersonRateTable{
			{IntervalID: "iv1", RoomTypeID: "room-r", Prices: map[MealPlan]decimal.Decimal{
				MealPlanBreakfast: dec("40"), MealPlanHalfBoard: dec("55"),
			}},
			{IntervalID: "iv2", RoomTypeID: "room-r", Prices: map[MealPlan]decimal.Decimal{
				MealPlanBreakfast: dec("45"),
			}},
			{IntervalID: "iv1", RoomTypeID: "room-s", Prices: map[MealPlan]decimal.Decimal{
				MealPlanBreakfast: dec("60"),
			}},
		},
		Request: Request{
			CheckIn:  d("2024-07-03"),
			CheckOut: d("2024-07-08"),
			Adults:   1,
			UnitID:   "room-r",
			UnitName: "Room R",
			MealPlan: MealPlanBreakfast,
		},
	}
}

// fixedInput: apartment A at 50 per night for 07-01..07-10.
func fixedInput() Input {
	return Input{
		Package:   Package{ID: "pkg", Kind: KindFixed, Currency: "EUR"},
		Intervals: []PriceInterval{interval("iv1", "2024-07-01", "2024-07-10", "July")},
		Rates: FixedRateTable{
			{IntervalID: "iv1", ApartmentID: "apt-a", PricePerNight: dec("50")},
			{IntervalID: "iv1", ApartmentID: "apt-b", PricePerNight: dec("80")},
		},
		Request: Request{
			CheckIn:  d("2024-07-03"),
			CheckOut: d("2024-07-06"),
			Adults:   2,
			UnitID:   "apt-a",
			UnitName: "Apartment A",
		},
	}
}
