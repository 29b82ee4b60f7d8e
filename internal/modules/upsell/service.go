// README: Upsell service; prices alternative room types and meal plans against the current selection.
package upsell

import (
	"context"
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"travelcrm/internal/modules/pricing"
	"travelcrm/internal/types"
)

var ErrNotOnRequest = errors.New("upsells need an on-request package")

// Pricing is the part of the pricing service the comparison needs.
type Pricing interface {
	LoadAllUnits(ctx context.Context, cmd pricing.QuoteCommand) (pricing.Input, error)
	RoomTypes(ctx context.Context, packageID types.ID) ([]pricing.RoomType, error)
	Options() pricing.Options
}

type Kind string

const (
	KindMealPlan Kind = "meal_plan"
	KindRoomType Kind = "room_type"
	KindCombined Kind = "room_type_and_meal_plan"
)

type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
	DirectionSame      Direction = "same"
)

type Alternative struct {
	Kind         Kind             `json:"kind"`
	RoomTypeID   types.ID         `json:"room_type_id"`
	RoomTypeName string           `json:"room_type_name"`
	MealPlan     pricing.MealPlan `json:"meal_plan"`
	Total        decimal.Decimal  `json:"total"`
	Delta        decimal.Decimal  `json:"delta"`
	Direction    Direction        `json:"direction"`
}

type Comparison struct {
	Current      pricing.Result `json:"current"`
	Alternatives []Alternative  `json:"alternatives"`
}

type Query struct {
	PackageID  types.ID
	Request    pricing.Request
	ShiftID    types.ID
	PublicOnly bool
	// UpgradesOnly drops cheaper and equally priced alternatives.
	UpgradesOnly bool
}

type Service struct {
	pricing Pricing
}

func NewService(pricing Pricing) *Service {
	return &Service{pricing: pricing}
}

// Alternatives re-prices the stay for every other room type and meal plan of
// the package. Candidates the calculator rejects are left out. The result is
// ordered by total.
func (s *Service) Alternatives(ctx context.Context, q Query) (Comparison, error) {
	cmd := pricing.QuoteCommand{PackageID: q.PackageID, Request: q.Request, ShiftID: q.ShiftID, PublicOnly: q.PublicOnly}
	in, err := s.pricing.LoadAllUnits(ctx, cmd)
	if err != nil {
		return Comparison{}, err
	}
	if in.Package.Kind != pricing.KindOnRequest {
		return Comparison{}, ErrNotOnRequest
	}
	opts := s.pricing.Options()
	current, err := pricing.Calculate(in, opts)
	if err != nil {
		return Comparison{}, err
	}
	rts, err := s.pricing.RoomTypes(ctx, q.PackageID)
	if err != nil {
		return Comparison{}, err
	}

	out := Comparison{Current: current, Alternatives: []Alternative{}}
	for _, rt := range rts {
		for _, meal := range pricing.MealPlans {
			sameRoom := rt.ID == q.Request.UnitID
			sameMeal := meal == q.Request.MealPlan
			if sameRoom && sameMeal {
				continue
			}
			candidate := in
			candidate.Request.UnitID = rt.ID
			candidate.Request.UnitName = rt.Name
			candidate.Request.UnitCode = rt.Code
			candidate.Request.MealPlan = meal
			res, err := pricing.Calculate(candidate, opts)
			if err != nil {
				continue
			}
			alt := Alternative{
				Kind:         kindOf(sameRoom, sameMeal),
				RoomTypeID:   rt.ID,
				RoomTypeName: rt.Name,
				MealPlan:     meal,
				Total:        res.Total,
				Delta:        res.Total.Sub(current.Total),
			}
			alt.Direction = directionOf(alt.Delta)
			if q.UpgradesOnly && alt.Direction != DirectionUpgrade {
				continue
			}
			out.Alternatives = append(out.Alternatives, alt)
		}
	}
	slices.SortStableFunc(out.Alternatives, func(a, b Alternative) int {
		return a.Total.Cmp(b.Total)
	})
	return out, nil
}

func kindOf(sameRoom, sameMeal bool) Kind {
	switch {
	case sameRoom:
		return KindMealPlan
	case sameMeal:
		return KindRoomType
	default:
		return KindCombined
	}
}

func directionOf(delta decimal.Decimal) Direction {
	switch delta.Sign() {
	case 1:
		return DirectionUpgrade
	case -1:
		return DirectionDowngrade
	default:
		return DirectionSame
	}
}
