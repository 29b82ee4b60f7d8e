// README: Price calculator; runs the quote stages over fetched reference data and assembles the breakdown.
package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"travelcrm/internal/types"
)

// Calculate prices one stay. It is pure: identical input yields identical output
// and nothing outside the returned Result is touched.
func Calculate(in Input, opts Options) (Result, error) {
	c := &calculation{in: in, opts: opts}
	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StageValidated, c.validate},
		{StageIntervalsResolved, c.resolveIntervals},
		{StageRatesApplied, c.applyRates},
		{StageChildrenApplied, c.applyChildren},
		{StageTransportApplied, c.applyTransport},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return Result{}, &StageError{Stage: s.stage, Err: err}
		}
	}
	return c.assemble(), nil
}

type calculation struct {
	in   Input
	opts Options

	nights     int
	resolution Resolution
	bases      []decimal.Decimal
	adultLines []BreakdownItem
	childLines [][]BreakdownItem
	transport  *BreakdownItem
}

func (c *calculation) validate() error {
	pkg, req := c.in.Package, c.in.Request
	if pkg.Kind != KindFixed && pkg.Kind != KindOnRequest {
		return invalid("package.kind", "unknown package kind %s", pkg.Kind)
	}
	if err := req.Validate(); err != nil {
		return err
	}
	c.nights = types.NightsBetween(req.CheckIn, req.CheckOut)
	if req.UnitID == "" {
		return invalid("room_or_apartment_id", "required")
	}
	if pkg.Kind == KindOnRequest && !req.MealPlan.Valid() {
		return invalid("meal_plan", "must be one of ND, BB, HB, FB, AI for on-request packages")
	}
	if err := c.normalizeRates(); err != nil {
		return err
	}
	if c.in.Rates.kind() != pkg.Kind {
		return invalid("rates", "%s rate table for a %s package", c.in.Rates.kind(), pkg.Kind)
	}
	for _, p := range c.in.ChildPolicies {
		if err := p.validate(); err != nil {
			return err
		}
	}
	if s := c.in.TransportShift; s != nil && s.PricePerPerson != nil && s.PricePerPerson.IsNegative() {
		return invalid("transport_shift.price_per_person", "must not be negative")
	}
	return nil
}

func (c *calculation) resolveIntervals() error {
	res, err := ResolveIntervals(c.in.Intervals, c.in.Request.CheckIn, c.in.Request.CheckOut)
	if err != nil {
		return err
	}
	if res.Overlap != nil {
		return res.Overlap
	}
	if !c.opts.AllowPartialCoverage {
		if err := res.Strict(); err != nil {
			return err
		}
	}
	c.resolution = res
	return nil
}

// normalizeRates accepts pointers to either table and rejects anything else,
// including typed nil pointers.
func (c *calculation) normalizeRates() error {
	switch table := c.in.Rates.(type) {
	case FixedRateTable, PerPersonRateTable:
		return nil
	case *FixedRateTable:
		if table != nil {
			c.in.Rates = *table
			return nil
		}
	case *PerPersonRateTable:
		if table != nil {
			c.in.Rates = *table
			return nil
		}
	case nil:
	default:
		return invalid("rates", "unsupported rate table %T", c.in.Rates)
	}
	return invalid("rates", "missing rate table")
}

func (c *calculation) applyRates() error {
	req := c.in.Request
	var (
		lookup    RateLookup
		perPerson bool
	)
	switch table := c.in.Rates.(type) {
	case FixedRateTable:
		lookup = NewFixedRates(table, req.UnitID)
	case PerPersonRateTable:
		lookup = NewPerPersonRates(table, req.UnitID, req.MealPlan)
		perPerson = true
	default:
		return invalid("rates", "unsupported rate table %T", c.in.Rates)
	}

	unit := req.UnitName
	if unit == "" {
		unit = string(req.UnitID)
	}
	for _, ri := range c.resolution.Intervals {
		price, err := lookup.PriceFor(ri.Interval)
		if err != nil {
			return err
		}
		nights := decimal.NewFromInt(int64(ri.Count))
		line := BreakdownItem{
			Kind:         LineAccommodation,
			IntervalID:   ri.Interval.ID,
			IntervalName: ri.Interval.Name,
			Nights:       ri.Count,
			PricePerUnit: price,
		}
		if perPerson {
			line.Subtotal = decimal.NewFromInt(int64(req.Adults)).Mul(price).Mul(nights)
			line.Description = fmt.Sprintf("%s (%s) - %d adults × %d nights × %s",
				unit, req.MealPlan, req.Adults, ri.Count, price.StringFixed(2))
		} else {
			line.Subtotal = nights.Mul(price)
			line.Description = fmt.Sprintf("%s - %d nights × %s", unit, ri.Count, price.StringFixed(2))
		}
		c.bases = append(c.bases, price)
		c.adultLines = append(c.adultLines, line)
	}
	return nil
}

// Validate checks the parts of a request that do not depend on reference data,
// so malformed requests fail before anything is fetched.
func (req Request) Validate() error {
	if req.CheckIn.IsZero() {
		return invalid("check_in", "required")
	}
	if req.CheckOut.IsZero() {
		return invalid("check_out", "required")
	}
	if types.NightsBetween(req.CheckIn, req.CheckOut) <= 0 {
		return &ValidationError{Field: "check_out", Reason: "must be after check_in", Kind: ErrInvalidDateRange}
	}
	if req.Adults < 0 {
		return invalid("adults", "must not be negative")
	}
	for i, ch := range req.Children {
		if ch.Age < 0 {
			return invalid(fmt.Sprintf("children[%d].age", i), "must not be negative")
		}
	}
	if req.NumberOfPersons < 0 {
		return invalid("number_of_persons", "must not be negative")
	}
	if req.MealPlan != "" && !req.MealPlan.Valid() {
		return invalid("meal_plan", "unknown meal plan %q", req.MealPlan)
	}
	return nil
}

// applyChildren prices children per interval. Fixed packages price the whole
// unit, so children add nothing there.
func (c *calculation) applyChildren() error {
	c.childLines = make([][]BreakdownItem, len(c.resolution.Intervals))
	if c.in.Package.Kind != KindOnRequest || len(c.in.Request.Children) == 0 {
		return nil
	}
	policies := NewChildPolicies(c.in.ChildPolicies)
	kids := childContexts(c.in.Request)
	for i, ri := range c.resolution.Intervals {
		nights := decimal.NewFromInt(int64(ri.Count))
		for _, kid := range kids {
			cp := policies.Price(c.bases[i], kid)
			subtotal := cp.Price.Mul(nights)
			if !subtotal.IsPositive() && !cp.Free() {
				continue
			}
			age := kid.Age
			line := BreakdownItem{
				Kind:         LineChild,
				IntervalID:   ri.Interval.ID,
				IntervalName: ri.Interval.Name,
				Nights:       ri.Count,
				PricePerUnit: cp.Price,
				Subtotal:     subtotal,
				ChildAge:     &age,
				Label:        cp.Label,
				Description: fmt.Sprintf("Child (%d y.) %s - %d nights × %s",
					kid.Age, cp.Label, ri.Count, cp.Price.StringFixed(2)),
			}
			if cp.Policy != nil {
				line.PolicyID = cp.Policy.ID
			}
			c.childLines[i] = append(c.childLines[i], line)
		}
	}
	return nil
}

func (c *calculation) applyTransport() error {
	req := c.in.Request
	if !req.IncludeTransport {
		return nil
	}
	persons := req.NumberOfPersons
	if persons == 0 {
		persons = req.Adults + len(req.Children)
	}
	if line, ok := TransportLine(c.in.Package, c.in.TransportShift, persons); ok {
		c.transport = &line
	}
	return nil
}

func (c *calculation) assemble() Result {
	res := Result{
		AccommodationTotal: decimal.Zero,
		TransportTotal:     decimal.Zero,
		Nights:             c.nights,
		NightsCovered:      c.resolution.Covered,
		Currency:           c.in.Package.Currency,
		Breakdown:          make([]BreakdownItem, 0, len(c.adultLines)+1),
	}
	for i, line := range c.adultLines {
		res.Breakdown = append(res.Breakdown, line)
		res.AccommodationTotal = res.AccommodationTotal.Add(line.Subtotal)
		for _, child := range c.childLines[i] {
			res.Breakdown = append(res.Breakdown, child)
			res.AccommodationTotal = res.AccommodationTotal.Add(child.Subtotal)
		}
	}
	if c.transport != nil {
		res.Breakdown = append(res.Breakdown, *c.transport)
		res.TransportTotal = c.transport.Subtotal
	}
	res.Total = res.AccommodationTotal.Add(res.TransportTotal)
	res.PricePerNight = res.AccommodationTotal.Div(decimal.NewFromInt(int64(c.nights)))
	return res
}

// childContexts numbers children by ascending age, keeping request order for ties.
func childContexts(req Request) []ChildContext {
	order := make([]int, len(req.Children))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return req.Children[a].Age - req.Children[b].Age
	})
	out := make([]ChildContext, len(req.Children))
	for pos, idx := range order {
		out[idx] = ChildContext{
			Age:          req.Children[idx].Age,
			Position:     pos + 1,
			Adults:       req.Adults,
			RoomTypeCode: req.UnitCode,
		}
	}
	return out
}
