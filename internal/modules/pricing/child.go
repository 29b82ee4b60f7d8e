// README: Child discount matching over priority-ordered age-band rules.
package pricing

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ChildContext is what a rule can condition on besides age.
type ChildContext struct {
	Age          int
	Position     int // 1-based, children ordered by age ascending
	Adults       int
	RoomTypeCode string
}

type ChildPrice struct {
	Price  decimal.Decimal
	Label  string
	Policy *ChildDiscountPolicy
}

// Free reports whether a FREE rule decided the price.
func (p ChildPrice) Free() bool {
	return p.Policy != nil && p.Policy.DiscountType == DiscountFree
}

// ChildPolicies holds rules sorted by priority, highest first.
type ChildPolicies struct {
	rules []ChildDiscountPolicy
}

func NewChildPolicies(policies []ChildDiscountPolicy) ChildPolicies {
	rules := slices.Clone(policies)
	slices.SortStableFunc(rules, func(a, b ChildDiscountPolicy) int {
		return b.Priority - a.Priority
	})
	return ChildPolicies{rules: rules}
}

// Match returns the highest-priority rule applying to the child.
func (cp ChildPolicies) Match(c ChildContext) (ChildDiscountPolicy, bool) {
	for _, r := range cp.rules {
		if r.applies(c) {
			return r, true
		}
	}
	return ChildDiscountPolicy{}, false
}

// Price resolves the child's per-night price from the adult base price.
func (cp ChildPolicies) Price(base decimal.Decimal, c ChildContext) ChildPrice {
	rule, ok := cp.Match(c)
	if !ok {
		return ChildPrice{Price: base, Label: "full price"}
	}
	out := ChildPrice{Policy: &rule}
	switch rule.DiscountType {
	case DiscountFree:
		out.Price = decimal.Zero
		out.Label = "free"
	case DiscountPercent:
		p := rule.value()
		out.Price = base.Mul(hundred.Sub(p)).Div(hundred)
		out.Label = fmt.Sprintf("-%s%%", p.String())
	case DiscountFixed:
		v := rule.value()
		out.Price = v
		out.Label = fmt.Sprintf("fixed %s", v.StringFixed(2))
	default:
		out.Price = base
		out.Label = "full price"
	}
	return out
}

func (r ChildDiscountPolicy) applies(c ChildContext) bool {
	if c.Age < r.AgeFrom || c.Age >= r.AgeTo {
		return false
	}
	if r.MinAdults != nil && c.Adults < *r.MinAdults {
		return false
	}
	if r.MaxAdults != nil && c.Adults > *r.MaxAdults {
		return false
	}
	if r.ChildPosition != nil && c.Position != *r.ChildPosition {
		return false
	}
	if len(r.RoomTypeCodes) > 0 && !slices.Contains(r.RoomTypeCodes, c.RoomTypeCode) {
		return false
	}
	return true
}

func (r ChildDiscountPolicy) value() decimal.Decimal {
	if r.DiscountValue == nil {
		return decimal.Zero
	}
	return *r.DiscountValue
}

func (r ChildDiscountPolicy) validate() error {
	field := fmt.Sprintf("child_policies[%s]", r.ID)
	if r.AgeFrom < 0 || r.AgeTo <= r.AgeFrom {
		return invalid(field, "age band [%d, %d) is empty", r.AgeFrom, r.AgeTo)
	}
	switch r.DiscountType {
	case DiscountFree:
	case DiscountPercent:
		if r.DiscountValue == nil || r.DiscountValue.IsNegative() || r.DiscountValue.GreaterThan(hundred) {
			return invalid(field, "percent discount must be between 0 and 100")
		}
	case DiscountFixed:
		if r.DiscountValue == nil || r.DiscountValue.IsNegative() {
			return invalid(field, "fixed price must be set and not negative")
		}
	default:
		return invalid(field, "unknown discount type %q", r.DiscountType)
	}
	return nil
}
