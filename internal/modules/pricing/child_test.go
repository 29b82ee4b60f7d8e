package pricing

import (
	"testing"
)

func TestChildPolicies_PriorityWinsOnOverlap(t *testing.T) {
	policies := NewChildPolicies([]ChildDiscountPolicy{
		{ID: "broad", AgeFrom: 0, AgeTo: 14, DiscountType: DiscountPercent, DiscountValue: decp("30"), Priority: 1},
		{ID: "toddler", AgeFrom: 0, AgeTo: 3, DiscountType: DiscountFree, Priority: 10},
		{ID: "teen", AgeFrom: 12, AgeTo: 18, DiscountType: DiscountFixed, DiscountValue: decp("20"), Priority: 5},
	})
	tests := []struct {
		age       int
		wantRule  string
		wantPrice string
		wantLabel string
	}{
		{age: 0, wantRule: "toddler", wantPrice: "0", wantLabel: "free"},
		{age: 2, wantRule: "toddler", wantPrice: "0", wantLabel: "free"},
		{age: 3, wantRule: "broad", wantPrice: "28", wantLabel: "-30%"},
		{age: 12, wantRule: "teen", wantPrice: "20", wantLabel: "fixed 20.00"},
		{age: 17, wantRule: "teen", wantPrice: "20", wantLabel: "fixed 20.00"},
		{age: 18, wantRule: "", wantPrice: "40", wantLabel: "full price"},
	}
	for _, tt := range tests {
		got := policies.Price(dec("40"), ChildContext{Age: tt.age, Position: 1, Adults: 2})
		rule := ""
		if got.Policy != nil {
			rule = string(got.Policy.ID)
		}
		if rule != tt.wantRule || !got.Price.Equal(dec(tt.wantPrice)) || got.Label != tt.wantLabel {
			t.Errorf("age %d: rule=%q price=%s label=%q, want %q %s %q",
				tt.age, rule, got.Price, got.Label, tt.wantRule, tt.wantPrice, tt.wantLabel)
		}
	}
}

func TestChildPolicies_SortIsStableAndDoesNotMutateInput(t *testing.T) {
	in := []ChildDiscountPolicy{
		{ID: "first", AgeFrom: 0, AgeTo: 10, DiscountType: DiscountFree, Priority: 0},
		{ID: "second", AgeFrom: 0, AgeTo: 10, DiscountType: DiscountPercent, DiscountValue: decp("10"), Priority: 0},
	}
	policies := NewChildPolicies(in)
	got, ok := policies.Match(ChildContext{Age: 5})
	if !ok || got.ID != "first" {
		t.Errorf("equal priority should keep input order; got %q", got.ID)
	}
	in[0].ID = "changed"
	if got, _ := policies.Match(ChildContext{Age: 5}); got.ID != "first" {
		t.Errorf("policies alias the caller's slice")
	}
}

func TestChildPolicies_Conditions(t *testing.T) {
	policies := NewChildPolicies([]ChildDiscountPolicy{
		{ID: "second-child-free", AgeFrom: 0, AgeTo: 12, DiscountType: DiscountFree, Priority: 20, ChildPosition: intp(2), MinAdults: intp(2)},
		{ID: "family-room", AgeFrom: 0, AgeTo: 12, DiscountType: DiscountPercent, DiscountValue: decp("70"), Priority: 10, RoomTypeCodes: []string{"FAM"}},
		{ID: "single-parent", AgeFrom: 0, AgeTo: 12, DiscountType: DiscountPercent, DiscountValue: decp("30"), Priority: 5, MaxAdults: intp(1)},
	})
	tests := []struct {
		name string
		ctx  ChildContext
		want string
	}{
		{name: "second child with two adults", ctx: ChildContext{Age: 6, Position: 2, Adults: 2}, want: "second-child-free"},
		{name: "second child with one adult", ctx: ChildContext{Age: 6, Position: 2, Adults: 1}, want: "single-parent"},
		{name: "first child in family room", ctx: ChildContext{Age: 6, Position: 1, Adults: 2, RoomTypeCode: "FAM"}, want: "family-room"},
		{name: "first child in double room", ctx: ChildContext{Age: 6, Position: 1, Adults: 2, RoomTypeCode: "DBL"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := policies.Match(tt.ctx)
			if tt.want == "" {
				if ok {
					t.Fatalf("matched %q, want none", got.ID)
				}
				return
			}
			if !ok || string(got.ID) != tt.want {
				t.Errorf("matched %q, want %q", got.ID, tt.want)
			}
		})
	}
}

func TestChildContexts_PositionsByAscendingAge(t *testing.T) {
	req := Request{Adults: 2, UnitCode: "FAM", Children: []Child{{Age: 9}, {Age: 3}, {Age: 9}, {Age: 1}}}
	got := childContexts(req)
	wantPos := []int{3, 2, 4, 1}
	for i, c := range got {
		if c.Position != wantPos[i] {
			t.Errorf("child %d (age %d) position = %d, want %d", i, c.Age, c.Position, wantPos[i])
		}
		if c.Adults != 2 || c.RoomTypeCode != "FAM" {
			t.Errorf("child %d context = %+v", i, c)
		}
	}
}
