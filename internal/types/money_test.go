package types

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func TestMoneyAddAndString(t *testing.T) {
	a := NewMoney(decimal.RequireFromString("215.5"), "EUR")
	b := NewMoney(decimal.RequireFromString("100"), "EUR")
	sum := a.Add(b)
	if got := sum.String(); got != "315.50 EUR" {
		t.Fatalf("String() = %q", got)
	}
	if sum.IsZero() || !NewMoney(decimal.Zero, "EUR").IsZero() {
		t.Fatal("IsZero mismatch")
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		name  string
		money Money
		want  []string
	}{
		{"known currency", NewMoney(decimal.RequireFromString("430"), "EUR"), []string{"€", "430"}},
		{"unknown currency", NewMoney(decimal.RequireFromString("430.005"), "ABC"), []string{"430", "ABC"}},
	}
	for _, tc := range cases {
		got := tc.money.Format(language.English)
		for _, w := range tc.want {
			if !strings.Contains(got, w) {
				t.Errorf("%s: Format = %q, missing %q", tc.name, got, w)
			}
		}
	}
}
