// README: Transport pricing; a shift price wins over the package's fixed transport price.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransportLine returns the transport breakdown line, or false when neither the
// shift nor the package carries a usable price.
func TransportLine(pkg Package, shift *TransportShift, persons int) (BreakdownItem, bool) {
	price, ok := transportPrice(pkg, shift)
	if !ok || persons <= 0 {
		return BreakdownItem{}, false
	}
	return BreakdownItem{
		Kind:         LineTransport,
		PricePerUnit: price,
		Subtotal:     price.Mul(decimal.NewFromInt(int64(persons))),
		Description:  fmt.Sprintf("Transport - %d persons × %s", persons, price.StringFixed(2)),
	}, true
}

func transportPrice(pkg Package, shift *TransportShift) (decimal.Decimal, bool) {
	if shift != nil && shift.PricePerPerson != nil && shift.PricePerPerson.IsPositive() {
		return *shift.PricePerPerson, true
	}
	if pkg.TransportFixed && pkg.TransportPricePerPerson != nil && pkg.TransportPricePerPerson.IsPositive() {
		return *pkg.TransportPricePerPerson, true
	}
	return decimal.Zero, false
}
