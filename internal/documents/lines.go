package documents

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	inputPlaces = 4
)

// maxPercentage is the largest value a NUMERIC(9,4) percentage column holds.
var maxPercentage = decimal.RequireFromString("99999.9999")

var hundred = decimal.NewFromInt(100)

// Recalculate derives the line amounts from quantity, price and percentages:
//
//	subtotal = quantity * unit_price
//	discount = subtotal * discount_pct / 100
//	after    = subtotal - discount
//	tax      = after * tax_pct / 100
//	total    = after + tax
//
// Inputs are first rounded to their column scale so a stored line recalculates
// to the same amounts. Each amount is truncated to two decimals before the
// next one is derived from it, which keeps total == subtotal - discount + tax.
func Recalculate(in LineInput) (Line, error) {
	if err := checkLine(in); err != nil {
		return Line{}, err
	}
	in = normalizeLine(in)
	subtotal := in.Quantity.Mul(in.UnitPrice).Truncate(moneyPlaces)
	discount := subtotal.Mul(in.DiscountPct).Div(hundred).Truncate(moneyPlaces)
	after := subtotal.Sub(discount)
	tax := after.Mul(in.TaxPct).Div(hundred).Truncate(moneyPlaces)
	total := after.Add(tax)

	return Line{
		ProductID:      in.ProductID,
		Description:    in.Description,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
		DiscountPct:    in.DiscountPct,
		TaxPct:         in.TaxPct,
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          total,
	}, nil
}

// normalizeLine rounds inputs the way NUMERIC(18,4) and NUMERIC(9,4) columns do.
func normalizeLine(in LineInput) LineInput {
	in.Quantity = in.Quantity.Round(inputPlaces)
	in.UnitPrice = in.UnitPrice.Round(inputPlaces)
	in.DiscountPct = in.DiscountPct.Round(inputPlaces)
	in.TaxPct = in.TaxPct.Round(inputPlaces)
	return in
}

// RecalculateLines recalculates and numbers every line.
func RecalculateLines(inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one line is required", ErrInvalidLine)
	}
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		line, err := Recalculate(in)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		line.LineNo = i + 1
		lines = append(lines, line)
	}
	return lines, nil
}

// Totals holds the header amounts summed from lines.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// SumLines totals stored line amounts.
func SumLines(lines []Line) Totals {
	var t Totals
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.Discount = t.Discount.Add(l.DiscountAmount)
		t.Tax = t.Tax.Add(l.TaxAmount)
		t.Total = t.Total.Add(l.Total)
	}
	return t
}

// AsInputs strips derived fields so lines can be copied to another document.
func AsInputs(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{
			ProductID:   l.ProductID,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			DiscountPct: l.DiscountPct,
			TaxPct:      l.TaxPct,
		})
	}
	return out
}

func checkLine(in LineInput) error {
	switch {
	case in.Quantity.IsNegative():
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidLine)
	case in.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit price must not be negative", ErrInvalidLine)
	case in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred):
		return fmt.Errorf("%w: discount percentage must be between 0 and 100", ErrInvalidLine)
	case in.TaxPct.IsNegative():
		return fmt.Errorf("%w: tax percentage must not be negative", ErrInvalidLine)
	case in.TaxPct.GreaterThan(maxPercentage):
		return fmt.Errorf("%w: tax percentage is too large", ErrInvalidLine)
	}
	return nil
}
