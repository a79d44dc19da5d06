package viewmodel

import (
	"math"
	"strconv"
)

// NotAvailable is rendered for ratios whose denominator is zero
const NotAvailable = "n/a"

// Ratio is a derived quotient that may be undefined
type Ratio struct {
	Value float64
	Valid bool
}

// Divide returns num/den rounded to two decimals, or an invalid Ratio when
// den is zero or the result is not finite.
func Divide(num, den float64) Ratio {
	return scaled(num, den, 1)
}

// Percent returns num/den*100 rounded to two decimals
func Percent(num, den float64) Ratio {
	return scaled(num, den, 100)
}

func scaled(num, den, factor float64) Ratio {
	if den == 0 {
		return Ratio{}
	}
	v := num / den * factor
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{}
	}
	return Ratio{Value: math.Round(v*100) / 100, Valid: true}
}

func (r Ratio) String() string {
	if !r.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// PercentLabel is String with a "%" suffix, which the n/a sentinel never gets
func (r Ratio) PercentLabel() string {
	if !r.Valid {
		return NotAvailable
	}
	return r.String() + "%"
}
