package models

import "github.com/shopspring/decimal"

// ExchangeRate is a cached conversion rate from one currency into the
// home currency on a given calendar date. Rates are historical facts:
// once written for a (currency, date) key they never change and are
// never evicted.
type ExchangeRate struct {
	// Currency is the ISO 4217 code being converted from.
	Currency string

	// Date is the calendar date the rate applies to, YYYY-MM-DD.
	Date string

	// RateToHome converts one unit of Currency into the home currency,
	// quantized half-up to 6 fractional digits.
	RateToHome decimal.Decimal
}
