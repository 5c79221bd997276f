package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRateQuery selects the rate effective on Date for a country-currency pair.
type ExchangeRateQuery struct {
	Date     time.Time
	Country  string
	Currency string
}

// CountryCurrency returns the provider descriptor, e.g. "Canada-Dollar".
func (q ExchangeRateQuery) CountryCurrency() string {
	return q.Country + "-" + q.Currency
}

// EffectiveDate returns the query date as YYYY-MM-DD.
func (q ExchangeRateQuery) EffectiveDate() string {
	return q.Date.Format(EffectiveDateLayout)
}

// ExchangeRateResult is either a found rate or an explicit absence. Absence
// means the provider answered and had no matching row.
type ExchangeRateResult struct {
	Rate  decimal.Decimal
	Found bool
}

// RateFound wraps a rate returned by the provider.
func RateFound(rate decimal.Decimal) ExchangeRateResult {
	return ExchangeRateResult{Rate: rate, Found: true}
}

// RateAbsent is the result for a reachable provider with no matching row.
func RateAbsent() ExchangeRateResult {
	return ExchangeRateResult{}
}
