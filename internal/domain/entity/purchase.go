package entity

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	// TransactionDateLayout is the ISO-8601 local date-time rendering used on output.
	TransactionDateLayout = "2006-01-02T15:04:05"
	// EffectiveDateLayout renders the calendar date used to select a rate.
	EffectiveDateLayout = "2006-01-02"
	// AmountScale is the number of fraction digits kept for every stored or converted amount.
	AmountScale = 2
	// MaxDescriptionLength is counted in characters, not bytes.
	MaxDescriptionLength = 50
	// MaxAmountIntegerDigits matches the numeric(20,2) purchases column.
	MaxAmountIntegerDigits = 18
	// MinAmountExponent bounds how many fraction digits a submitted amount may carry.
	MinAmountExponent = -20
)

// transactionDatePattern accepts hh:mm with optional seconds and fraction; no zone.
var transactionDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d{1,9})?)?$`)

var validate = validator.New()

// PurchaseRecord is a stored purchase. TransactionDate carries wall-clock
// fields only; its location is always UTC and has no meaning.
type PurchaseRecord struct {
	ID              int64           `json:"id"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
}

// PurchaseSubmission is the caller-supplied input to the create path.
type PurchaseSubmission struct {
	Description string `validate:"required,min=1,max=50"`
	TrxDate     string `validate:"required"`
	Amount      string `validate:"required"`
}

// Validate checks the structural constraints of the submission. Parsing of
// the date and amount text happens in ParseTransactionDate and ParseAmount.
func (s PurchaseSubmission) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Description":
		return fmt.Errorf("%w: must be between 1 and %d characters", ErrInvalidDescription, MaxDescriptionLength)
	case "TrxDate":
		return fmt.Errorf("%w: value is required", ErrInvalidDate)
	case "Amount":
		return fmt.Errorf("%w: value is required", ErrInvalidAmount)
	default:
		return fmt.Errorf("%w: field %s failed %s", ErrValidation, fe.Field(), fe.Tag())
	}
}

// ParseAmount parses a plain decimal number. Currency symbols, words and
// separators are rejected, as are amounts that would not fit in storage once
// rounded to AmountScale places.
func ParseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, text)
	}

	// Checked on coefficient and exponent so nothing is expanded first.
	exp := amount.Exponent()
	if exp < MinAmountExponent || exp > MaxAmountIntegerDigits || integerDigits(amount) > MaxAmountIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, text)
	}
	if integerDigits(NormalizeAmount(amount)) > MaxAmountIntegerDigits {
		return decimal.Zero, fmt.Errorf("%w: %q is out of range", ErrInvalidAmount, text)
	}
	return amount, nil
}

func integerDigits(d decimal.Decimal) int64 {
	if d.IsZero() {
		return 0
	}
	return int64(d.NumDigits()) + int64(d.Exponent())
}

// ParseTransactionDate parses an ISO-8601 local date-time such as
// 2023-03-31T10:00 or 2023-03-31T10:00:00.5. Offsets and zone markers are rejected.
func ParseTransactionDate(text string) (time.Time, error) {
	if !transactionDatePattern.MatchString(text) {
		return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 local date-time", ErrInvalidDate, text)
	}

	layout := "2006-01-02T15:04"
	if len(text) > len(layout) {
		layout = TransactionDateLayout
	}

	date, err := time.Parse(layout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return date, nil
}

// ParsePurchaseID parses a path identifier. Ids are positive base-10 integers.
func ParsePurchaseID(text string) (int64, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPurchaseID, text)
	}
	return id, nil
}

// Convert multiplies amount by rate and rounds half-up to AmountScale places.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(AmountScale)
}

// NormalizeAmount enforces storage precision. It is a conversion with a
// factor of one so that create and read share the same rounding.
func NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	return Convert(amount, decimal.NewFromInt(1))
}

// EffectiveDate truncates a transaction timestamp to its calendar date.
func EffectiveDate(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ConvertedPurchaseView is built on every read and never stored.
type ConvertedPurchaseView struct {
	ID              int64
	Description     string
	TransactionDate time.Time
	OriginalAmount  decimal.Decimal
	Currency        string
	Country         string
	ExchangeRate    decimal.Decimal
	ConvertedAmount decimal.Decimal
}
