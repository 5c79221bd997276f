package entity

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input rejection. Callers map it to a
// client error and never retry.
var ErrValidation = errors.New("validation error")

var (
	ErrInvalidAmount      = fmt.Errorf("%w: invalid purchase amount", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid transaction date", ErrValidation)
	ErrInvalidDescription = fmt.Errorf("%w: invalid description", ErrValidation)
	ErrInvalidPurchaseID  = fmt.Errorf("%w: invalid purchase id", ErrValidation)
	ErrInvalidRateQuery   = fmt.Errorf("%w: currency and country are required", ErrValidation)
)

// ErrPurchaseNotFound is returned by stores when no record has the requested id.
var ErrPurchaseNotFound = errors.New("purchase not found")

// ErrRateProviderUnavailable groups downstream faults of the exchange rate
// provider. It does not cover the provider answering with no matching row.
var ErrRateProviderUnavailable = errors.New("exchange rate provider unavailable")

var (
	ErrProviderUnreachable       = fmt.Errorf("%w: unreachable", ErrRateProviderUnavailable)
	ErrProviderResponseMalformed = fmt.Errorf("%w: malformed response", ErrRateProviderUnavailable)
)
