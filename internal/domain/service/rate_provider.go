package service

import (
	"context"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
)

// ExchangeRateProvider looks up historical exchange rates
type ExchangeRateProvider interface {
	// LookupRate returns entity.RateAbsent() with a nil error when the provider
	// answered but holds no rate for the query. Transport and decoding faults
	// wrap entity.ErrRateProviderUnavailable.
	LookupRate(ctx context.Context, query entity.ExchangeRateQuery) (entity.ExchangeRateResult, error)
}
