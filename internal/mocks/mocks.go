// Package mocks holds testify mocks of the domain ports.
package mocks

import (
	"context"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseRepository mocks the PurchaseRepository interface
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Save(ctx context.Context, record *entity.PurchaseRecord) (*entity.PurchaseRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaseRecord), args.Error(1)
}

func (m *MockPurchaseRepository) FindByID(ctx context.Context, id int64) (*entity.PurchaseRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PurchaseRecord), args.Error(1)
}

// MockExchangeRateProvider mocks the ExchangeRateProvider interface
type MockExchangeRateProvider struct {
	mock.Mock
}

func (m *MockExchangeRateProvider) LookupRate(ctx context.Context, query entity.ExchangeRateQuery) (entity.ExchangeRateResult, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(entity.ExchangeRateResult), args.Error(1)
}
