// internal/application/service/purchase_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/metrics"
	"github.com/damon-houk/wex-purchase-conversion/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService() (*PurchaseService, *mocks.MockPurchaseRepository, *mocks.MockExchangeRateProvider, *metrics.Metrics) {
	repo := new(mocks.MockPurchaseRepository)
	rates := new(mocks.MockExchangeRateProvider)
	m := metrics.New()
	log := logger.NewLogrusLogger(nil, logger.ErrorLevel)
	return NewPurchaseService(repo, rates, log, m), repo, rates, m
}

// counterValue reads a counter from the service registry; labelValue is
// ignored for unlabelled counters.
func counterValue(t *testing.T, m *metrics.Metrics, name, labelValue string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := metric.GetLabel()
			if len(labels) == 0 || labels[0].GetValue() == labelValue {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func conversionCount(t *testing.T, m *metrics.Metrics, outcome string) float64 {
	return counterValue(t, m, "purchase_conversions_total", outcome)
}

func TestCreatePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid submission is rounded and stored", func(t *testing.T) {
		svc, repo, _, _ := newTestService()
		submission := entity.PurchaseSubmission{
			Description: "test purchase",
			TrxDate:     "2023-03-31T10:00",
			Amount:      "543.456",
		}

		repo.On("Save", ctx, mock.MatchedBy(func(r *entity.PurchaseRecord) bool {
			return r.ID == 0 &&
				r.Description == "test purchase" &&
				r.TransactionDate.Equal(time.Date(2023, 3, 31, 10, 0, 0, 0, time.UTC)) &&
				r.AmountUSD.StringFixed(2) == "543.46"
		})).Return(&entity.PurchaseRecord{
			ID:              99,
			Description:     "test purchase",
			TransactionDate: time.Date(2023, 3, 31, 10, 0, 0, 0, time.UTC),
			AmountUSD:       decimal.RequireFromString("543.46"),
		}, nil).Once()

		record, err := svc.CreatePurchase(ctx, submission)

		require.NoError(t, err)
		assert.Equal(t, int64(99), record.ID)
		assert.Equal(t, "543.46", record.AmountUSD.StringFixed(2))
		repo.AssertExpectations(t)
	})

	invalidDates := []string{"2021-03T09:00", "2021-03-31 09:00", "2021-03-31T09:000Z"}
	for _, date := range invalidDates {
		t.Run("Invalid date "+date, func(t *testing.T) {
			svc, repo, _, _ := newTestService()

			record, err := svc.CreatePurchase(ctx, entity.PurchaseSubmission{
				Description: "test purchase",
				TrxDate:     date,
				Amount:      "543.456",
			})

			assert.Nil(t, record)
			assert.ErrorIs(t, err, entity.ErrInvalidDate)
			assert.ErrorIs(t, err, entity.ErrValidation)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}

	invalidAmounts := []string{"$54.67", "467.45 dollars", "1e400", "1e-400", "1e20000000"}
	for _, amount := range invalidAmounts {
		t.Run("Invalid amount "+amount, func(t *testing.T) {
			svc, repo, _, _ := newTestService()

			record, err := svc.CreatePurchase(ctx, entity.PurchaseSubmission{
				Description: "test purchase",
				TrxDate:     "2023-03-31T10:00",
				Amount:      amount,
			})

			assert.Nil(t, record)
			assert.ErrorIs(t, err, entity.ErrInvalidAmount)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}

	t.Run("Description too long", func(t *testing.T) {
		svc, repo, _, _ := newTestService()

		_, err := svc.CreatePurchase(ctx, entity.PurchaseSubmission{
			Description: "This description is way too long and exceeds the 50 character limit",
			TrxDate:     "2023-03-31T10:00",
			Amount:      "10",
		})

		assert.ErrorIs(t, err, entity.ErrInvalidDescription)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("Repository error", func(t *testing.T) {
		svc, repo, _, m := newTestService()
		repo.On("Save", ctx, mock.Anything).Return(nil, errors.New("disk full")).Once()

		record, err := svc.CreatePurchase(ctx, entity.PurchaseSubmission{
			Description: "test purchase",
			TrxDate:     "2023-03-31T10:00",
			Amount:      "10",
		})

		assert.Nil(t, record)
		require.Error(t, err)
		assert.NotErrorIs(t, err, entity.ErrValidation)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, 0.0, counterValue(t, m, "purchase_created_total", ""))
		repo.AssertExpectations(t)
	})
}

func storedPurchase() *entity.PurchaseRecord {
	return &entity.PurchaseRecord{
		ID:              99,
		Description:     "this is a test purchase",
		TransactionDate: time.Date(2021, 3, 31, 9, 0, 0, 0, time.UTC),
		AmountUSD:       decimal.RequireFromString("543.56"),
	}
}

func TestGetConvertedPurchase(t *testing.T) {
	ctx := context.Background()
	mexicoPeso := entity.ExchangeRateQuery{
		Date:     time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC),
		Country:  "Mexico",
		Currency: "Peso",
	}

	t.Run("Successful conversion", func(t *testing.T) {
		svc, repo, rates, m := newTestService()
		repo.On("FindByID", ctx, int64(99)).Return(storedPurchase(), nil).Once()
		rates.On("LookupRate", ctx, mexicoPeso).
			Return(entity.RateFound(decimal.RequireFromString("20.518")), nil).Once()

		view, found, err := svc.GetConvertedPurchase(ctx, 99, "Peso", "Mexico")

		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "this is a test purchase", view.Description)
		assert.True(t, view.TransactionDate.Equal(time.Date(2021, 3, 31, 9, 0, 0, 0, time.UTC)))
		assert.Equal(t, "543.56", view.OriginalAmount.StringFixed(2))
		assert.Equal(t, "20.518", view.ExchangeRate.String())
		assert.Equal(t, "11152.76", view.ConvertedAmount.StringFixed(2))
		assert.Equal(t, 1.0, conversionCount(t, m, metrics.OutcomeSuccess))
		repo.AssertExpectations(t)
		rates.AssertExpectations(t)
	})

	t.Run("Effective date drops the time of day", func(t *testing.T) {
		svc, repo, rates, _ := newTestService()
		late := storedPurchase()
		late.TransactionDate = time.Date(2021, 3, 31, 23, 59, 0, 0, time.UTC)
		repo.On("FindByID", ctx, int64(99)).Return(late, nil).Once()
		rates.On("LookupRate", ctx, mexicoPeso).
			Return(entity.RateFound(decimal.RequireFromString("1")), nil).Once()

		_, found, err := svc.GetConvertedPurchase(ctx, 99, "Peso", "Mexico")

		require.NoError(t, err)
		assert.True(t, found)
		rates.AssertExpectations(t)
	})

	t.Run("Purchase not found never queries the provider", func(t *testing.T) {
		svc, repo, rates, m := newTestService()
		repo.On("FindByID", ctx, int64(7)).
			Return(nil, entity.ErrPurchaseNotFound).Once()

		view, found, err := svc.GetConvertedPurchase(ctx, 7, "Peso", "Mexico")

		assert.Nil(t, view)
		assert.False(t, found)
		assert.ErrorIs(t, err, entity.ErrPurchaseNotFound)
		assert.Equal(t, 1.0, conversionCount(t, m, metrics.OutcomeNotFound))
		rates.AssertNotCalled(t, "LookupRate", mock.Anything, mock.Anything)
	})

	t.Run("No rate is an absent result, not an error", func(t *testing.T) {
		svc, repo, rates, m := newTestService()
		dinar := mexicoPeso
		dinar.Currency = "Dinar"
		repo.On("FindByID", ctx, int64(99)).Return(storedPurchase(), nil).Once()
		rates.On("LookupRate", ctx, dinar).Return(entity.RateAbsent(), nil).Once()

		view, found, err := svc.GetConvertedPurchase(ctx, 99, "Dinar", "Mexico")

		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, view)
		assert.Equal(t, 1.0, conversionCount(t, m, metrics.OutcomeNoRate))
		assert.Equal(t, 0.0, counterValue(t, m, "rate_provider_failures_total", metrics.ReasonUnreachable))
	})

	t.Run("Provider unreachable", func(t *testing.T) {
		svc, repo, rates, m := newTestService()
		repo.On("FindByID", ctx, int64(99)).Return(storedPurchase(), nil).Once()
		rates.On("LookupRate", ctx, mexicoPeso).
			Return(entity.RateAbsent(), entity.ErrProviderUnreachable).Once()

		view, found, err := svc.GetConvertedPurchase(ctx, 99, "Peso", "Mexico")

		assert.Nil(t, view)
		assert.False(t, found)
		assert.ErrorIs(t, err, entity.ErrRateProviderUnavailable)
		assert.Equal(t, 1.0, conversionCount(t, m, metrics.OutcomeProviderUnavailable))
		assert.Equal(t, 1.0, counterValue(t, m, "rate_provider_failures_total", metrics.ReasonUnreachable))
	})

	t.Run("Unclassified provider error is treated as unreachable", func(t *testing.T) {
		svc, repo, rates, _ := newTestService()
		repo.On("FindByID", ctx, int64(99)).Return(storedPurchase(), nil).Once()
		rates.On("LookupRate", ctx, mexicoPeso).
			Return(entity.RateAbsent(), errors.New("connection reset")).Once()

		_, _, err := svc.GetConvertedPurchase(ctx, 99, "Peso", "Mexico")

		assert.ErrorIs(t, err, entity.ErrProviderUnreachable)
	})

	t.Run("Repository fault is not a not-found", func(t *testing.T) {
		svc, repo, rates, _ := newTestService()
		repo.On("FindByID", ctx, int64(99)).Return(nil, errors.New("io error")).Once()

		_, _, err := svc.GetConvertedPurchase(ctx, 99, "Peso", "Mexico")

		require.Error(t, err)
		assert.NotErrorIs(t, err, entity.ErrPurchaseNotFound)
		rates.AssertNotCalled(t, "LookupRate", mock.Anything, mock.Anything)
	})

	t.Run("Missing currency or country", func(t *testing.T) {
		svc, repo, _, _ := newTestService()

		_, _, err := svc.GetConvertedPurchase(ctx, 99, "", "Mexico")
		assert.ErrorIs(t, err, entity.ErrInvalidRateQuery)

		_, _, err = svc.GetConvertedPurchase(ctx, 99, "Peso", " ")
		assert.ErrorIs(t, err, entity.ErrValidation)

		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}
