// Package service internal/application/service/purchase_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/damon-houk/wex-purchase-conversion/internal/domain/repository"
	domainservice "github.com/damon-houk/wex-purchase-conversion/internal/domain/service"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/metrics"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/middleware"
)

// PurchaseService records purchases and produces currency-converted views of them
type PurchaseService struct {
	repo    repository.PurchaseRepository
	rates   domainservice.ExchangeRateProvider
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewPurchaseService creates a new purchase service. m may be nil.
func NewPurchaseService(repo repository.PurchaseRepository, rates domainservice.ExchangeRateProvider, log logger.Logger, m *metrics.Metrics) *PurchaseService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PurchaseService{
		repo:    repo,
		rates:   rates,
		logger:  log,
		metrics: m,
	}
}

// CreatePurchase validates a submission and stores it with its amount rounded
// half-up to cents. Rejected submissions never reach the store.
func (s *PurchaseService) CreatePurchase(ctx context.Context, submission entity.PurchaseSubmission) (*entity.PurchaseRecord, error) {
	requestID := middleware.GetRequestID(ctx)

	record, err := buildRecord(submission)
	if err != nil {
		s.logger.Warn("Purchase submission rejected", map[string]interface{}{
			"request_id": requestID,
			"trx_date":   submission.TrxDate,
			"amount":     submission.Amount,
			"error":      err.Error(),
		})
		return nil, err
	}

	stored, err := s.repo.Save(ctx, record)
	if err != nil {
		s.logger.Error("Failed to store purchase", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("failed to store purchase: %w", err)
	}

	s.metrics.RecordPurchaseCreated()
	s.logger.Info("Purchase created", map[string]interface{}{
		"request_id": requestID,
		"id":         stored.ID,
		"amount_usd": stored.AmountUSD.StringFixed(entity.AmountScale),
	})

	return stored, nil
}

func buildRecord(submission entity.PurchaseSubmission) (*entity.PurchaseRecord, error) {
	if err := submission.Validate(); err != nil {
		return nil, err
	}

	amount, err := entity.ParseAmount(submission.Amount)
	if err != nil {
		return nil, err
	}

	date, err := entity.ParseTransactionDate(submission.TrxDate)
	if err != nil {
		return nil, err
	}

	return &entity.PurchaseRecord{
		Description:     submission.Description,
		TransactionDate: date,
		AmountUSD:       entity.NormalizeAmount(amount),
	}, nil
}

// GetConvertedPurchase returns the purchase converted with the rate effective
// on its calendar date for the country-currency pair.
//
// The boolean reports whether a rate was found. (nil, false, nil) means the
// provider answered without a matching rate; provider faults are returned as
// errors wrapping entity.ErrRateProviderUnavailable instead.
func (s *PurchaseService) GetConvertedPurchase(ctx context.Context, id int64, currency, country string) (*entity.ConvertedPurchaseView, bool, error) {
	requestID := middleware.GetRequestID(ctx)

	if strings.TrimSpace(currency) == "" || strings.TrimSpace(country) == "" {
		s.metrics.RecordConversion(metrics.OutcomeInvalid)
		return nil, false, entity.ErrInvalidRateQuery
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrPurchaseNotFound) {
			s.metrics.RecordConversion(metrics.OutcomeNotFound)
			s.logger.Info("Purchase not found", map[string]interface{}{
				"request_id": requestID,
				"id":         id,
			})
			return nil, false, err
		}

		s.metrics.RecordConversion(metrics.OutcomeError)
		s.logger.Error("Failed to retrieve purchase for conversion", map[string]interface{}{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		})
		return nil, false, fmt.Errorf("failed to retrieve purchase: %w", err)
	}

	query := entity.ExchangeRateQuery{
		Date:     entity.EffectiveDate(record.TransactionDate),
		Country:  country,
		Currency: currency,
	}

	result, err := s.rates.LookupRate(ctx, query)
	if err != nil {
		if !errors.Is(err, entity.ErrRateProviderUnavailable) {
			err = fmt.Errorf("%w: %v", entity.ErrProviderUnreachable, err)
		}
		s.metrics.RecordConversion(metrics.OutcomeProviderUnavailable)
		s.metrics.RecordProviderFailure(err)
		s.logger.Error("Exchange rate provider unavailable", map[string]interface{}{
			"request_id":       requestID,
			"id":               id,
			"date":             query.EffectiveDate(),
			"country_currency": query.CountryCurrency(),
			"error":            err.Error(),
		})
		return nil, false, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	if !result.Found {
		s.metrics.RecordConversion(metrics.OutcomeNoRate)
		s.logger.Warn("No exchange rate available", map[string]interface{}{
			"request_id":       requestID,
			"id":               id,
			"date":             query.EffectiveDate(),
			"country_currency": query.CountryCurrency(),
		})
		return nil, false, nil
	}

	view := &entity.ConvertedPurchaseView{
		ID:              record.ID,
		Description:     record.Description,
		TransactionDate: record.TransactionDate,
		OriginalAmount:  record.AmountUSD,
		Currency:        currency,
		Country:         country,
		ExchangeRate:    result.Rate,
		ConvertedAmount: entity.Convert(record.AmountUSD, result.Rate),
	}

	s.metrics.RecordConversion(metrics.OutcomeSuccess)
	s.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"id":               id,
		"country_currency": query.CountryCurrency(),
		"exchange_rate":    view.ExchangeRate.String(),
		"converted_amount": view.ConvertedAmount.StringFixed(entity.AmountScale),
	})

	return view, true, nil
}
