// Package api contains the client for the Treasury Fiscal Data rates of exchange endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL is the rates of exchange dataset of the Treasury Fiscal Data API.
	DefaultBaseURL = "https://api.fiscaldata.treasury.gov/services/api/fiscal_service/v1/accounting/od/rates_of_exchange"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second

	responseFields = "record_date,country,currency,exchange_rate"
	// maxBodyBytes caps how much of a response is read before decoding.
	maxBodyBytes = 1 << 20
)

// TreasuryAPIClient implements service.ExchangeRateProvider
type TreasuryAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

// NewTreasuryAPIClient creates a new Treasury API client. A nil httpClient
// gets one with DefaultTimeout; an empty baseURL means DefaultBaseURL.
func NewTreasuryAPIClient(baseURL string, httpClient *http.Client, log logger.Logger) *TreasuryAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &TreasuryAPIClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     log,
	}
}

// treasuryResponse is the subset of the Fiscal Data envelope the client reads.
// ExchangeRate is kept raw: the API may send it as a string or a number, and a
// missing field must be told apart from "0".
type treasuryResponse struct {
	Data []struct {
		RecordDate   string          `json:"record_date"`
		Country      string          `json:"country"`
		Currency     string          `json:"currency"`
		ExchangeRate json.RawMessage `json:"exchange_rate"`
	} `json:"data"`
}

// rateText returns the textual rate from a string or number JSON value.
// An empty result means the field was absent, null or blank.
func rateText(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return trimmed, nil
}

// buildURL encodes the upstream query: format, fields and the
// record_date / country_currency_desc equality filter.
func (c *TreasuryAPIClient) buildURL(query entity.ExchangeRateQuery) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid treasury base url %q: %w", c.baseURL, err)
	}

	params := u.Query()
	params.Set("format", "json")
	params.Set("fields", responseFields)
	params.Set("filter", strings.Join([]string{
		"record_date:eq:" + query.EffectiveDate(),
		"country_currency_desc:eq:" + query.CountryCurrency(),
	}, ","))
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// LookupRate fetches the rate for the query's date and country-currency pair.
// The first returned row wins. Calls are never retried.
func (c *TreasuryAPIClient) LookupRate(ctx context.Context, query entity.ExchangeRateQuery) (entity.ExchangeRateResult, error) {
	requestID := middleware.GetRequestID(ctx)

	reqURL, err := c.buildURL(query)
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: %v", entity.ErrProviderUnreachable, err)
	}

	c.logger.Debug("Requesting exchange rate", map[string]interface{}{
		"request_id": requestID,
		"url":        reqURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: failed to create request: %v", entity.ErrProviderUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: %v", entity.ErrProviderUnreachable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"request_id": requestID,
				"error":      closeErr.Error(),
			})
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: failed to read response body: %v", entity.ErrProviderUnreachable, err)
	}

	c.logger.Debug("Treasury API responded", map[string]interface{}{
		"request_id":  requestID,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return entity.RateAbsent(), fmt.Errorf("%w: unexpected status %d", entity.ErrProviderUnreachable, resp.StatusCode)
	}

	var decoded treasuryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: %v", entity.ErrProviderResponseMalformed, err)
	}

	if len(decoded.Data) == 0 {
		return entity.RateAbsent(), nil
	}

	text, err := rateText(decoded.Data[0].ExchangeRate)
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: %v", entity.ErrProviderResponseMalformed, err)
	}
	if text == "" {
		return entity.RateAbsent(), nil
	}

	rate, err := decimal.NewFromString(text)
	if err != nil {
		return entity.RateAbsent(), fmt.Errorf("%w: exchange_rate %q is not a number", entity.ErrProviderResponseMalformed, text)
	}

	return entity.RateFound(rate), nil
}
