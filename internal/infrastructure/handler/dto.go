package handler

import (
	"encoding/json"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
)

// amountText accepts an amount either as a JSON string or a JSON number and
// keeps its exact digits.
type amountText string

func (a *amountText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountText(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountText(n)
	return nil
}

// CreatePurchaseRequest represents the request body for creating a purchase
type CreatePurchaseRequest struct {
	Description string     `json:"description"`
	TrxDate     string     `json:"trxDate"`
	Amount      amountText `json:"amount"`
}

func (r CreatePurchaseRequest) toSubmission() entity.PurchaseSubmission {
	return entity.PurchaseSubmission{
		Description: r.Description,
		TrxDate:     r.TrxDate,
		Amount:      string(r.Amount),
	}
}

// CreatePurchaseResponse represents the response for the create purchase endpoint
type CreatePurchaseResponse struct {
	TransactionID int64 `json:"transactionId"`
}

// ConvertedPurchaseResponse represents the response for the converted purchase endpoint.
// Amounts are JSON numbers with exactly two fraction digits.
type ConvertedPurchaseResponse struct {
	TransactionID int64       `json:"transactionId"`
	Description   string      `json:"description"`
	TrxDate       string      `json:"trxDate"`
	OriginalAmt   json.Number `json:"originalAmt"`
	Currency      string      `json:"currency"`
	Country       string      `json:"country"`
	ExchangeRate  json.Number `json:"exchangeRate"`
	ConvertedAmt  json.Number `json:"convertedAmt"`
}

func toConvertedPurchaseResponse(view *entity.ConvertedPurchaseView) ConvertedPurchaseResponse {
	return ConvertedPurchaseResponse{
		TransactionID: view.ID,
		Description:   view.Description,
		TrxDate:       view.TransactionDate.Format(entity.TransactionDateLayout),
		OriginalAmt:   json.Number(view.OriginalAmount.StringFixed(entity.AmountScale)),
		Currency:      view.Currency,
		Country:       view.Country,
		ExchangeRate:  json.Number(view.ExchangeRate.String()),
		ConvertedAmt:  json.Number(view.ConvertedAmount.StringFixed(entity.AmountScale)),
	}
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}
