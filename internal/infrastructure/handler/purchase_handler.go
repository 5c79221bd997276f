// Package handler internal/infrastructure/handler/purchase_handler.go
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/damon-houk/wex-purchase-conversion/internal/domain/entity"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/logger"
	"github.com/damon-houk/wex-purchase-conversion/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// PurchaseService is the application service behind the purchase routes
type PurchaseService interface {
	CreatePurchase(ctx context.Context, submission entity.PurchaseSubmission) (*entity.PurchaseRecord, error)
	GetConvertedPurchase(ctx context.Context, id int64, currency, country string) (*entity.ConvertedPurchaseView, bool, error)
}

// PurchaseHandler handles HTTP requests for purchases
type PurchaseHandler struct {
	service PurchaseService
	logger  logger.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(service PurchaseService, log logger.Logger) *PurchaseHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &PurchaseHandler{
		service: service,
		logger:  log,
	}
}

// CreatePurchase handles POST /purchase
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	record, err := h.service.CreatePurchase(r.Context(), req.toSubmission())
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrValidation):
			sendErrorResponse(w, h.logger, "Invalid purchase", err.Error(), http.StatusBadRequest, requestID)
		default:
			h.logger.Error("Unexpected error in create purchase", map[string]interface{}{
				"request_id": requestID,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Internal server error",
				"An unexpected error occurred while creating the purchase",
				http.StatusInternalServerError, requestID)
		}
		return
	}

	w.Header().Set("Location", "/purchase/"+strconv.FormatInt(record.ID, 10))
	writeJSON(w, h.logger, http.StatusCreated, CreatePurchaseResponse{TransactionID: record.ID}, requestID)
}

// GetPurchase handles GET /purchase/{transactionId}?currency=&country=
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	rawID := mux.Vars(r)["transactionId"]

	id, err := entity.ParsePurchaseID(rawID)
	if err != nil {
		h.logger.Warn("Invalid transaction id", map[string]interface{}{
			"request_id": requestID,
			"id":         rawID,
		})
		sendErrorResponse(w, h.logger, "Invalid transaction id",
			"The transaction id must be a positive integer", http.StatusBadRequest, requestID)
		return
	}

	query := r.URL.Query()
	currency := query.Get("currency")
	country := query.Get("country")

	view, found, err := h.service.GetConvertedPurchase(r.Context(), id, currency, country)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrValidation):
			sendErrorResponse(w, h.logger, "Invalid request",
				"The 'currency' and 'country' query parameters are required", http.StatusBadRequest, requestID)
		case errors.Is(err, entity.ErrPurchaseNotFound):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, entity.ErrRateProviderUnavailable):
			sendErrorResponse(w, h.logger, "Exchange rate service unavailable",
				"Unable to retrieve exchange rate data. Please try again later.",
				http.StatusServiceUnavailable, requestID)
		default:
			h.logger.Error("Unexpected error in get purchase", map[string]interface{}{
				"request_id": requestID,
				"id":         id,
				"error":      err.Error(),
			})
			sendErrorResponse(w, h.logger, "Internal server error",
				"An unexpected error occurred. Please try again later.",
				http.StatusInternalServerError, requestID)
		}
		return
	}

	if !found {
		sendErrorResponse(w, h.logger, "No exchange rate available",
			"No exchange rate exists for the purchase date and the requested country and currency",
			http.StatusInternalServerError, requestID)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, toConvertedPurchaseResponse(view), requestID)
}

// Health reports liveness
func (h *PurchaseHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"}, middleware.GetRequestID(r.Context()))
}

// RegisterRoutes registers the purchase handler routes
func (h *PurchaseHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/purchase", h.CreatePurchase).Methods(http.MethodPost)
	router.HandleFunc("/purchase/{transactionId}", h.GetPurchase).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	h.logger.Info("Purchase routes registered", map[string]interface{}{
		"routes": []string{
			"POST /purchase",
			"GET /purchase/{transactionId}",
			"GET /health",
		},
	})
}

func writeJSON(w http.ResponseWriter, log logger.Logger, statusCode int, body interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to encode response", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
	}
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	writeJSON(w, log, statusCode, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	}, requestID)
}
