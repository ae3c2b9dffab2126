// Package payment exposes the transaction executor and the refreshed
// payment history over JSON
package payment

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/kevin07696/gateway-reconciler/internal/handlers"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
	"github.com/shopspring/decimal"
)

// Handler serves payment operations
type Handler struct {
	executor servicesports.TransactionExecutor
	reader   servicesports.TransactionInfoReader
	logger   ports.Logger
}

// NewHandler creates a new payment handler
func NewHandler(executor servicesports.TransactionExecutor, reader servicesports.TransactionInfoReader, logger ports.Logger) *Handler {
	return &Handler{executor: executor, reader: reader, logger: logger}
}

// TransactionRequest is the body of POST /v1/payments/{op}
type TransactionRequest struct {
	AccountID       uuid.UUID              `json:"account_id" validate:"required"`
	PaymentID       uuid.UUID              `json:"payment_id" validate:"required"`
	TransactionID   uuid.UUID              `json:"transaction_id" validate:"required"`
	PaymentMethodID uuid.UUID              `json:"payment_method_id"`
	Amount          *decimal.Decimal       `json:"amount"`
	Currency        string                 `json:"currency" validate:"omitempty,len=3,alpha"`
	Properties      map[string]interface{} `json:"properties"`
}

type operation func(servicesports.TransactionExecutor, context.Context, *servicesports.PaymentRequest) (*domain.TransactionInfo, error)

var operations = map[string]struct {
	run         operation
	needsMethod bool
	needsAmount bool
}{
	"authorize": {servicesports.TransactionExecutor.Authorize, true, true},
	"purchase":  {servicesports.TransactionExecutor.Purchase, true, true},
	"capture":   {servicesports.TransactionExecutor.Capture, false, true},
	"refund":    {servicesports.TransactionExecutor.Refund, false, true},
	"void":      {servicesports.TransactionExecutor.Void, false, false},
	"credit":    {servicesports.TransactionExecutor.Credit, false, false},
}

// RegisterRoutes mounts the payment routes on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/payments/{op}", h.Execute)
	mux.HandleFunc("GET /v1/accounts/{accountID}/payments/{paymentID}", h.GetTransactionInfo)
}

// Execute runs one billing transaction
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	op, ok := operations[r.PathValue("op")]
	if !ok {
		handlers.RespondError(w, h.logger, domain.NewDomainError(domain.ErrorCodeNotFound, "unknown payment operation "+r.PathValue("op")))
		return
	}

	tenantID, err := handlers.TenantID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}

	var body TransactionRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	if op.needsMethod && body.PaymentMethodID == uuid.Nil {
		handlers.RespondError(w, h.logger, handlers.BadRequest("payment_method_id is required"))
		return
	}
	if op.needsAmount && body.Amount == nil {
		handlers.RespondError(w, h.logger, handlers.BadRequest("amount is required"))
		return
	}
	if body.Amount != nil && body.Amount.IsNegative() {
		handlers.RespondError(w, h.logger, handlers.BadRequest("amount must not be negative"))
		return
	}

	info, err := op.run(h.executor, r.Context(), &servicesports.PaymentRequest{
		AccountID:       body.AccountID,
		PaymentID:       body.PaymentID,
		TransactionID:   body.TransactionID,
		PaymentMethodID: body.PaymentMethodID,
		TenantID:        tenantID,
		Amount:          body.Amount,
		Currency:        body.Currency,
		Properties:      domain.AdditionalData(body.Properties),
	})
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, info)
}

// GetTransactionInfo returns the payment history, refreshed against the gateway
func (h *Handler) GetTransactionInfo(w http.ResponseWriter, r *http.Request) {
	tenantID, err := handlers.TenantID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	accountID, err := handlers.PathUUID(r, "accountID")
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	paymentID, err := handlers.PathUUID(r, "paymentID")
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}

	infos, err := h.reader.GetTransactionInfo(r.Context(), accountID, paymentID, tenantID)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, infos)
}
