// Package payment_method exposes the payment method mirror, hosted checkout
// and gateway notifications over JSON
package payment_method

import (
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
	"github.com/kevin07696/gateway-reconciler/internal/handlers"
	servicesports "github.com/kevin07696/gateway-reconciler/internal/services/ports"
)

// Handler serves payment method routes
type Handler struct {
	service servicesports.PaymentMethodService
	logger  ports.Logger
}

// NewHandler creates a new payment method handler
func NewHandler(service servicesports.PaymentMethodService, logger ports.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// AddRequest is the body of POST /v1/accounts/{accountID}/payment-methods
type AddRequest struct {
	PaymentMethodID uuid.UUID `json:"payment_method_id" validate:"required"`
	ExternalID      string    `json:"external_payment_method_id"`
	Object          string    `json:"object" validate:"omitempty,oneof=payment_method source bank_account"`
	SessionID       string    `json:"session_id"`
}

// FormRequest is the body of POST /v1/accounts/{accountID}/hosted-form
type FormRequest struct {
	PaymentID     *uuid.UUID        `json:"payment_id"`
	TransactionID *uuid.UUID        `json:"transaction_id"`
	Properties    map[string]string `json:"properties"`
}

// RegisterRoutes mounts the payment method routes on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/accounts/{accountID}/payment-methods", h.List)
	mux.HandleFunc("POST /v1/accounts/{accountID}/payment-methods", h.Add)
	mux.HandleFunc("GET /v1/accounts/{accountID}/payment-methods/{paymentMethodID}", h.Detail)
	mux.HandleFunc("DELETE /v1/accounts/{accountID}/payment-methods/{paymentMethodID}", h.Delete)
	mux.HandleFunc("POST /v1/accounts/{accountID}/hosted-form", h.BuildForm)
	mux.HandleFunc("POST /v1/notifications", h.Notify)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (accountID, tenantID uuid.UUID, ok bool) {
	tenantID, err := handlers.TenantID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return uuid.Nil, uuid.Nil, false
	}
	accountID, err = handlers.PathUUID(r, "accountID")
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, tenantID, true
}

// List returns the mirrored payment methods; ?refresh=true syncs with the gateway first
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accountID, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	refresh := false
	if raw := r.URL.Query().Get("refresh"); raw != "" {
		var err error
		if refresh, err = strconv.ParseBool(raw); err != nil {
			handlers.RespondError(w, h.logger, handlers.BadRequest("invalid refresh: %v", err))
			return
		}
	}

	infos, err := h.service.GetPaymentMethods(r.Context(), accountID, tenantID, refresh)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, infos)
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	accountID, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body AddRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	kind, _ := domain.ParseInstrumentKind(body.Object)

	rec, err := h.service.AddPaymentMethod(r.Context(), &servicesports.AddPaymentMethodRequest{
		AccountID:       accountID,
		PaymentMethodID: body.PaymentMethodID,
		TenantID:        tenantID,
		ExternalID:      body.ExternalID,
		Kind:            kind,
		SessionID:       body.SessionID,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	accountID, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	paymentMethodID, err := handlers.PathUUID(r, "paymentMethodID")
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}

	detail, err := h.service.GetPaymentMethodDetail(r.Context(), accountID, paymentMethodID, tenantID)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, detail)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	paymentMethodID, err := handlers.PathUUID(r, "paymentMethodID")
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}

	if err := h.service.DeletePaymentMethod(r.Context(), accountID, paymentMethodID, tenantID); err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BuildForm opens a hosted checkout session for the account
func (h *Handler) BuildForm(w http.ResponseWriter, r *http.Request) {
	accountID, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var body FormRequest
	if r.ContentLength != 0 {
		if err := handlers.Decode(r, &body); err != nil {
			handlers.RespondError(w, h.logger, err)
			return
		}
	}

	descriptor, err := h.service.BuildFormDescriptor(r.Context(), &servicesports.FormDescriptorRequest{
		AccountID:     accountID,
		TenantID:      tenantID,
		PaymentID:     body.PaymentID,
		TransactionID: body.TransactionID,
		Properties:    body.Properties,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, descriptor)
}

// Notify accepts gateway notifications
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	tenantID, err := handlers.TenantID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		handlers.RespondError(w, h.logger, handlers.BadRequest("unreadable body: %v", err))
		return
	}

	if err := h.service.ProcessNotification(r.Context(), payload, tenantID); err != nil {
		handlers.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
