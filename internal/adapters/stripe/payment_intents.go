package stripe

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

func expandLatestCharge(form url.Values) url.Values {
	if form == nil {
		form = url.Values{}
	}
	form.Add("expand[]", "latest_charge")
	return form
}

func setMetadata(form url.Values, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", metadata[k])
	}
}

func (a *Adapter) intentCall(ctx context.Context, req request) (*domain.PaymentIntent, error) {
	var wire paymentIntentJSON
	if err := a.call(ctx, req, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain()
}

// CreateAndConfirmCharge creates a payment intent and confirms it in one call
func (a *Adapter) CreateAndConfirmCharge(ctx context.Context, req *ports.ChargeRequest) (*domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("capture_method", string(req.CaptureMethod))
	form.Set("confirm", "true")
	form.Set("confirmation_method", "manual")
	form.Set("customer", req.CustomerID)
	if req.InstrumentKind == domain.InstrumentKindPaymentMethod || req.InstrumentKind == "" {
		form.Set("payment_method", req.InstrumentID)
	} else {
		form.Set("source", req.InstrumentID)
	}
	for _, t := range req.PaymentMethodTypes {
		form.Add("payment_method_types[]", t)
	}
	if req.Description != "" {
		form.Set("description", req.Description)
	}
	if req.StatementDescriptor != "" {
		form.Set("statement_descriptor", req.StatementDescriptor)
	}
	setMetadata(form, req.Metadata)

	return a.intentCall(ctx, request{
		op:             "create_intent",
		method:         http.MethodPost,
		path:           "/v1/payment_intents",
		form:           expandLatestCharge(form),
		idempotencyKey: req.IdempotencyKey,
	})
}

func (a *Adapter) CaptureCharge(ctx context.Context, intentID string, amountToCaptureMinor int64, idempotencyKey string) (*domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount_to_capture", strconv.FormatInt(amountToCaptureMinor, 10))
	return a.intentCall(ctx, request{
		op:             "capture",
		method:         http.MethodPost,
		path:           objectPath("/v1/payment_intents/%s/capture", intentID),
		form:           expandLatestCharge(form),
		idempotencyKey: idempotencyKey,
		objectID:       intentID,
	})
}

func (a *Adapter) CancelCharge(ctx context.Context, intentID string, idempotencyKey string) (*domain.PaymentIntent, error) {
	return a.intentCall(ctx, request{
		op:             "cancel",
		method:         http.MethodPost,
		path:           objectPath("/v1/payment_intents/%s/cancel", intentID),
		form:           expandLatestCharge(nil),
		idempotencyKey: idempotencyKey,
		objectID:       intentID,
	})
}

// RefundCharge refunds part or all of a charge
func (a *Adapter) RefundCharge(ctx context.Context, chargeID string, amountMinor int64, idempotencyKey string) (*domain.Refund, error) {
	form := url.Values{}
	form.Set("charge", chargeID)
	form.Set("amount", strconv.FormatInt(amountMinor, 10))

	var wire refundJSON
	if err := a.call(ctx, request{
		op:             "refund",
		method:         http.MethodPost,
		path:           "/v1/refunds",
		form:           form,
		idempotencyKey: idempotencyKey,
		objectID:       chargeID,
	}, &wire); err != nil {
		return nil, err
	}
	return &domain.Refund{
		ID:       wire.ID,
		ChargeID: wire.Charge,
		Amount:   wire.Amount,
		Currency: wire.Currency,
		Status:   wire.Status,
	}, nil
}

func (a *Adapter) RetrieveCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	var wire chargeJSON
	if err := a.call(ctx, request{
		op:       "retrieve_charge",
		method:   http.MethodGet,
		path:     objectPath("/v1/charges/%s", chargeID),
		objectID: chargeID,
	}, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// RetrieveObject fetches the live payment intent with its latest charge
func (a *Adapter) RetrieveObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return a.intentCall(ctx, request{
		op:       "retrieve",
		method:   http.MethodGet,
		path:     objectPath("/v1/payment_intents/%s", intentID),
		form:     expandLatestCharge(nil),
		objectID: intentID,
	})
}

func (a *Adapter) ConfirmObject(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	return a.intentCall(ctx, request{
		op:       "confirm",
		method:   http.MethodPost,
		path:     objectPath("/v1/payment_intents/%s/confirm", intentID),
		form:     expandLatestCharge(nil),
		objectID: intentID,
	})
}
