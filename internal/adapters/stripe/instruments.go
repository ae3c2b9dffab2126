package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

const listPageSize = 100

// ListInstruments pages through the customer's payment methods of one type
func (a *Adapter) ListInstruments(ctx context.Context, customerID, instrumentType string) ([]domain.Instrument, error) {
	var instruments []domain.Instrument
	startingAfter := ""
	for {
		form := url.Values{}
		form.Set("customer", customerID)
		form.Set("type", instrumentType)
		form.Set("limit", strconv.Itoa(listPageSize))
		if startingAfter != "" {
			form.Set("starting_after", startingAfter)
		}

		var page listJSON
		if err := a.call(ctx, request{
			op:       "list_payment_methods",
			method:   http.MethodGet,
			path:     "/v1/payment_methods",
			form:     form,
			objectID: customerID,
		}, &page); err != nil {
			return nil, err
		}

		batch, err := decodeInstruments(page.Data)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, batch...)
		if !page.HasMore || len(batch) == 0 {
			return instruments, nil
		}
		startingAfter = batch[len(batch)-1].ID
	}
}

// RetrieveCustomer returns the customer with every legacy source
func (a *Adapter) RetrieveCustomer(ctx context.Context, customerID string) (*domain.Customer, error) {
	form := url.Values{}
	form.Add("expand[]", "sources")

	var wire customerJSON
	if err := a.call(ctx, request{
		op:       "retrieve_customer",
		method:   http.MethodGet,
		path:     objectPath("/v1/customers/%s", customerID),
		form:     form,
		objectID: customerID,
	}, &wire); err != nil {
		return nil, err
	}

	customer := &domain.Customer{ID: wire.ID, Email: wire.Email}
	if wire.Sources == nil {
		return customer, nil
	}

	sources, err := decodeInstruments(wire.Sources.Data)
	if err != nil {
		return nil, err
	}
	hasMore := wire.Sources.HasMore
	for hasMore && len(sources) > 0 {
		page := url.Values{}
		page.Set("limit", strconv.Itoa(listPageSize))
		page.Set("starting_after", sources[len(sources)-1].ID)

		var next listJSON
		if err := a.call(ctx, request{
			op:       "list_sources",
			method:   http.MethodGet,
			path:     objectPath("/v1/customers/%s/sources", customerID),
			form:     page,
			objectID: customerID,
		}, &next); err != nil {
			return nil, err
		}
		batch, err := decodeInstruments(next.Data)
		if err != nil {
			return nil, err
		}
		sources = append(sources, batch...)
		hasMore = next.HasMore && len(batch) > 0
	}

	for i := range sources {
		if sources[i].CustomerID == "" {
			sources[i].CustomerID = customerID
		}
	}
	customer.Sources = sources
	return customer, nil
}

// RetrieveInstrument fetches one instrument by kind. Sources and bank accounts
// are read through the owning customer.
func (a *Adapter) RetrieveInstrument(ctx context.Context, kind domain.InstrumentKind, customerID, instrumentID string) (*domain.Instrument, error) {
	var path string
	switch kind {
	case domain.InstrumentKindPaymentMethod:
		path = objectPath("/v1/payment_methods/%s", instrumentID)
	case domain.InstrumentKindSource:
		if customerID == "" {
			path = objectPath("/v1/sources/%s", instrumentID)
		} else {
			path = objectPath("/v1/customers/%s/sources/%s", customerID, instrumentID)
		}
	case domain.InstrumentKindBankAccount:
		if customerID == "" {
			return nil, fmt.Errorf("bank account %s requires a customer", instrumentID)
		}
		path = objectPath("/v1/customers/%s/sources/%s", customerID, instrumentID)
	default:
		return nil, fmt.Errorf("unsupported instrument kind %q", kind)
	}

	var raw json.RawMessage
	if err := a.call(ctx, request{
		op:       "retrieve_instrument",
		method:   http.MethodGet,
		path:     path,
		objectID: instrumentID,
	}, &raw); err != nil {
		return nil, err
	}
	instrument, err := decodeInstrument(raw)
	if err != nil {
		return nil, err
	}
	if instrument.CustomerID == "" {
		instrument.CustomerID = customerID
	}
	return instrument, nil
}

// DetachInstrument detaches a payment method from its customer
func (a *Adapter) DetachInstrument(ctx context.Context, instrumentID string) error {
	return a.call(ctx, request{
		op:       "detach",
		method:   http.MethodPost,
		path:     objectPath("/v1/payment_methods/%s/detach", instrumentID),
		objectID: instrumentID,
	}, nil)
}

// CreateCheckoutSession creates a hosted checkout session in payment mode
func (a *Adapter) CreateCheckoutSession(ctx context.Context, req *ports.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	if req.CustomerID != "" {
		form.Set("customer", req.CustomerID)
	}
	for _, t := range req.PaymentMethodTypes {
		form.Add("payment_method_types[]", t)
	}
	for i, item := range req.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[price_data][currency]", item.Currency)
		form.Set(prefix+"[price_data][unit_amount]", item.AmountMinor)
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
		form.Set(prefix+"[quantity]", item.Quantity)
	}
	if req.CaptureMethod != "" {
		form.Set("payment_intent_data[capture_method]", string(req.CaptureMethod))
	}
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	setMetadata(form, req.Metadata)

	var wire checkoutSessionJSON
	if err := a.call(ctx, request{
		op:       "create_checkout_session",
		method:   http.MethodPost,
		path:     "/v1/checkout/sessions",
		form:     form,
		objectID: req.CustomerID,
	}, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}
