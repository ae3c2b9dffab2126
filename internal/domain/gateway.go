package domain

import (
	"errors"
	"fmt"
)

// Charge is the last attempt made on a payment intent
type Charge struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Status            string            `json:"status"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	AuthorizationCode string            `json:"authorization_code"`
	FailureCode       string            `json:"failure_code"`
	FailureMessage    string            `json:"failure_message"`
	PaymentIntentID   string            `json:"payment_intent"`
	PaymentMethodID   string            `json:"payment_method"`
	PaymentMethodType string            `json:"payment_method_type"`
	Paid              bool              `json:"paid"`
	Created           int64             `json:"created"`
	Metadata          map[string]string `json:"metadata"`
}

// PaymentIntent is the top-level gateway object a transaction record tracks
type PaymentIntent struct {
	ID                   string            `json:"id"`
	Object               string            `json:"object"`
	Status               string            `json:"status"`
	Amount               int64             `json:"amount"`
	AmountCapturable     int64             `json:"amount_capturable"`
	AmountReceived       int64             `json:"amount_received"`
	Currency             string            `json:"currency"`
	CustomerID           string            `json:"customer"`
	PaymentMethodID      string            `json:"payment_method"`
	CaptureMethod        string            `json:"capture_method"`
	ConfirmationMethod   string            `json:"confirmation_method"`
	Description          string            `json:"description"`
	StatementDescriptor  string            `json:"statement_descriptor"`
	CancellationReason   string            `json:"cancellation_reason"`
	RequiresAction       bool              `json:"-"`
	NextActionType       string            `json:"-"`
	LastPaymentErrorCode string            `json:"-"`
	LastCharge           *Charge           `json:"-"`
	Livemode             bool              `json:"livemode"`
	Created              int64             `json:"created"`
	Metadata             map[string]string `json:"metadata"`
}

// AdditionalData flattens the intent and its last charge into the bag layout
// persisted with every transaction record
func (pi *PaymentIntent) AdditionalData() AdditionalData {
	data := AdditionalData{
		KeyID:                  pi.ID,
		KeyObject:              pi.Object,
		KeyStatus:              pi.Status,
		"amount":               pi.Amount,
		"amount_capturable":    pi.AmountCapturable,
		"amount_received":      pi.AmountReceived,
		"currency":             pi.Currency,
		KeyCustomerID:          pi.CustomerID,
		KeyPaymentMethodID:     pi.PaymentMethodID,
		"capture_method":       pi.CaptureMethod,
		"confirmation_method":  pi.ConfirmationMethod,
		"description":          pi.Description,
		"statement_descriptor": pi.StatementDescriptor,
		"cancellation_reason":  pi.CancellationReason,
		KeyLastPaymentError:    pi.LastPaymentErrorCode,
		"livemode":             pi.Livemode,
		"created":              pi.Created,
	}
	if pi.RequiresAction {
		data[KeyNextAction] = pi.NextActionType
	}
	if len(pi.Metadata) > 0 {
		data["metadata"] = stringMap(pi.Metadata)
	}

	if c := pi.LastCharge; c != nil {
		data[KeyLastChargeID] = c.ID
		data[KeyLastChargeStatus] = c.Status
		data[KeyLastChargeAmount] = c.Amount
		data[KeyLastChargeCurrency] = c.Currency
		data[KeyLastChargeAuthorizationCode] = c.AuthorizationCode
		data[KeyLastChargeFailureCode] = c.FailureCode
		data[KeyLastChargeFailureMessage] = c.FailureMessage
		data[KeyLastChargePaymentMethodType] = c.PaymentMethodType
		data["last_charge_paid"] = c.Paid
		data["last_charge_created"] = c.Created
	}
	return data.Compact()
}

// intentKeys are every key AdditionalData can produce for an intent
var intentKeys = []string{
	KeyID, KeyObject, KeyStatus, "amount", "amount_capturable", "amount_received", "currency",
	KeyCustomerID, KeyPaymentMethodID, "capture_method", "confirmation_method", "description",
	"statement_descriptor", "cancellation_reason", KeyLastPaymentError, "livemode", "created",
	KeyNextAction, "metadata",
	KeyLastChargeID, KeyLastChargeStatus, KeyLastChargeAmount, KeyLastChargeCurrency,
	KeyLastChargeAuthorizationCode, KeyLastChargeFailureCode, KeyLastChargeFailureMessage,
	KeyLastChargePaymentMethodType, "last_charge_paid", "last_charge_created",
}

// RefreshPatch replaces the gateway-derived part of a stored bag with the
// live intent. Keys the intent no longer reports are cleared; caller supplied
// keys such as fromHPP are left alone.
func (pi *PaymentIntent) RefreshPatch() AdditionalData {
	patch := pi.AdditionalData()
	for _, key := range intentKeys {
		if _, ok := patch[key]; !ok {
			patch[key] = nil
		}
	}
	return patch
}

// IsAuthenticationFailure reports a 3DS challenge that was not passed
func (pi *PaymentIntent) IsAuthenticationFailure() bool {
	return pi.Status == IntentStatusRequiresPaymentMethod &&
		pi.LastPaymentErrorCode == ErrorCodeAuthenticationFailure
}

// Refund is returned by refunding a charge
type Refund struct {
	ID       string `json:"id"`
	ChargeID string `json:"charge"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CardDetails carries card attributes of an instrument
type CardDetails struct {
	Brand             string
	Country           string
	Description       string
	ExpMonth          int64
	ExpYear           int64
	Fingerprint       string
	Funding           string
	Last4             string
	CVCCheck          string
	AddressLine1Check string
	PostalCodeCheck   string
	ThreeDSecure      string
	WalletType        string
}

// BankDetails carries bank debit attributes of an instrument
type BankDetails struct {
	BankName          string
	Country           string
	Currency          string
	Fingerprint       string
	Last4             string
	RoutingNumber     string
	AccountHolderType string
	Status            string
	BankCode          string
	BranchCode        string
	MandateReference  string
	MandateURL        string
}

// Instrument is a storable payment instrument as listed by the gateway
type Instrument struct {
	Kind       InstrumentKind
	ID         string
	CustomerID string
	Type       string // card, ach_debit, sepa_debit, ...
	Created    int64
	Livemode   bool
	Card       *CardDetails
	Bank       *BankDetails
	Metadata   map[string]string
}

// AdditionalData canonicalizes the instrument according to its kind
func (in *Instrument) AdditionalData() (AdditionalData, error) {
	canonicalize, ok := instrumentCanonicalizers[in.Kind]
	if !ok {
		return nil, fmt.Errorf("unsupported instrument kind %q", in.Kind)
	}
	data := canonicalize(in)
	data[KeyID] = in.ID
	data[KeyObject] = string(in.Kind)
	data[KeyCustomerID] = in.CustomerID
	if len(in.Metadata) > 0 {
		data["metadata"] = stringMap(in.Metadata)
	}
	return data.Compact(), nil
}

var instrumentCanonicalizers = map[InstrumentKind]func(*Instrument) AdditionalData{
	InstrumentKindPaymentMethod: canonicalizePaymentMethod,
	InstrumentKindSource:        canonicalizeSource,
	InstrumentKindBankAccount:   canonicalizeBankAccount,
}

func canonicalizePaymentMethod(in *Instrument) AdditionalData {
	data := AdditionalData{
		KeyType:    in.Type,
		"created":  in.Created,
		"livemode": in.Livemode,
	}
	if c := in.Card; c != nil {
		putCard(data, c)
		data["card_three_d_secure_usage_support"] = c.ThreeDSecure
		data["card_wallet_type"] = c.WalletType
	}
	if b := in.Bank; b != nil {
		putBankDebit(data, in.Type, b)
	}
	return data
}

func canonicalizeSource(in *Instrument) AdditionalData {
	data := AdditionalData{
		KeyType:    in.Type,
		"created":  in.Created,
		"livemode": in.Livemode,
	}
	if c := in.Card; c != nil {
		putCard(data, c)
		data["card_three_d_secure_usage_support"] = c.ThreeDSecure
	}
	if b := in.Bank; b != nil {
		putBankDebit(data, in.Type, b)
	}
	return data
}

func canonicalizeBankAccount(in *Instrument) AdditionalData {
	data := AdditionalData{}
	if b := in.Bank; b != nil {
		data["account_holder_type"] = b.AccountHolderType
		data["bank_name"] = b.BankName
		data["country"] = b.Country
		data["currency"] = b.Currency
		data["fingerprint"] = b.Fingerprint
		data["last4"] = b.Last4
		data["routing_number"] = b.RoutingNumber
		data[KeyStatus] = b.Status
	}
	return data
}

func putCard(data AdditionalData, c *CardDetails) {
	data["card_brand"] = c.Brand
	data["card_country"] = c.Country
	data["card_description"] = c.Description
	data["card_exp_month"] = c.ExpMonth
	data["card_exp_year"] = c.ExpYear
	data["card_fingerprint"] = c.Fingerprint
	data["card_funding"] = c.Funding
	data["card_last4"] = c.Last4
	data["card_cvc_check"] = c.CVCCheck
	data["card_address_line1_check"] = c.AddressLine1Check
	data["card_address_postal_code_check"] = c.PostalCodeCheck
}

// putBankDebit prefixes bank attributes with the debit type (ach_debit_last4, sepa_debit_last4, ...)
func putBankDebit(data AdditionalData, debitType string, b *BankDetails) {
	if debitType == "" {
		debitType = "bank"
	}
	data[debitType+"_bank_name"] = b.BankName
	data[debitType+"_country"] = b.Country
	data[debitType+"_fingerprint"] = b.Fingerprint
	data[debitType+"_last4"] = b.Last4
	data[debitType+"_routing_number"] = b.RoutingNumber
	data[debitType+"_bank_code"] = b.BankCode
	data[debitType+"_branch_code"] = b.BranchCode
	data[debitType+"_mandate_reference"] = b.MandateReference
	data[debitType+"_mandate_url"] = b.MandateURL
}

// Customer is the gateway customer owning instruments
type Customer struct {
	ID      string
	Email   string
	Sources []Instrument
}

// CheckoutSession is a hosted checkout session
type CheckoutSession struct {
	ID              string
	Object          string
	URL             string
	Mode            string
	Status          string
	CustomerID      string
	PaymentIntentID string
	SetupIntentID   string
	SuccessURL      string
	CancelURL       string
	Livemode        bool
	Created         int64
}

// AdditionalData flattens the session for the HPP request record and the form descriptor
func (s *CheckoutSession) AdditionalData() AdditionalData {
	return AdditionalData{
		KeyID:              s.ID,
		KeyObject:          s.Object,
		"url":              s.URL,
		"mode":             s.Mode,
		KeyStatus:          s.Status,
		KeyCustomerID:      s.CustomerID,
		KeyPaymentIntentID: s.PaymentIntentID,
		"setup_intent_id":  s.SetupIntentID,
		"success_url":      s.SuccessURL,
		"cancel_url":       s.CancelURL,
		"livemode":         s.Livemode,
		"created":          s.Created,
	}.Compact()
}

func stringMap(m map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// TransportKind classifies network failures by whether the call may have
// reached the gateway
type TransportKind string

const (
	// The request never left: connection refused, DNS failure, open circuit
	TransportConnect TransportKind = "connect"
	// The request may have been processed: timeout, truncated or malformed response
	TransportAmbiguous TransportKind = "ambiguous"
)

// Status maps the transport failure onto the canonical status
func (k TransportKind) Status() PaymentStatus {
	if k == TransportConnect {
		return StatusCanceled
	}
	return StatusUndefined
}

// TransportError is a network-level gateway failure
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway transport error (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GatewayError is a structured error returned by the gateway itself
type GatewayError struct {
	Type            string
	Code            string
	DeclineCode     string
	Message         string
	Param           string
	RequestID       string
	StatusCode      int
	PaymentIntentID string
	ChargeID        string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error %d: %s", e.StatusCode, e.Message)
}

// IsCardDecline reports a decline-class error
func (e *GatewayError) IsCardDecline() bool {
	return e.Type == "card_error"
}

// AdditionalData flattens the error for logging and error details
func (e *GatewayError) AdditionalData() AdditionalData {
	return AdditionalData{
		KeyGatewayErrorMessage: e.Message,
		KeyGatewayErrorCode:    e.Code,
		KeyCode:                e.DeclineCode,
		KeyRequestID:           e.RequestID,
		KeyStatusCode:          e.StatusCode,
		KeyMessage:             e.Error(),
	}.Compact()
}

// ResultKind tags a GatewayResult
type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultDeclined
	ResultTransport
	ResultUnknown
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultDeclined:
		return "declined"
	case ResultTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// GatewayResult is the outcome of a money-moving gateway call:
// Ok(intent) | Declined(error, intent?) | Transport(kind) | Unknown(error)
type GatewayResult struct {
	Kind      ResultKind
	Intent    *PaymentIntent
	Declined  *GatewayError
	Transport TransportKind
	Err       error
}

// NewGatewayResult classifies the return values of a gateway call
func NewGatewayResult(intent *PaymentIntent, err error) GatewayResult {
	if err == nil {
		return GatewayResult{Kind: ResultOK, Intent: intent}
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return GatewayResult{Kind: ResultTransport, Transport: transportErr.Kind, Err: err}
	}

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return GatewayResult{Kind: ResultDeclined, Declined: gatewayErr, Intent: intent, Err: err}
	}

	return GatewayResult{Kind: ResultUnknown, Err: err}
}
