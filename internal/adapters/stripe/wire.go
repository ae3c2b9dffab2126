package stripe

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
)

// Wire shapes of the gateway's JSON objects. Only the fields the ledger and
// the mirror keep are decoded.

type chargeJSON struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Status            string            `json:"status"`
	Amount            int64             `json:"amount"`
	Currency          string            `json:"currency"`
	AuthorizationCode string            `json:"authorization_code"`
	FailureCode       string            `json:"failure_code"`
	FailureMessage    string            `json:"failure_message"`
	PaymentIntent     string            `json:"payment_intent"`
	PaymentMethod     string            `json:"payment_method"`
	Paid              bool              `json:"paid"`
	Created           int64             `json:"created"`
	Metadata          map[string]string `json:"metadata"`
	Details           *struct {
		Type string `json:"type"`
		Card *struct {
			AuthorizationCode string `json:"authorization_code"`
		} `json:"card"`
	} `json:"payment_method_details"`
}

func (c *chargeJSON) toDomain() *domain.Charge {
	charge := &domain.Charge{
		ID:                c.ID,
		Object:            c.Object,
		Status:            c.Status,
		Amount:            c.Amount,
		Currency:          c.Currency,
		AuthorizationCode: c.AuthorizationCode,
		FailureCode:       c.FailureCode,
		FailureMessage:    c.FailureMessage,
		PaymentIntentID:   c.PaymentIntent,
		PaymentMethodID:   c.PaymentMethod,
		Paid:              c.Paid,
		Created:           c.Created,
		Metadata:          c.Metadata,
	}
	if d := c.Details; d != nil {
		charge.PaymentMethodType = d.Type
		if d.Card != nil && charge.AuthorizationCode == "" {
			charge.AuthorizationCode = d.Card.AuthorizationCode
		}
	}
	return charge
}

type paymentIntentJSON struct {
	ID                  string            `json:"id"`
	Object              string            `json:"object"`
	Status              string            `json:"status"`
	Amount              int64             `json:"amount"`
	AmountCapturable    int64             `json:"amount_capturable"`
	AmountReceived      int64             `json:"amount_received"`
	Currency            string            `json:"currency"`
	Customer            string            `json:"customer"`
	PaymentMethod       string            `json:"payment_method"`
	CaptureMethod       string            `json:"capture_method"`
	ConfirmationMethod  string            `json:"confirmation_method"`
	Description         string            `json:"description"`
	StatementDescriptor string            `json:"statement_descriptor"`
	CancellationReason  string            `json:"cancellation_reason"`
	Livemode            bool              `json:"livemode"`
	Created             int64             `json:"created"`
	Metadata            map[string]string `json:"metadata"`
	NextAction          *struct {
		Type string `json:"type"`
	} `json:"next_action"`
	LastPaymentError *struct {
		Code string `json:"code"`
	} `json:"last_payment_error"`
	// Expanded with expand[]=latest_charge
	LatestCharge json.RawMessage `json:"latest_charge"`
}

func (p *paymentIntentJSON) toDomain() (*domain.PaymentIntent, error) {
	pi := &domain.PaymentIntent{
		ID:                  p.ID,
		Object:              p.Object,
		Status:              p.Status,
		Amount:              p.Amount,
		AmountCapturable:    p.AmountCapturable,
		AmountReceived:      p.AmountReceived,
		Currency:            p.Currency,
		CustomerID:          p.Customer,
		PaymentMethodID:     p.PaymentMethod,
		CaptureMethod:       p.CaptureMethod,
		ConfirmationMethod:  p.ConfirmationMethod,
		Description:         p.Description,
		StatementDescriptor: p.StatementDescriptor,
		CancellationReason:  p.CancellationReason,
		Livemode:            p.Livemode,
		Created:             p.Created,
		Metadata:            p.Metadata,
	}
	if p.NextAction != nil {
		pi.RequiresAction = true
		pi.NextActionType = p.NextAction.Type
	}
	if p.LastPaymentError != nil {
		pi.LastPaymentErrorCode = p.LastPaymentError.Code
	}

	// latest_charge is an id unless expanded
	if len(p.LatestCharge) > 0 && p.LatestCharge[0] == '{' {
		var charge chargeJSON
		if err := json.Unmarshal(p.LatestCharge, &charge); err != nil {
			return nil, fmt.Errorf("decode latest charge of %s: %w", p.ID, err)
		}
		pi.LastCharge = charge.toDomain()
	}
	return pi, nil
}

type refundJSON struct {
	ID       string `json:"id"`
	Charge   string `json:"charge"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type cardJSON struct {
	Brand       string `json:"brand"`
	Country     string `json:"country"`
	Description string `json:"description"`
	ExpMonth    int64  `json:"exp_month"`
	ExpYear     int64  `json:"exp_year"`
	Fingerprint string `json:"fingerprint"`
	Funding     string `json:"funding"`
	Last4       string `json:"last4"`
	Checks      *struct {
		CVCCheck          string `json:"cvc_check"`
		AddressLine1Check string `json:"address_line1_check"`
		PostalCodeCheck   string `json:"address_postal_code_check"`
	} `json:"checks"`
	// Sources report checks at the top level
	CVCCheck          string `json:"cvc_check"`
	AddressLine1Check string `json:"address_line1_check"`
	PostalCodeCheck   string `json:"address_zip_check"`
	ThreeDSecure      string `json:"three_d_secure"`
	ThreeDSecureUsage *struct {
		Supported bool `json:"supported"`
	} `json:"three_d_secure_usage"`
	Wallet *struct {
		Type string `json:"type"`
	} `json:"wallet"`
}

func (c *cardJSON) toDomain() *domain.CardDetails {
	card := &domain.CardDetails{
		Brand:             c.Brand,
		Country:           c.Country,
		Description:       c.Description,
		ExpMonth:          c.ExpMonth,
		ExpYear:           c.ExpYear,
		Fingerprint:       c.Fingerprint,
		Funding:           c.Funding,
		Last4:             c.Last4,
		CVCCheck:          c.CVCCheck,
		AddressLine1Check: c.AddressLine1Check,
		PostalCodeCheck:   c.PostalCodeCheck,
		ThreeDSecure:      c.ThreeDSecure,
	}
	if c.Checks != nil {
		card.CVCCheck = c.Checks.CVCCheck
		card.AddressLine1Check = c.Checks.AddressLine1Check
		card.PostalCodeCheck = c.Checks.PostalCodeCheck
	}
	if c.ThreeDSecureUsage != nil {
		card.ThreeDSecure = strconv.FormatBool(c.ThreeDSecureUsage.Supported)
	}
	if c.Wallet != nil {
		card.WalletType = c.Wallet.Type
	}
	return card
}

type bankJSON struct {
	BankName          string `json:"bank_name"`
	Country           string `json:"country"`
	Currency          string `json:"currency"`
	Fingerprint       string `json:"fingerprint"`
	Last4             string `json:"last4"`
	RoutingNumber     string `json:"routing_number"`
	AccountHolderType string `json:"account_holder_type"`
	Status            string `json:"status"`
	BankCode          string `json:"bank_code"`
	BranchCode        string `json:"branch_code"`
	MandateReference  string `json:"mandate_reference"`
	MandateURL        string `json:"mandate_url"`
}

func (b *bankJSON) toDomain() *domain.BankDetails {
	return &domain.BankDetails{
		BankName:          b.BankName,
		Country:           b.Country,
		Currency:          b.Currency,
		Fingerprint:       b.Fingerprint,
		Last4:             b.Last4,
		RoutingNumber:     b.RoutingNumber,
		AccountHolderType: b.AccountHolderType,
		Status:            b.Status,
		BankCode:          b.BankCode,
		BranchCode:        b.BranchCode,
		MandateReference:  b.MandateReference,
		MandateURL:        b.MandateURL,
	}
}

// instrumentJSON covers payment_method, source, card and bank_account objects
type instrumentJSON struct {
	ID       string            `json:"id"`
	Object   string            `json:"object"`
	Type     string            `json:"type"`
	Customer string            `json:"customer"`
	Created  int64             `json:"created"`
	Livemode bool              `json:"livemode"`
	Metadata map[string]string `json:"metadata"`

	Card          *cardJSON `json:"card"`
	ACHDebit      *bankJSON `json:"ach_debit"`
	SEPADebit     *bankJSON `json:"sepa_debit"`
	USBankAccount *bankJSON `json:"us_bank_account"`
}

// decodeInstrument selects the canonical kind from the object discriminator.
// Legacy card and bank_account objects carry their attributes inline.
func decodeInstrument(raw []byte) (*domain.Instrument, error) {
	var in instrumentJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode instrument: %w", err)
	}

	out := &domain.Instrument{
		ID:         in.ID,
		CustomerID: in.Customer,
		Type:       in.Type,
		Created:    in.Created,
		Livemode:   in.Livemode,
		Metadata:   in.Metadata,
	}

	switch in.Object {
	case "payment_method":
		out.Kind = domain.InstrumentKindPaymentMethod
	case "source":
		out.Kind = domain.InstrumentKindSource
	case "card":
		var card cardJSON
		if err := json.Unmarshal(raw, &card); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", in.ID, err)
		}
		out.Kind = domain.InstrumentKindSource
		out.Type = "card"
		out.Card = card.toDomain()
		return out, nil
	case "bank_account":
		var bank bankJSON
		if err := json.Unmarshal(raw, &bank); err != nil {
			return nil, fmt.Errorf("decode bank account %s: %w", in.ID, err)
		}
		out.Kind = domain.InstrumentKindBankAccount
		out.Bank = bank.toDomain()
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported instrument object %q", in.Object)
	}

	if in.Card != nil {
		out.Card = in.Card.toDomain()
	}
	for _, bank := range []*bankJSON{in.ACHDebit, in.SEPADebit, in.USBankAccount} {
		if bank != nil {
			out.Bank = bank.toDomain()
			break
		}
	}
	return out, nil
}

type listJSON struct {
	Object  string            `json:"object"`
	Data    []json.RawMessage `json:"data"`
	HasMore bool              `json:"has_more"`
}

type customerJSON struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Sources *listJSON `json:"sources"`
}

type checkoutSessionJSON struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	URL           string `json:"url"`
	Mode          string `json:"mode"`
	Status        string `json:"status"`
	Customer      string `json:"customer"`
	PaymentIntent string `json:"payment_intent"`
	SetupIntent   string `json:"setup_intent"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
	Livemode      bool   `json:"livemode"`
	Created       int64  `json:"created"`
}

func (s *checkoutSessionJSON) toDomain() *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:              s.ID,
		Object:          s.Object,
		URL:             s.URL,
		Mode:            s.Mode,
		Status:          s.Status,
		CustomerID:      s.Customer,
		PaymentIntentID: s.PaymentIntent,
		SetupIntentID:   s.SetupIntent,
		SuccessURL:      s.SuccessURL,
		CancelURL:       s.CancelURL,
		Livemode:        s.Livemode,
		Created:         s.Created,
	}
}

func decodeInstruments(raw []json.RawMessage) ([]domain.Instrument, error) {
	instruments := make([]domain.Instrument, 0, len(raw))
	for _, item := range raw {
		instrument, err := decodeInstrument(item)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, *instrument)
	}
	return instruments, nil
}
