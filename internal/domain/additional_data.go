package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Keys of the additional-data bag. The bag is the only place gateway specific
// detail lives; everything else on a record is canonical.
const (
	KeyID                = "id"
	KeyObject            = "object"
	KeyStatus            = "status"
	KeyMessage           = "message"
	KeyCode              = "code"
	KeyType              = "type"
	KeyCustomerID        = "customer_id"
	KeyPaymentMethodID   = "payment_method_id"
	KeyPaymentIntentID   = "payment_intent_id"
	KeyNextAction        = "next_action"
	KeyLastPaymentError  = "last_payment_error_code"
	KeyStatusOverride    = "overriddenTransactionStatus"
	KeyFromHPP           = "fromHPP"
	KeyFromHPPCompletion = "fromHPPCompletion"

	KeyLastChargeID                = "last_charge_id"
	KeyLastChargeStatus            = "last_charge_status"
	KeyLastChargeAmount            = "last_charge_amount"
	KeyLastChargeCurrency          = "last_charge_currency"
	KeyLastChargeAuthorizationCode = "last_charge_authorization_code"
	KeyLastChargeFailureCode       = "last_charge_failure_code"
	KeyLastChargeFailureMessage    = "last_charge_failure_message"
	KeyLastChargePaymentMethodType = "last_charge_payment_method_type"

	KeyGatewayErrorCode    = "stripe_error_code"
	KeyGatewayErrorMessage = "stripe_error_message"
	KeyRequestID           = "request_id"
	KeyStatusCode          = "status_code"
)

// AdditionalData is the open key/value payload stored alongside every record
type AdditionalData map[string]interface{}

// String returns the value for key when it is a non-empty string
func (d AdditionalData) String(key string) (string, bool) {
	if d == nil {
		return "", false
	}
	switch v := d[key].(type) {
	case string:
		return v, v != ""
	case json.Number:
		return v.String(), true
	case fmt.Stringer:
		s := v.String()
		return s, s != ""
	}
	return "", false
}

// StringOr returns the string value for key or def
func (d AdditionalData) StringOr(key, def string) string {
	if s, ok := d.String(key); ok {
		return s
	}
	return def
}

// Bool reads a flag. Caller supplied properties usually arrive as strings.
func (d AdditionalData) Bool(key string) bool {
	if d == nil {
		return false
	}
	switch v := d[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}
	return false
}

// Int64 reads an integer value stored either natively or as a JSON number
func (d AdditionalData) Int64(key string) (int64, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Merge returns a new bag holding d overlaid with patch. Patch keys win,
// other keys are preserved.
func (d AdditionalData) Merge(patch AdditionalData) AdditionalData {
	merged := make(AdditionalData, len(d)+len(patch))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Compact drops nil, empty string and empty collection values
func (d AdditionalData) Compact() AdditionalData {
	out := make(AdditionalData, len(d))
	for k, v := range d {
		if isEmptyValue(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Encode serializes the bag as compact JSON with empty values omitted.
// A nil or empty bag encodes to nil.
func (d AdditionalData) Encode() ([]byte, error) {
	compacted := d.Compact()
	if len(compacted) == 0 {
		return nil, nil
	}
	return json.Marshal(compacted)
}

// DecodeAdditionalData parses a stored payload. Numbers are kept as
// json.Number so integer amounts and timestamps round-trip exactly.
func DecodeAdditionalData(raw []byte) (AdditionalData, error) {
	if len(raw) == 0 {
		return AdditionalData{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var data AdditionalData
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode additional data: %w", err)
	}
	if data == nil {
		data = AdditionalData{}
	}
	return data, nil
}

// Normalize round-trips the bag through its storage encoding so values built
// in memory compare equal to values read back from the store.
func (d AdditionalData) Normalize() (AdditionalData, error) {
	raw, err := d.Encode()
	if err != nil {
		return nil, err
	}
	return DecodeAdditionalData(raw)
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]interface{}:
		return len(t) == 0
	case map[string]string:
		return len(t) == 0
	case AdditionalData:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	}
	return false
}
