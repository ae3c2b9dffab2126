package stripe

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/kevin07696/gateway-reconciler/internal/domain"
)

// classifyTransport decides whether a failed round trip may have reached the
// gateway. Only failures that provably happened before the request left the
// host are connect-class; everything else is ambiguous.
func classifyTransport(err error) *domain.TransportError {
	if err == nil {
		return nil
	}
	var transportErr *domain.TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}
	return &domain.TransportError{Kind: transportKind(err), Err: err}
}

func transportKind(err error) domain.TransportKind {
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests) {
		return domain.TransportConnect
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return domain.TransportConnect
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.TransportConnect
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && !opErr.Timeout() {
		return domain.TransportConnect
	}

	// Timeouts, truncated bodies, bad chunks and anything unrecognized
	return domain.TransportAmbiguous
}

type errorEnvelope struct {
	Error struct {
		Type          string `json:"type"`
		Code          string `json:"code"`
		DeclineCode   string `json:"decline_code"`
		Message       string `json:"message"`
		Param         string `json:"param"`
		Charge        string `json:"charge"`
		PaymentIntent *struct {
			ID string `json:"id"`
		} `json:"payment_intent"`
	} `json:"error"`
}

// decodeGatewayError turns a non-2xx response into a *domain.GatewayError. A
// body that is not a gateway error envelope is an ambiguous transport failure.
func decodeGatewayError(resp *http.Response, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Error.Type == "" && env.Error.Message == "") {
		return &domain.TransportError{
			Kind: domain.TransportAmbiguous,
			Err:  &unexpectedResponseError{status: resp.StatusCode, body: truncate(string(body), 256)},
		}
	}

	gatewayErr := &domain.GatewayError{
		Type:        env.Error.Type,
		Code:        env.Error.Code,
		DeclineCode: env.Error.DeclineCode,
		Message:     env.Error.Message,
		Param:       env.Error.Param,
		RequestID:   resp.Header.Get("Request-Id"),
		StatusCode:  resp.StatusCode,
		ChargeID:    env.Error.Charge,
	}
	if env.Error.PaymentIntent != nil {
		gatewayErr.PaymentIntentID = env.Error.PaymentIntent.ID
	}
	return gatewayErr
}

type unexpectedResponseError struct {
	status int
	body   string
}

func (e *unexpectedResponseError) Error() string {
	return "unexpected gateway response " + http.StatusText(e.status) + ": " + strings.TrimSpace(e.body)
}

// isOutage reports failures that count against the circuit breaker. Declines
// and validation errors are answers, not outages.
func isOutage(err error) bool {
	if err == nil {
		return false
	}
	var gatewayErr *domain.GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.StatusCode >= http.StatusInternalServerError
	}
	var transportErr *domain.TransportError
	return errors.As(err, &transportErr)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
