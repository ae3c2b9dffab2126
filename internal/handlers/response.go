// Package handlers holds the JSON plumbing shared by the HTTP handlers:
// tenant extraction, request decoding with validation and error mapping.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kevin07696/gateway-reconciler/internal/domain"
	"github.com/kevin07696/gateway-reconciler/internal/domain/ports"
)

// TenantHeader carries the tenant every request is scoped to
const TenantHeader = "X-Tenant-ID"

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Code    domain.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusFor maps an error onto the HTTP status returned to callers
func StatusFor(err error) int {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodeUserError:
		return http.StatusBadRequest
	case domain.ErrorCodeNotFound:
		return http.StatusNotFound
	case domain.ErrorCodeGatewayDeclined:
		return http.StatusPaymentRequired
	case domain.ErrorCodeGatewayUnavailable:
		return http.StatusBadGateway
	case domain.ErrorCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// RespondJSON writes v with the given status
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes err as an ErrorBody. Uncoded failures are logged and
// their cause is not echoed back.
func RespondError(w http.ResponseWriter, logger ports.Logger, err error) {
	status := StatusFor(err)
	body := ErrorBody{Code: domain.GetErrorCode(err), Message: err.Error()}

	var derr *domain.DomainError
	if errors.As(err, &derr) {
		body.Message = derr.Message
		if len(derr.Details) > 0 {
			body.Details = derr.Details
		}
	}
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		logger.Error("Request failed", ports.String("code", string(body.Code)), ports.Err(err))
	}
	if body.Code == "" {
		body.Code = domain.ErrorCodeInternalError
		body.Message = "internal server error"
	}
	RespondJSON(w, status, body)
}

// BadRequest builds a USER_ERROR for malformed input
func BadRequest(format string, args ...interface{}) error {
	return domain.NewDomainError(domain.ErrorCodeUserError, fmt.Sprintf(format, args...))
}

// TenantID reads the tenant header
func TenantID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(TenantHeader))
	if raw == "" {
		return uuid.Nil, BadRequest("%s header is required", TenantHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, BadRequest("invalid %s header: %v", TenantHeader, err)
	}
	return id, nil
}

// PathUUID parses a path wildcard as a uuid
func PathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, BadRequest("invalid %s: %v", name, err)
	}
	return id, nil
}

// Decode reads a JSON body into v and validates its struct tags
func Decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return BadRequest("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("request body is required")
		}
		return BadRequest("malformed request body: %v", err)
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return BadRequest("invalid request: %s", strings.Join(fields, ", "))
		}
		return BadRequest("invalid request: %v", err)
	}
	return nil
}
