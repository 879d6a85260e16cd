// Package httputil holds JSON response helpers shared by handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "carreg/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to an HTTP status and JSON body.
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status := StatusFor(code)

	body := errorBody{Error: string(code)}
	if status != http.StatusInternalServerError {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
