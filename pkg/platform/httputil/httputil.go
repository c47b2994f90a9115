// Package httputil writes the JSON bodies of the consent API and maps domain
// error codes onto them.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "attrconsent/pkg/domain-errors"
)

// ErrorResponse is the body of every failed request. Description is left
// out of 5xx responses.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type mapping struct {
	status int
	name   string
}

var codes = map[dErrors.Code]mapping{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeStorage:            {http.StatusServiceUnavailable, "storage_unavailable"},
	dErrors.CodeDecisionUnreadable: {http.StatusInternalServerError, "decision_unreadable"},
	dErrors.CodeIntegrity:          {http.StatusInternalServerError, "decision_unreadable"},
	dErrors.CodeConfidentiality:    {http.StatusInternalServerError, "decision_unreadable"},
	dErrors.CodeInternal:           {http.StatusInternalServerError, "internal_error"},
}

func lookup(code dErrors.Code) mapping {
	if m, ok := codes[code]; ok {
		return m
	}
	return codes[dErrors.CodeInternal]
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure can only truncate the body.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError writes err as an ErrorResponse. Errors without a domain code
// are reported as internal_error with no description.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: lookup(dErrors.CodeInternal).name})
		return
	}
	m := lookup(domainErr.Code)
	resp := ErrorResponse{Error: m.name}
	if m.status < http.StatusInternalServerError {
		resp.Description = domainErr.Message
	}
	WriteJSON(w, m.status, resp)
}

// DomainCodeToHTTPStatus returns the status a domain code is served with.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	return lookup(code).status
}

// DomainCodeToHTTPCode returns the error string a domain code is served with.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	return lookup(code).name
}
