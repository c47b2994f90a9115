package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "attrconsent/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        string
		description string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "no consent decision"), http.StatusNotFound, "not_found", "no consent decision"},
		{"bad request", dErrors.New(dErrors.CodeBadRequest, "principal is required"), http.StatusBadRequest, "bad_request", "principal is required"},
		{"invalid input", dErrors.New(dErrors.CodeInvalidInput, "unknown option"), http.StatusBadRequest, "validation_error", "unknown option"},
		{"storage", dErrors.New(dErrors.CodeStorage, "redis: connection refused"), http.StatusServiceUnavailable, "storage_unavailable", ""},
		{"unreadable", dErrors.New(dErrors.CodeDecisionUnreadable, "bad payload"), http.StatusInternalServerError, "decision_unreadable", ""},
		{"integrity", dErrors.New(dErrors.CodeIntegrity, "signature mismatch"), http.StatusInternalServerError, "decision_unreadable", ""},
		{"wrapped domain error", fmt.Errorf("outer: %w", dErrors.New(dErrors.CodeNotFound, "gone")), http.StatusNotFound, "not_found", "gone"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
		{"unmapped code", dErrors.New(dErrors.Code("teapot"), "short and stout"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			errResp := decodeError(t, w)
			assert.Equal(t, tt.code, errResp["error"])
			assert.Equal(t, tt.description, errResp["error_description"])
		})
	}
}
