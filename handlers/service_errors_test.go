package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edulytics/portal/services"
	"github.com/edulytics/portal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{"not found", services.ErrGateDisabled, http.StatusNotFound, "not_found", "developer gate is disabled"},
		{"validation", services.ErrInvalidInput, http.StatusBadRequest, "bad_request", "invalid input"},
		{"unauthorized", services.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized", "invalid credentials"},
		{"developer portal", services.ErrNotDeveloperAdmin, http.StatusUnauthorized, "unauthorized", "Invalid credentials for developer admin"},
		{"forbidden", services.ErrIncorrectGateAnswer, http.StatusForbidden, "forbidden", "Incorrect information. Access denied."},
		{"conflict", services.NewDomainError(services.ErrorTypeConflict, "Institution code already in use", nil), http.StatusConflict, "conflict", "Institution code already in use"},
		{"unavailable", services.NewDomainError(services.ErrorTypeUnavailable, "restoring session", nil), http.StatusServiceUnavailable, "service_unavailable", "restoring session"},
		{"external", services.WrapExternal("Login failed", errors.New("502 from upstream")), http.StatusBadGateway, "bad_gateway", "Login failed"},
		{"internal hides cause", services.WrapStorage(errors.New("redis: connection refused")), http.StatusInternalServerError, "internal_error", "An internal error occurred"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
			assert.Equal(t, tt.expectedMessage, response.Message)
		})
	}
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("structured validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"email": "email is required"},
		}
		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Equal(t, "email is required", response.Details["email"])
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("invalid JSON body"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "invalid JSON body", response.Message)
	})
}
