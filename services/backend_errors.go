package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/edulytics/portal/clients/backend"
)

// MapBackendError turns a backend client error into a DomainError. The backend
// detail is surfaced verbatim as the message.
func MapBackendError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return WrapError(ErrorTypeExternal, ErrBackendUnavailable.Message, err)
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return NewDomainError(ErrorTypeValidation, apiErr.Detail, err)
	case http.StatusUnauthorized:
		return NewDomainError(ErrorTypeUnauthorized, apiErr.Detail, err)
	case http.StatusForbidden:
		return NewDomainError(ErrorTypeForbidden, apiErr.Detail, err)
	case http.StatusNotFound:
		return NewDomainError(ErrorTypeNotFound, apiErr.Detail, err)
	case http.StatusConflict:
		return NewDomainError(ErrorTypeConflict, apiErr.Detail, err)
	default:
		return NewDomainError(ErrorTypeExternal, apiErr.Detail, err)
	}
}

// MapBackendLoginError is MapBackendError for login calls, where the backend
// answers bad credentials with 400.
func MapBackendLoginError(err error) error {
	if apiErr, ok := backend.AsAPIError(err); ok && apiErr.StatusCode == http.StatusBadRequest {
		return NewDomainError(ErrorTypeUnauthorized, apiErr.Detail, err)
	}
	return MapBackendError(err)
}

// WrapStorage wraps a profile store failure
func WrapStorage(err error) error {
	return WrapError(ErrorTypeInternal, ErrStorageError.Message, err)
}
