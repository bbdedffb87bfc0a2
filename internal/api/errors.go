package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/store"
)

// internalErrorMessage is the only message a 500 response ever carries.
const internalErrorMessage = "internal server error"

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
//
// Handler errors that are neither domain nor store errors reach huma as a
// 500 and are logged here; the client only sees the fixed message.
func RegisterErrorHandler(logger *slog.Logger) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromDomainError(err); apiErr != nil {
				return apiErr
			}
		}

		// Schema validation failures (huma reports 422) are plain validation
		// errors to clients.
		if status == http.StatusUnprocessableEntity || (status == http.StatusBadRequest && len(errs) > 0) {
			return &APIError{
				status:  http.StatusBadRequest,
				Code:    string(domainerrors.CodeValidation),
				Message: message,
				Details: validationDetails(errs),
			}
		}

		if status >= http.StatusInternalServerError {
			if logger != nil {
				logger.Error("Unhandled error", "status", status, "message", message, "error", errors.Join(errs...))
			}
			return &APIError{
				status:  http.StatusInternalServerError,
				Code:    string(domainerrors.CodeInternal),
				Message: internalErrorMessage,
			}
		}

		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
	}
}

// fromDomainError converts domain and store errors. It returns nil for
// anything else, including INTERNAL domain errors, which must not leak.
func fromDomainError(err error) *APIError {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		if domainErr.Code == domainerrors.CodeInternal {
			return nil
		}
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) && storeErr.HTTPCode() < http.StatusInternalServerError {
		code := domainerrors.CodeInvalidState
		switch {
		case errors.Is(err, store.ErrNotFound):
			code = domainerrors.CodeNotFound
		case errors.Is(err, store.ErrAlreadyExists):
			code = domainerrors.CodeAlreadyExists
		case errors.Is(err, store.ErrConditionFailed):
			code = domainerrors.CodeConflict
		}
		return &APIError{
			status:  code.HTTPStatus(),
			Code:    string(code),
			Message: storeErr.Message,
		}
	}

	return nil
}

// validationDetails maps each failing location (body.title, query.radius) to
// its message. It returns an untyped nil when there is nothing to report.
func validationDetails(errs []error) any {
	details := make(map[string]string)
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) {
			details[detail.Location] = detail.Message
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusMethodNotAllowed:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
