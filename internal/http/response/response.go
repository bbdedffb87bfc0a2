// Package response writes the JSON envelope for plain net/http handlers that
// live outside the huma API: router fallbacks, middleware rejections and the
// event stream.
package response

import (
	"encoding/json/v2"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/store"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Now supplies envelope timestamps. Tests replace it.
var Now = time.Now

// Succeeded builds a success envelope stamped with Now.
func Succeeded(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data, Timestamp: Now().UnixMilli()}
}

// Failed builds an error envelope stamped with Now.
func Failed(code domainerrors.Code, message string, details any) Envelope {
	return Envelope{Message: message, Code: string(code), Details: details, Timestamp: Now().UnixMilli()}
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.MarshalWrite(w, env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// JSON writes data in a success envelope.
func JSON(w http.ResponseWriter, status int, message string, data any, logger *slog.Logger) {
	env := Succeeded(message, data)
	env.Success = status < 400
	write(w, status, env, logger)
}

// Success writes a 200 OK envelope.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, "OK", data, logger)
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, details any, logger *slog.Logger) {
	write(w, status, Failed(code, message, details), logger)
}

// NotFound writes a 404 envelope.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, domainerrors.CodeNotFound, message, nil, logger)
}

// MethodNotAllowed writes a 405 envelope.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, domainerrors.CodeValidation, "method not allowed", nil, logger)
}

// TooManyRequests writes a 429 envelope with a Retry-After header.
func TooManyRequests(w http.ResponseWriter, retryAfter time.Duration, logger *slog.Logger) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
	Error(w, http.StatusTooManyRequests, domainerrors.CodeRateLimited, "too many requests", nil, logger)
}

// InternalError writes a 500 envelope with a fixed message.
func InternalError(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", nil, logger)
}

// HandleError writes the envelope matching err. Domain errors carry their own
// status; store errors are mapped by HTTP code; anything else becomes 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != domainerrors.CodeInternal {
		Error(w, domainErr.HTTPStatus(), domainErr.Code, domainErr.Message, domainErr.Details, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) && storeErr.HTTPCode() < 500 {
		code := domainerrors.CodeInvalidState
		switch storeErr.HTTPCode() {
		case http.StatusNotFound:
			code = domainerrors.CodeNotFound
		case http.StatusConflict:
			code = domainerrors.CodeConflict
		}
		Error(w, storeErr.HTTPCode(), code, storeErr.Message, nil, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, logger)
}
