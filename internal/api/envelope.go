package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/http/response"
)

// messageKey is the Operation.Metadata key holding the success message.
const messageKey = "message"

// defaultMessage is used by operations that do not declare one.
const defaultMessage = "OK"

// withMessage returns operation metadata carrying a success message.
func withMessage(msg string) map[string]any {
	return map[string]any{messageKey: msg}
}

// EnvelopeTransformer wraps every huma response body in the standard
// envelope. Error bodies come from RegisterErrorHandler and keep their code
// and details.
func EnvelopeTransformer(ctx huma.Context, status string, v any) (any, error) {
	if env, ok := v.(response.Envelope); ok {
		return env, nil
	}

	code, _ := strconv.Atoi(status)
	if code >= 400 {
		switch e := v.(type) {
		case *APIError:
			return response.Failed(domainerrors.Code(e.Code), e.Message, e.Details), nil
		case error:
			return response.Failed(domainerrors.Code(statusToCode(code)), e.Error(), nil), nil
		default:
			return response.Failed(domainerrors.Code(statusToCode(code)), "request failed", v), nil
		}
	}

	return response.Succeeded(operationMessage(ctx), v), nil
}

func operationMessage(ctx huma.Context) string {
	if ctx == nil {
		return defaultMessage
	}
	op := ctx.Operation()
	if op == nil {
		return defaultMessage
	}
	if msg, ok := op.Metadata[messageKey].(string); ok && msg != "" {
		return msg
	}
	return defaultMessage
}
