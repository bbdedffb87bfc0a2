package response

import (
	"encoding/json/v2"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/library-server/internal/errors"
	"github.com/listenupapp/library-server/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixedNow(t *testing.T) int64 {
	t.Helper()
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	prev := Now
	Now = func() time.Time { return ts }
	t.Cleanup(func() { Now = prev })
	return ts.UnixMilli()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	ms := fixedNow(t)
	w := httptest.NewRecorder()

	Success(w, map[string]string{"status": "ok"}, discard)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "OK", body["message"])
	assert.Equal(t, float64(ms), body["timestamp"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
	assert.NotContains(t, body, "code")
}

func TestError_IncludesCodeAndNullData(t *testing.T) {
	fixedNow(t)
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, domainerrors.CodeValidation, "bad", map[string]string{"title": "is required"}, discard)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION", body["code"])
	assert.Nil(t, body["data"])
	assert.Contains(t, body, "data")
	assert.Equal(t, map[string]any{"title": "is required"}, body["details"])
}

func TestTooManyRequests(t *testing.T) {
	w := httptest.NewRecorder()

	TooManyRequests(w, 1500*time.Millisecond, discard)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode(t, w)["code"])

	w = httptest.NewRecorder()
	TooManyRequests(w, 10*time.Millisecond, discard)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "domain not found",
			err:        domainerrors.NotFoundf("book %s not found", "book-1"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "book book-1 not found",
		},
		{
			name:       "wrapped domain state error",
			err:        errors.Join(errors.New("ctx"), domainerrors.InvalidState("no available copies")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_STATE",
			wantMsg:    "no available copies",
		},
		{
			name:       "store not found",
			err:        store.ErrNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
			wantMsg:    "not found",
		},
		{
			name:       "store conflict",
			err:        store.ErrAlreadyExists,
			wantStatus: http.StatusConflict,
			wantCode:   "CONFLICT",
		},
		{
			name:       "domain internal hides message",
			err:        domainerrors.Internal("database exploded", errors.New("io")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
			wantMsg:    "internal server error",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL",
			wantMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleError(w, tt.err, discard)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			}
		})
	}
}
